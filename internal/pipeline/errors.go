package pipeline

import (
	"fmt"

	"montage-orchestrator/internal/ledger"
	"montage-orchestrator/internal/montage"
)

// EntitlementError is returned when a plan tier may not use a mode.
type EntitlementError struct {
	Tier ledger.Tier
	Mode montage.Mode
}

func (e *EntitlementError) Error() string {
	return fmt.Sprintf("%s quality requires creator or pro plan", e.Mode)
}

// entitlements lists the modes each tier may request.
var entitlements = map[ledger.Tier][]montage.Mode{
	ledger.TierFree:    {montage.ModeFast},
	ledger.TierCreator: {montage.ModeFast, montage.ModeHigh},
	ledger.TierPro:     {montage.ModeFast, montage.ModeHigh},
}

// CheckEntitlement returns an *EntitlementError when tier may not request
// mode. Unknown tiers have the free entitlements.
func CheckEntitlement(tier ledger.Tier, mode montage.Mode) error {
	allowed, ok := entitlements[tier]
	if !ok {
		allowed = entitlements[ledger.TierFree]
	}
	for _, m := range allowed {
		if m == mode {
			return nil
		}
	}
	return &EntitlementError{Tier: tier, Mode: mode}
}

// budgets is the number of clips the improvement loop may regenerate per mode.
var budgets = map[montage.Mode]int{
	montage.ModeFast: 4,
	montage.ModeHigh: 12,
}

// BudgetFor returns the repair budget of mode. Unknown modes get the
// high-fidelity budget.
func BudgetFor(mode montage.Mode) int {
	if b, ok := budgets[mode]; ok {
		return b
	}
	return budgets[montage.ModeHigh]
}
