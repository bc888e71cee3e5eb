package api

import (
	"net/http"
	"strings"

	"montage-orchestrator/internal/ledger"
)

const (
	userHeader = "X-User-Email"
	guestEmail = "guest@tunivo.local"
)

// domainTiers maps an email domain to its plan. Other domains are free.
var domainTiers = map[string]ledger.Tier{
	"creator.tunivo": ledger.TierPro,
	"pro.tunivo":     ledger.TierPro,
	"studio.tunivo":  ledger.TierCreator,
	"creator.com":    ledger.TierCreator,
}

// Session is the caller identity derived from the user header.
type Session struct {
	Email string      `json:"email"`
	Tier  ledger.Tier `json:"plan"`
}

// SessionFromEmail normalises email and resolves its plan. An empty email is
// the guest.
func SessionFromEmail(email string) Session {
	clean := strings.ToLower(strings.TrimSpace(email))
	if clean == "" {
		clean = guestEmail
	}
	domain := clean[strings.LastIndexByte(clean, '@')+1:]
	tier, ok := domainTiers[domain]
	if !ok {
		tier = ledger.TierFree
	}
	return Session{Email: clean, Tier: tier}
}

func sessionFrom(r *http.Request) Session {
	return SessionFromEmail(r.Header.Get(userHeader))
}
