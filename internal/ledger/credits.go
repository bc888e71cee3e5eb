// Package ledger holds per-job credit reservations against a plan allowance.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"montage-orchestrator/internal/montage"
)

var (
	// ErrInsufficientCredits is returned when a reservation exceeds the
	// allowance left after commits and open reservations.
	ErrInsufficientCredits = errors.New("insufficient_credits")

	// ErrMissingReservation is returned when committing a job that never
	// reserved credits.
	ErrMissingReservation = errors.New("missing_reservation")
)

// Tier is a subscription plan.
type Tier string

const (
	TierFree    Tier = "free"
	TierCreator Tier = "creator"
	TierPro     Tier = "pro"
)

// allowances must cover every Tier.
var allowances = map[Tier]int{
	TierFree:    200,
	TierCreator: 1000,
	TierPro:     10000,
}

// Allowance returns the credit allowance of tier. Unknown tiers get the free
// allowance.
func Allowance(tier Tier) int {
	if n, ok := allowances[tier]; ok {
		return n
	}
	return allowances[TierFree]
}

type rate struct {
	base      float64
	perMinute float64
}

var rates = map[montage.Mode]rate{
	montage.ModeFast: {base: 4, perMinute: 2},
	montage.ModeHigh: {base: 10, perMinute: 5},
}

// EstimateCost returns the credits a track of duration seconds costs in mode,
// truncated to an integer.
func EstimateCost(duration float64, mode montage.Mode) int {
	r, ok := rates[mode]
	if !ok {
		r = rates[montage.ModeHigh]
	}
	return int(r.base + (duration/60.0)*r.perMinute)
}

// Reservation is a provisional hold on credits for one job.
type Reservation struct {
	JobID     string `json:"job_id"`
	Amount    int    `json:"amount"`
	Committed bool   `json:"committed"`
}

// Ledger tracks reservations for one plan allowance. All methods are safe for
// concurrent use and are serialised by a single lock.
type Ledger struct {
	mu           sync.Mutex
	tier         Tier
	allowance    int
	held         int // sum of uncommitted reservations
	reservations map[string]*Reservation
}

// New returns a Ledger with the standard allowance for tier.
func New(tier Tier) *Ledger {
	return NewWithAllowance(tier, Allowance(tier))
}

// NewWithAllowance returns a Ledger with an explicit allowance.
func NewWithAllowance(tier Tier, allowance int) *Ledger {
	return &Ledger{
		tier:         tier,
		allowance:    allowance,
		reservations: make(map[string]*Reservation),
	}
}

// Tier returns the plan the ledger belongs to.
func (l *Ledger) Tier() Tier { return l.tier }

// Remaining returns the allowance not yet consumed by commits. Credits held
// by open reservations are still counted as remaining.
func (l *Ledger) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowance
}

// Available returns the credits a new reservation may still take: the
// remaining allowance minus every open reservation.
func (l *Ledger) Available() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowance - l.held
}

// Reservation returns the current reservation for jobID.
func (l *Ledger) Reservation(jobID string) (Reservation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.reservations[jobID]
	if !ok {
		return Reservation{}, false
	}
	return *r, true
}

// Reserve holds amount credits for jobID. If jobID already holds a
// reservation it is returned unchanged, whatever amount is passed.
func (l *Ledger) Reserve(jobID string, amount int) (Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.reservations[jobID]; ok {
		return *existing, nil
	}
	if available := l.allowance - l.held; amount > available {
		return Reservation{}, fmt.Errorf("reserve %d credits for job %s, %d available: %w", amount, jobID, available, ErrInsufficientCredits)
	}
	r := &Reservation{JobID: jobID, Amount: amount}
	l.reservations[jobID] = r
	l.held += amount
	return *r, nil
}

// Commit consumes the reserved credits of jobID. Committing twice is a no-op.
func (l *Ledger) Commit(jobID string) (Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.reservations[jobID]
	if !ok {
		return Reservation{}, fmt.Errorf("commit job %s: %w", jobID, ErrMissingReservation)
	}
	if r.Committed {
		return *r, nil
	}
	l.held -= r.Amount
	l.allowance -= r.Amount
	r.Committed = true
	return *r, nil
}

// Release drops an uncommitted reservation so the job may reserve again.
// Missing or committed reservations are left alone.
func (l *Ledger) Release(jobID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.reservations[jobID]
	if !ok || r.Committed {
		return
	}
	l.held -= r.Amount
	delete(l.reservations, jobID)
}
