// Package selfedit iteratively repairs a montage timeline: it scores the
// timeline, regenerates the segments behind detected issues, and keeps the
// best version seen under an iteration and credit budget.
package selfedit

import (
	"context"
	"fmt"
	"log/slog"

	"montage-orchestrator/internal/montage"
	"montage-orchestrator/internal/scoring"
)

// StopStatus tells why the loop ended.
type StopStatus string

const (
	StatusPassed         StopStatus = "passed"
	StatusBudgetHit      StopStatus = "budget_hit"
	StatusIterationLimit StopStatus = "iteration_limit"
)

// Tuning holds the per-mode limits of the loop.
type Tuning struct {
	MaxIterations int
	TargetScore   int
}

// tunings must cover every montage.Mode.
var tunings = map[montage.Mode]Tuning{
	montage.ModeFast: {MaxIterations: 2, TargetScore: 75},
	montage.ModeHigh: {MaxIterations: 4, TargetScore: 84},
}

// TuningFor returns the limits for mode. Unknown modes get the high-fidelity
// limits.
func TuningFor(mode montage.Mode) Tuning {
	if t, ok := tunings[mode]; ok {
		return t
	}
	return tunings[montage.ModeHigh]
}

// Report summarises one run of the loop.
type Report struct {
	Status StopStatus `json:"status"`
	// Iterations holds one score card per evaluated timeline, iteration 0 first.
	Iterations       []scoring.ScoreCard `json:"iterations"`
	SpentCredits     int                 `json:"spent_credits"`
	InitialTotal     int                 `json:"initial_total"`
	FinalTotal       int                 `json:"final_total"`
	BestTotal        int                 `json:"best_total"`
	Improved         bool                `json:"improved"`
	SelfEditingAgent string              `json:"self_editing_agent"`
}

// Loop is the self-editing improvement loop for one mode.
type Loop struct {
	mode          montage.Mode
	maxIterations int
	targetScore   int
	log           *slog.Logger
}

// New returns a Loop tuned for mode. If maxIterations <= 0 the mode's
// default is used. A nil logger discards output.
func New(mode montage.Mode, maxIterations int, log *slog.Logger) *Loop {
	t := TuningFor(mode)
	if maxIterations <= 0 {
		maxIterations = t.MaxIterations
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Loop{mode: mode, maxIterations: maxIterations, targetScore: t.TargetScore, log: log}
}

// MaxIterations returns the iteration cap.
func (l *Loop) MaxIterations() int { return l.maxIterations }

// TargetScore returns the total at which the loop stops as passed.
func (l *Loop) TargetScore() int { return l.targetScore }

// Improve runs the loop on timeline. budget caps the number of clips that may
// be regenerated. The returned timeline never scores below timeline itself.
// An error is returned only when regeneration fails or ctx is done.
func (l *Loop) Improve(ctx context.Context, timeline montage.Timeline, sctx scoring.Context, regen ClipRegenerator, aspectRatio string, budget int) (montage.Timeline, Report, error) {
	best := timeline
	bestCard := scoring.Evaluate(timeline, sctx)
	history := []scoring.ScoreCard{bestCard}
	spent := 0

	l.log.Debug("self-edit baseline",
		slog.Int("total", bestCard.Total),
		slog.Int("issues", len(bestCard.Issues)),
		slog.Int("target", l.targetScore))

	for iteration := 1; iteration <= l.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return best, l.report(history, spent, bestCard.Total, ""), err
		}
		if bestCard.Total >= l.targetScore || !bestCard.HasIssues() {
			return best, l.report(history, spent, bestCard.Total, StatusPassed), nil
		}

		plan := ProposeFixes(bestCard.Issues)
		cost := plan.Cost()
		if spent+cost > budget {
			l.log.Debug("self-edit budget exhausted",
				slog.Int("iteration", iteration),
				slog.Int("spent", spent),
				slog.Int("cost", cost),
				slog.Int("budget", budget))
			return best, l.report(history, spent, bestCard.Total, StatusBudgetHit), nil
		}

		candidate, err := ApplyFixes(ctx, best, plan, regen, aspectRatio)
		if err != nil {
			return best, l.report(history, spent, bestCard.Total, ""), fmt.Errorf("iteration %d: %w", iteration, err)
		}
		spent += cost

		card := scoring.Evaluate(candidate, sctx)
		card.Iteration = iteration
		history = append(history, card)

		l.log.Debug("self-edit iteration",
			slog.Int("iteration", iteration),
			slog.Int("replaced", len(plan.Replace)),
			slog.Int("retimed", len(plan.TransitionAdjust)),
			slog.Int("total", card.Total),
			slog.Int("best", bestCard.Total))

		// Ties go to the candidate so a plateau still moves forward.
		if card.Total >= bestCard.Total {
			best, bestCard = candidate, card
		}
	}

	status := StatusIterationLimit
	if bestCard.Total >= l.targetScore {
		status = StatusPassed
	}
	return best, l.report(history, spent, bestCard.Total, status), nil
}

func (l *Loop) report(history []scoring.ScoreCard, spent, bestTotal int, status StopStatus) Report {
	first, last := history[0].Total, history[len(history)-1].Total
	return Report{
		Status:           status,
		Iterations:       history,
		SpentCredits:     spent,
		InitialTotal:     first,
		FinalTotal:       last,
		BestTotal:        bestTotal,
		Improved:         last > first,
		SelfEditingAgent: "on",
	}
}
