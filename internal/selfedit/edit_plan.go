package selfedit

import (
	"context"
	"fmt"
	"slices"

	"montage-orchestrator/internal/montage"
	"montage-orchestrator/internal/scoring"
)

const (
	// reseedOffset is added to a clip's seed when it is regenerated.
	reseedOffset = 29
	// refineSuffix is appended to the prompt of a regenerated segment.
	refineSuffix = ", refined continuity, stronger motif"
)

// Reasons whose fix is a new clip; the rest are fixed by toggling the
// transition. off_style is never detected today but stays mapped.
var (
	replaceReasons = map[scoring.Reason]bool{
		scoring.ReasonRepetition:   true,
		scoring.ReasonLowRelevance: true,
		scoring.ReasonOffStyle:     true,
	}
	adjustReasons = map[scoring.Reason]bool{
		scoring.ReasonAbruptTransition: true,
		scoring.ReasonOffBeat:          true,
	}
)

// EditPlan lists the segment indices to regenerate and the ones whose
// transition should be toggled. Both are sorted and free of duplicates; an
// index may appear in both.
type EditPlan struct {
	Replace          []int `json:"replace"`
	TransitionAdjust []int `json:"transition_adjust"`
}

// Cost is the number of clips the plan regenerates. Transition changes are free.
func (p EditPlan) Cost() int {
	return len(p.Replace)
}

// ClipRegenerator produces a fresh clip for one segment. Implementations must
// be deterministic for identical (segment, aspect ratio, seed).
type ClipRegenerator interface {
	RegenerateClip(ctx context.Context, seg montage.Segment, aspectRatio string, seed int) (montage.Clip, error)
}

// ProposeFixes maps detected issues to an EditPlan.
func ProposeFixes(issues []scoring.Issue) EditPlan {
	var replace, adjust []int
	for _, is := range issues {
		if replaceReasons[is.Reason] {
			replace = append(replace, is.SegmentIndex)
		}
		if adjustReasons[is.Reason] {
			adjust = append(adjust, is.SegmentIndex)
		}
	}
	return EditPlan{Replace: sortedUnique(replace), TransitionAdjust: sortedUnique(adjust)}
}

func sortedUnique(in []int) []int {
	if len(in) == 0 {
		return []int{}
	}
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}

// ApplyFixes returns a new timeline with plan applied to t. Items outside the
// plan keep their clip and transition; t itself is left untouched.
func ApplyFixes(ctx context.Context, t montage.Timeline, plan EditPlan, regen ClipRegenerator, aspectRatio string) (montage.Timeline, error) {
	items := t.Items()
	for i, it := range items {
		idx := it.Segment.Index
		if _, found := slices.BinarySearch(plan.Replace, idx); found {
			seg := it.Segment.WithPrompt(it.Segment.Prompt + refineSuffix)
			clip, err := regen.RegenerateClip(ctx, seg, aspectRatio, it.Clip.Seed+reseedOffset)
			if err != nil {
				return montage.Timeline{}, fmt.Errorf("regenerate segment %d: %w", idx, err)
			}
			items[i].Segment = seg
			items[i].Clip = clip
		}
		if _, found := slices.BinarySearch(plan.TransitionAdjust, idx); found {
			items[i].Transition = it.Transition.Flip()
		}
	}
	return montage.NewTimeline(items), nil
}
