package montage

import (
	"errors"
	"fmt"
)

// ErrMissingClip is returned by Assemble when a planned segment has no clip.
var ErrMissingClip = errors.New("no clip generated for segment")

// Timeline is an immutable, index-ordered sequence of items. Callers build a
// new Timeline instead of changing one, so a previous value can always be
// kept as a snapshot.
type Timeline struct {
	items []Item
}

// NewTimeline returns a Timeline holding a copy of items.
func NewTimeline(items []Item) Timeline {
	cp := make([]Item, len(items))
	copy(cp, items)
	return Timeline{items: cp}
}

// Items returns a copy of the timeline's items.
func (t Timeline) Items() []Item {
	cp := make([]Item, len(t.items))
	copy(cp, t.items)
	return cp
}

// Len returns the number of items.
func (t Timeline) Len() int {
	return len(t.items)
}

// At returns the item at position i.
func (t Timeline) At(i int) Item {
	return t.items[i]
}

// Duration returns the sum of segment durations.
func (t Timeline) Duration() float64 {
	total := 0.0
	for _, it := range t.items {
		total += it.Segment.Duration
	}
	return total
}

// transitionFor returns the default transition when entering a segment:
// a crossfade every fourth segment, otherwise a hard cut.
func transitionFor(index int) Transition {
	if index%4 == 0 {
		return TransitionCrossfade
	}
	return TransitionCut
}

// Assemble pairs every planned segment with its clip (matched by index) and
// assigns the default transitions.
func Assemble(plan Plan, clips []Clip) (Timeline, error) {
	byIndex := make(map[int]Clip, len(clips))
	for _, c := range clips {
		byIndex[c.SegmentIndex] = c
	}

	items := make([]Item, 0, len(plan.Segments))
	for _, seg := range plan.Segments {
		clip, ok := byIndex[seg.Index]
		if !ok {
			return Timeline{}, fmt.Errorf("segment %d: %w", seg.Index, ErrMissingClip)
		}
		items = append(items, Item{Segment: seg, Clip: clip, Transition: transitionFor(seg.Index)})
	}
	return Timeline{items: items}, nil
}
