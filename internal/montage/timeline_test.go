package montage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlan(n int) Plan {
	segs := make([]Segment, n)
	for i := range segs {
		segs[i] = Segment{Index: i, Start: float64(i) * 2, End: float64(i+1) * 2, Duration: 2, Prompt: "p"}
	}
	return Plan{Segments: segs, Mode: ModeFast}
}

func clipsFor(plan Plan) []Clip {
	clips := make([]Clip, 0, len(plan.Segments))
	for _, s := range plan.Segments {
		clips = append(clips, Clip{SegmentIndex: s.Index, Seed: 1000 + s.Index, VisualHash: "h"})
	}
	return clips
}

func TestAssemble(t *testing.T) {
	plan := testPlan(6)
	clips := clipsFor(plan)
	// out of order input still pairs by index
	clips[0], clips[5] = clips[5], clips[0]

	tl, err := Assemble(plan, clips)
	require.NoError(t, err)
	require.Equal(t, 6, tl.Len())

	for i, it := range tl.Items() {
		assert.Equal(t, i, it.Segment.Index)
		assert.Equal(t, it.Segment.Index, it.Clip.SegmentIndex)
	}
	assert.Equal(t, TransitionCrossfade, tl.At(0).Transition)
	assert.Equal(t, TransitionCut, tl.At(1).Transition)
	assert.Equal(t, TransitionCut, tl.At(3).Transition)
	assert.Equal(t, TransitionCrossfade, tl.At(4).Transition)
	assert.InDelta(t, 12.0, tl.Duration(), 1e-9)
}

func TestAssemble_missing_clip(t *testing.T) {
	plan := testPlan(3)
	clips := clipsFor(plan)[:2]

	_, err := Assemble(plan, clips)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingClip))
}

func TestTimeline_is_a_snapshot(t *testing.T) {
	items := []Item{{Segment: Segment{Index: 0, Duration: 1}, Transition: TransitionCut}}
	tl := NewTimeline(items)

	items[0].Transition = TransitionCrossfade
	assert.Equal(t, TransitionCut, tl.At(0).Transition, "NewTimeline must copy its input")

	got := tl.Items()
	got[0].Transition = TransitionCrossfade
	assert.Equal(t, TransitionCut, tl.At(0).Transition, "Items must return a copy")
}

func TestTransition_Flip(t *testing.T) {
	assert.Equal(t, TransitionCrossfade, TransitionCut.Flip())
	assert.Equal(t, TransitionCut, TransitionCrossfade.Flip())
}

func TestSegment_WithPrompt(t *testing.T) {
	s := Segment{Index: 2, Prompt: "old", Keywords: []string{"a"}}
	n := s.WithPrompt("new")

	assert.Equal(t, "old", s.Prompt)
	assert.Equal(t, "new", n.Prompt)
	n.Keywords[0] = "b"
	assert.Equal(t, "a", s.Keywords[0])
}

func TestMode_Valid(t *testing.T) {
	assert.True(t, ModeFast.Valid())
	assert.True(t, ModeHigh.Valid())
	assert.False(t, Mode("ultra").Valid())
	assert.False(t, Mode("").Valid())
}
