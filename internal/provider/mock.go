// Package provider generates the clips of a montage plan.
package provider

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"montage-orchestrator/internal/montage"
)

// VideoProvider generates media for planned segments. RegenerateClip must be
// deterministic for identical segment content, aspect ratio and seed.
type VideoProvider interface {
	GenerateClips(ctx context.Context, plan montage.Plan, aspectRatio string) ([]montage.Clip, error)
	RegenerateClip(ctx context.Context, seg montage.Segment, aspectRatio string, seed int) (montage.Clip, error)
}

const (
	mockName           = "mock"
	defaultConcurrency = 4
)

// SeedFor returns the initial seed of the segment at index.
func SeedFor(index int) int {
	return 1000 + 17*index
}

// VisualHash fingerprints a clip. Clips of the same section whose seeds agree
// modulo 97 look the same.
func VisualHash(section string, seed int) string {
	return fmt.Sprintf("%s-%d", section, seed%97)
}

// Mock renders placeholder clips into a directory.
type Mock struct {
	dir         string
	renderer    ClipRenderer
	concurrency int
}

// NewMock returns a provider writing clips under dir. concurrency bounds how
// many clips render at once; values <= 0 use the default.
func NewMock(dir string, renderer ClipRenderer, concurrency int) *Mock {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Mock{dir: dir, renderer: renderer, concurrency: concurrency}
}

// GenerateClips implements VideoProvider. Clips are returned in segment order;
// the first failure cancels the remaining renders.
func (m *Mock) GenerateClips(ctx context.Context, plan montage.Plan, aspectRatio string) ([]montage.Clip, error) {
	clips := make([]montage.Clip, len(plan.Segments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, seg := range plan.Segments {
		g.Go(func() error {
			clip, err := m.RegenerateClip(gctx, seg, aspectRatio, SeedFor(seg.Index))
			if err != nil {
				return err
			}
			clips[i] = clip
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return clips, nil
}

// RegenerateClip implements VideoProvider.
func (m *Mock) RegenerateClip(ctx context.Context, seg montage.Segment, aspectRatio string, seed int) (montage.Clip, error) {
	if err := ctx.Err(); err != nil {
		return montage.Clip{}, &Error{Provider: mockName, SegmentIndex: seg.Index, Err: err}
	}
	path := filepath.Join(m.dir, fmt.Sprintf("segment-%d-%d.mp4", seg.Index, seed))
	spec := ClipSpec{
		Prompt:      seg.Prompt,
		Section:     seg.SectionLabel,
		Duration:    seg.Duration,
		AspectRatio: aspectRatio,
		Seed:        seed,
		OutPath:     path,
	}
	if err := m.renderer.RenderClip(ctx, spec); err != nil {
		return montage.Clip{}, &Error{Provider: mockName, SegmentIndex: seg.Index, Err: err}
	}
	return montage.Clip{
		SegmentIndex: seg.Index,
		MediaPath:    path,
		Prompt:       seg.Prompt,
		Duration:     seg.Duration,
		Seed:         seed,
		Provider:     mockName,
		VisualHash:   VisualHash(seg.SectionLabel, seed),
	}, nil
}
