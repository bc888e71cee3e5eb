package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"montage-orchestrator/internal/montage"
)

// fileRenderer writes an empty file per clip and records the specs it saw.
type fileRenderer struct {
	mu    sync.Mutex
	specs []ClipSpec
	fail  map[int]error // seed -> error
}

func (r *fileRenderer) RenderClip(_ context.Context, spec ClipSpec) error {
	r.mu.Lock()
	r.specs = append(r.specs, spec)
	err := r.fail[spec.Seed]
	r.mu.Unlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(spec.OutPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(spec.OutPath, nil, 0o644)
}

func testPlan(n int) montage.Plan {
	labels := []string{"intro", "verse", "chorus"}
	plan := montage.Plan{Mode: montage.ModeFast}
	for i := 0; i < n; i++ {
		plan.Segments = append(plan.Segments, montage.Segment{
			Index:        i,
			Start:        float64(i) * 4,
			End:          float64(i+1) * 4,
			Duration:     4,
			SectionLabel: labels[i%len(labels)],
			Prompt:       "neon: city's edge",
		})
	}
	return plan
}

func TestMock_GenerateClips(t *testing.T) {
	dir := t.TempDir()
	r := &fileRenderer{}
	p := NewMock(dir, r, 3)

	clips, err := p.GenerateClips(context.Background(), testPlan(7), "9:16")
	require.NoError(t, err)
	require.Len(t, clips, 7)

	for i, c := range clips {
		assert.Equal(t, i, c.SegmentIndex, "clips keep segment order")
		assert.Equal(t, SeedFor(i), c.Seed)
		assert.Equal(t, "mock", c.Provider)
		assert.Equal(t, filepath.Join(dir, fmt.Sprintf("segment-%d-%d.mp4", i, SeedFor(i))), c.MediaPath)
		assert.FileExists(t, c.MediaPath)
		assert.Equal(t, 4.0, c.Duration)
	}
	assert.Equal(t, "intro-30", clips[0].VisualHash)
	assert.Equal(t, "verse-47", clips[1].VisualHash)
	assert.Len(t, r.specs, 7)
	assert.Equal(t, "9:16", r.specs[0].AspectRatio)
}

func TestMock_RegenerateClip_deterministic(t *testing.T) {
	p := NewMock(t.TempDir(), &fileRenderer{}, 0)
	seg := testPlan(1).Segments[0]

	a, err := p.RegenerateClip(context.Background(), seg, "16:9", 1029)
	require.NoError(t, err)
	b, err := p.RegenerateClip(context.Background(), seg, "16:9", 1029)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := p.RegenerateClip(context.Background(), seg, "16:9", 1058)
	require.NoError(t, err)
	assert.NotEqual(t, a.VisualHash, c.VisualHash)
}

func TestMock_errors(t *testing.T) {
	boom := errors.New("encoder crashed")
	r := &fileRenderer{fail: map[int]error{SeedFor(2): boom}}
	p := NewMock(t.TempDir(), r, 2)

	_, err := p.GenerateClips(context.Background(), testPlan(5), "1:1")
	require.ErrorIs(t, err, boom)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.SegmentIndex)
	assert.Equal(t, "mock provider: segment 2: encoder crashed", perr.Error())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.RegenerateClip(ctx, testPlan(1).Segments[0], "1:1", 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClipArgs(t *testing.T) {
	args := ClipArgs(ClipSpec{
		Prompt:      "neon: city's edge at midnight, glossy reflections everywhere",
		Section:     "chorus",
		Duration:    3.2,
		AspectRatio: "1:1",
		Seed:        1000,
		OutPath:     "/tmp/out.mp4",
	})
	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "color=c=#50b43c:s=1080x1080:d=3.200")
	assert.Contains(t, joined, "text='CHORUS | neon- citys edge at midnight, glossy re'")
	assert.Equal(t, "/tmp/out.mp4", args[len(args)-1])
}

func TestClipArgs_truncates_by_rune(t *testing.T) {
	args := ClipArgs(ClipSpec{
		Prompt:      strings.Repeat("é", 45),
		Section:     "verse",
		Duration:    4,
		AspectRatio: "16:9",
		Seed:        1017,
		OutPath:     "/tmp/out.mp4",
	})
	joined := strings.Join(args, " ")
	assert.True(t, utf8.ValidString(joined))
	assert.Contains(t, joined, "text='VERSE | "+strings.Repeat("é", 40)+"'")
}

func TestSizeAndColor(t *testing.T) {
	assert.Equal(t, "1280x720", SizeFor("16:9"))
	assert.Equal(t, "720x1280", SizeFor("9:16"))
	assert.Equal(t, "1080x1080", SizeFor("1:1"))
	assert.Equal(t, "1280x720", SizeFor("4:3"))

	assert.Equal(t, "#282828", ColorFor(0))
	assert.Equal(t, "#50b43c", ColorFor(1000))
}
