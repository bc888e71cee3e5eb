// Package render exports a timeline and its soundtrack to a single video file.
package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"montage-orchestrator/internal/montage"
	"montage-orchestrator/internal/platform/ffmpeg"
)

// ErrEmptyTimeline is returned when there is nothing to render.
var ErrEmptyTimeline = errors.New("timeline has no items")

const (
	crossfadeSeconds = 0.25
	cutSeconds       = 0.05
)

// Error is an encoding failure in one render stage.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Renderer writes the final artifact for a timeline.
type Renderer interface {
	Render(ctx context.Context, t montage.Timeline, audioPath, outputPath string) error
}

// FFmpeg renders with the ffmpeg binary in two passes: the video track with
// its transitions, then the mux with the audio track.
type FFmpeg struct {
	Runner ffmpeg.Runner
}

// NewFFmpeg returns a renderer using runner.
func NewFFmpeg(runner ffmpeg.Runner) *FFmpeg {
	return &FFmpeg{Runner: runner}
}

// Render implements Renderer.
func (f *FFmpeg) Render(ctx context.Context, t montage.Timeline, audioPath, outputPath string) error {
	if t.Len() == 0 {
		return &Error{Stage: "video", Err: ErrEmptyTimeline}
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return &Error{Stage: "prepare", Err: err}
	}
	video := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".video.mp4"
	if err := f.Runner.Run(ctx, VideoArgs(t, video)...); err != nil {
		return &Error{Stage: "video", Err: err}
	}
	if err := f.Runner.Run(ctx, MuxArgs(video, audioPath, outputPath)...); err != nil {
		return &Error{Stage: "mux", Err: err}
	}
	return nil
}

// VideoArgs returns the ffmpeg arguments that join the clips of t into a
// silent video at out. A single clip is re-encoded as is.
func VideoArgs(t montage.Timeline, out string) []string {
	items := t.Items()
	if len(items) == 1 {
		return []string{"-y", "-i", items[0].Clip.MediaPath, "-c:v", "libx264", "-pix_fmt", "yuv420p", out}
	}
	args := []string{"-y"}
	for _, it := range items {
		args = append(args, "-i", it.Clip.MediaPath)
	}
	graph, last := FilterGraph(items)
	return append(args,
		"-filter_complex", graph,
		"-map", "["+last+"]",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		out,
	)
}

// FilterGraph chains the clips with xfade filters and pads the tail by the
// total overlap so the video keeps the length of the timeline. It returns the
// graph and the label of its output.
func FilterGraph(items []montage.Item) (string, string) {
	filters := make([]string, 0, 2*len(items))
	for i := range items {
		filters = append(filters, fmt.Sprintf("[%d:v]setpts=PTS-STARTPTS[v%d]", i, i))
	}

	var cumulative, overlap float64
	last := "v0"
	for i := 1; i < len(items); i++ {
		d := cutSeconds
		if items[i].Transition == montage.TransitionCrossfade {
			d = crossfadeSeconds
		}
		cumulative += items[i-1].Segment.Duration
		overlap += d
		// each transition starts d before the end of the stream built so far
		offset := max(0, cumulative-overlap)
		label := fmt.Sprintf("vxf%d", i)
		filters = append(filters, fmt.Sprintf("[%s][v%d]xfade=transition=fade:duration=%.2f:offset=%.2f[%s]", last, i, d, offset, label))
		last = label
	}
	if overlap > 0 {
		pad := last + "pad"
		filters = append(filters, fmt.Sprintf("[%s]tpad=stop_mode=clone:stop_duration=%.2f[%s]", last, overlap, pad))
		last = pad
	}
	return strings.Join(filters, ";"), last
}

// MuxArgs returns the ffmpeg arguments that add audio to video, cut to the
// shorter of the two.
func MuxArgs(video, audio, out string) []string {
	return []string{
		"-y",
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		out,
	}
}
