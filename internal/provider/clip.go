package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"montage-orchestrator/internal/platform/ffmpeg"
)

// ClipSpec describes one placeholder clip to render.
type ClipSpec struct {
	Prompt      string
	Section     string
	Duration    float64
	AspectRatio string
	Seed        int
	OutPath     string
}

// ClipRenderer writes the media file for a ClipSpec.
type ClipRenderer interface {
	RenderClip(ctx context.Context, spec ClipSpec) error
}

// FFmpegClipRenderer renders a solid colour clip with the section and prompt
// drawn in the middle.
type FFmpegClipRenderer struct {
	Runner ffmpeg.Runner
}

// RenderClip implements ClipRenderer.
func (r FFmpegClipRenderer) RenderClip(ctx context.Context, spec ClipSpec) error {
	if err := os.MkdirAll(filepath.Dir(spec.OutPath), 0o755); err != nil {
		return fmt.Errorf("create clip dir: %w", err)
	}
	return r.Runner.Run(ctx, ClipArgs(spec)...)
}

// promptRunes is how much of the prompt is drawn on a clip.
const promptRunes = 40

// ClipArgs returns the ffmpeg arguments that render spec.
func ClipArgs(spec ClipSpec) []string {
	prompt := spec.Prompt
	if r := []rune(prompt); len(r) > promptRunes {
		prompt = string(r[:promptRunes])
	}
	text := safeText(strings.ToUpper(spec.Section) + " | " + prompt)
	return []string{
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%s:d=%.3f", ColorFor(spec.Seed), SizeFor(spec.AspectRatio), spec.Duration),
		"-vf", "drawtext=fontcolor=white:fontsize=30:box=1:boxcolor=0x00000077:boxborderw=12:text='" + text + "':x=(w-text_w)/2:y=(h-text_h)/2",
		"-r", "30",
		"-pix_fmt", "yuv420p",
		spec.OutPath,
	}
}

var sizes = map[string]string{
	"16:9": "1280x720",
	"9:16": "720x1280",
	"1:1":  "1080x1080",
}

// SizeFor returns the frame size for an aspect ratio, landscape when unknown.
func SizeFor(aspectRatio string) string {
	if s, ok := sizes[aspectRatio]; ok {
		return s
	}
	return sizes["16:9"]
}

// ColorFor returns a stable #rrggbb colour for seed with every channel in [40, 220).
func ColorFor(seed int) string {
	channel := func(k int) int { return 40 + ((seed*k)%180+180)%180 }
	return fmt.Sprintf("#%02x%02x%02x", channel(31), channel(59), channel(83))
}

// safeText strips characters that would break the drawtext filter.
func safeText(s string) string {
	return strings.NewReplacer("'", "", ":", "-").Replace(s)
}
