// Package analysis derives the audio and lyric features a montage is planned
// from. Feature extraction is deterministic and approximate: only the track
// duration is measured, everything else is derived from the file path.
package analysis

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"math"
	"math/big"
	"os/exec"
	"strconv"
	"strings"

	"montage-orchestrator/internal/montage"
)

// ErrInvalidDuration is returned when a track reports a non-positive duration.
var ErrInvalidDuration = errors.New("audio duration must be positive")

// AudioAnalyzer produces the features of one audio file.
type AudioAnalyzer interface {
	Analyze(ctx context.Context, path string, mode montage.Mode) (montage.Audio, error)
}

// DurationProber measures the duration of a media file in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// FFProbe measures durations with the ffprobe binary.
type FFProbe struct {
	// Binary defaults to "ffprobe" on PATH.
	Binary string
}

// Duration implements DurationProber.
func (p FFProbe) Duration(ctx context.Context, path string) (float64, error) {
	bin := p.Binary
	if bin == "" {
		bin = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "ffprobe failed"
		}
		return 0, fmt.Errorf("probe %s: %s: %w", path, msg, err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("probe %s: parse duration: %w", path, err)
	}
	return d, nil
}

// ProbeAnalyzer measures the duration with a DurationProber and derives tempo,
// sections and energy from it.
type ProbeAnalyzer struct {
	Prober DurationProber
}

// NewProbeAnalyzer returns an analyzer backed by prober, or by ffprobe on PATH
// when prober is nil.
func NewProbeAnalyzer(prober DurationProber) *ProbeAnalyzer {
	if prober == nil {
		prober = FFProbe{}
	}
	return &ProbeAnalyzer{Prober: prober}
}

// Analyze implements AudioAnalyzer.
func (a *ProbeAnalyzer) Analyze(ctx context.Context, path string, mode montage.Mode) (montage.Audio, error) {
	duration, err := a.Prober.Duration(ctx, path)
	if err != nil {
		return montage.Audio{}, err
	}
	if duration <= 0 || math.IsNaN(duration) {
		return montage.Audio{}, fmt.Errorf("analyze %s: %w", path, ErrInvalidDuration)
	}
	return montage.Audio{
		Duration:    duration,
		BPM:         TempoFor(path),
		Sections:    Sections(duration),
		EnergyCurve: EnergyCurve(duration),
		Mode:        mode,
	}, nil
}

// TempoFor returns a stable bpm in [110, 150) for path.
func TempoFor(path string) int {
	sum := md5.Sum([]byte(path))
	seed := new(big.Int).Mod(new(big.Int).SetBytes(sum[:]), big.NewInt(10000)).Int64()
	return 110 + int(seed%40)
}

var sectionNames = []string{"intro", "verse", "chorus", "verse", "bridge", "chorus", "outro"}

// Sections splits [0, duration] into chunks of between 8 and 20 seconds, about
// a sixth of the track each, cycling through a song structure.
func Sections(duration float64) []montage.Section {
	if duration <= 0 {
		return nil
	}
	chunk := max(8.0, min(20.0, duration/6))
	var out []montage.Section
	for t, idx := 0.0, 0; t < duration; idx++ {
		end := min(duration, t+chunk)
		out = append(out, montage.Section{Start: t, End: end, Label: sectionNames[idx%len(sectionNames)]})
		t = end
	}
	return out
}

const energySteps = 12

// EnergyCurve returns twelve evenly spaced samples cycling through four
// energy levels.
func EnergyCurve(duration float64) []montage.EnergyPoint {
	if duration <= 0 {
		return nil
	}
	out := make([]montage.EnergyPoint, 0, energySteps)
	for i := range energySteps {
		value := min(1.0, 0.35+float64(i%4)*0.15)
		out = append(out, montage.EnergyPoint{
			Time:   duration * float64(i) / energySteps,
			Energy: math.Round(value*100) / 100,
		})
	}
	return out
}
