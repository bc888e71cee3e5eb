package montage

import (
	"fmt"
	"strings"
)

const (
	fastTempoBPM      = 120
	fastTempoLength   = 3.2
	slowTempoLength   = 4.0
	lowEnergyBelow    = 0.45
	defaultEnergy     = 0.5
	defaultSection    = "verse"
	kineticTempoAbove = 135
)

// modeLengthBonus is added to the base segment length per mode.
var modeLengthBonus = map[Mode]float64{
	ModeFast: 0.8,
	ModeHigh: 0,
}

const (
	upliftingAnchor = "cinematic sunrise, expansive camera, polished film grain"
	kineticAnchor   = "kinetic abstract city lights, dynamic shutter, glossy texture"
	defaultAnchor   = "atmospheric cinematic montage, rich contrast, coherent palette"
)

// BaseSegmentLength returns the target segment length in seconds for a tempo
// and mode.
func BaseSegmentLength(bpm int, mode Mode) float64 {
	length := slowTempoLength
	if bpm >= fastTempoBPM {
		length = fastTempoLength
	}
	return length + modeLengthBonus[mode]
}

// PlanTimeline splits the track into consecutive segments covering
// [0, audio.Duration] and gives each one a prompt. The result depends only on
// its inputs.
func PlanTimeline(audio Audio, lyrics Lyrics, prompt string) Plan {
	baseLen := BaseSegmentLength(audio.BPM, audio.Mode)
	anchor := strings.TrimSpace(prompt)
	if anchor == "" {
		anchor = autoStyleAnchor(audio, lyrics)
	}
	mode := audio.Mode
	if mode == "" {
		mode = ModeFast
	}

	var segments []Segment
	t := 0.0
	for idx := 0; t < audio.Duration; idx++ {
		end := t + baseLen
		if end > audio.Duration {
			end = audio.Duration
		}
		section := sectionAt(audio.Sections, t)
		energy := energyAt(audio.EnergyCurve, t)
		segments = append(segments, Segment{
			Index:        idx,
			Start:        t,
			End:          end,
			Duration:     end - t,
			SectionLabel: section,
			Energy:       energy,
			Prompt:       segmentPrompt(anchor, section, energy, lyrics.Keywords, idx),
			Keywords:     append([]string(nil), lyrics.Keywords...),
		})
		t = end
	}

	return Plan{Segments: segments, StyleAnchor: anchor, Mode: mode}
}

func autoStyleAnchor(audio Audio, lyrics Lyrics) string {
	if lyrics.Sentiment == "uplifting" {
		return upliftingAnchor
	}
	if audio.BPM > kineticTempoAbove {
		return kineticAnchor
	}
	return defaultAnchor
}

func segmentPrompt(anchor, section string, energy float64, keywords []string, index int) string {
	intensity := "high energy"
	if energy < lowEnergyBelow {
		intensity = "low energy"
	}
	motif := section
	if len(keywords) > 0 {
		motif = keywords[index%len(keywords)]
	}
	return fmt.Sprintf("%s, %s, %s, motif %s, premium composition", anchor, section, intensity, motif)
}

func sectionAt(sections []Section, t float64) string {
	for _, s := range sections {
		if s.Start <= t && t < s.End {
			return s.Label
		}
	}
	return defaultSection
}

// energyAt returns the last sample at or before t. Times before the first
// sample take the first sample's value.
func energyAt(curve []EnergyPoint, t float64) float64 {
	if len(curve) == 0 {
		return defaultEnergy
	}
	latest := curve[0].Energy
	for _, p := range curve {
		if t < p.Time {
			break
		}
		latest = p.Energy
	}
	return latest
}
