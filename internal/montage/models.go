package montage

// Mode selects the rendering fidelity of a job.
type Mode string

const (
	// ModeFast renders quickly at lower fidelity with longer segments.
	ModeFast Mode = "fast"
	// ModeHigh renders at full fidelity and is gated by plan tier.
	ModeHigh Mode = "high"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m == ModeFast || m == ModeHigh
}

// Transition is the cut style used when entering an item.
type Transition string

const (
	TransitionCut       Transition = "cut"
	TransitionCrossfade Transition = "crossfade"
)

// Flip returns the other allowed transition.
func (t Transition) Flip() Transition {
	if t == TransitionCut {
		return TransitionCrossfade
	}
	return TransitionCut
}

// Section is a labelled interval of the audio track, e.g. "chorus".
type Section struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Label string  `json:"label"`
}

// EnergyPoint is one sample of the track's energy curve.
type EnergyPoint struct {
	Time   float64 `json:"time"`
	Energy float64 `json:"energy"`
}

// Audio is the result of analysing an audio track.
type Audio struct {
	Duration    float64       `json:"duration"`
	BPM         int           `json:"bpm"`
	Sections    []Section     `json:"sections"`
	EnergyCurve []EnergyPoint `json:"energy_curve"`
	Mode        Mode          `json:"mode"`
}

// Lyrics is a summary of the lyric text supplied with a job.
type Lyrics struct {
	Keywords  []string `json:"keywords"`
	Sentiment string   `json:"sentiment"`
	Themes    []string `json:"themes"`
}

// Segment is a planned time interval of the timeline with its creative target.
type Segment struct {
	Index        int      `json:"index"`
	Start        float64  `json:"start"`
	End          float64  `json:"end"`
	Duration     float64  `json:"duration"`
	SectionLabel string   `json:"section_label"`
	Energy       float64  `json:"energy"`
	Prompt       string   `json:"prompt"`
	Keywords     []string `json:"keywords"`
}

// WithPrompt returns a copy of s carrying prompt. The keyword slice is copied
// so the two values share no state.
func (s Segment) WithPrompt(prompt string) Segment {
	out := s
	out.Prompt = prompt
	out.Keywords = append([]string(nil), s.Keywords...)
	return out
}

// Clip is generated media satisfying one segment. Clips are never mutated;
// a repair produces a new Clip for the same index.
type Clip struct {
	SegmentIndex int     `json:"segment_index"`
	MediaPath    string  `json:"media_path"`
	Prompt       string  `json:"prompt"`
	Duration     float64 `json:"duration"`
	Seed         int     `json:"seed"`
	Provider     string  `json:"provider"`
	// VisualHash is an opaque fingerprint; equal hashes mean visually
	// indistinguishable clips.
	VisualHash string `json:"visual_hash"`
}

// Item pairs a segment with the clip generated for it.
type Item struct {
	Segment    Segment    `json:"segment"`
	Clip       Clip       `json:"clip"`
	Transition Transition `json:"transition"`
}

// Plan is the ordered segment plan produced by PlanTimeline.
type Plan struct {
	Segments    []Segment `json:"segments"`
	StyleAnchor string    `json:"style_anchor"`
	Mode        Mode      `json:"mode"`
}
