// Package scoring evaluates a montage timeline against the track it is cut to.
package scoring

import (
	"os"

	"montage-orchestrator/internal/montage"
)

// Reason classifies a detected defect.
type Reason string

const (
	ReasonRepetition       Reason = "repetition"
	ReasonLowRelevance     Reason = "low_relevance"
	ReasonOffBeat          Reason = "off_beat"
	ReasonAbruptTransition Reason = "abrupt_transition"
	// ReasonOffStyle is accepted by repair planning but Evaluate never emits it.
	ReasonOffStyle Reason = "off_style"
)

// Severity grades an Issue.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Issue is a defect found at one segment of a timeline.
type Issue struct {
	SegmentIndex int      `json:"segment_index"`
	Reason       Reason   `json:"reason"`
	Severity     Severity `json:"severity"`
}

// ScoreCard is the evaluation of one timeline. All scores are integers;
// Total is the floor of the mean of the five sub-scores.
type ScoreCard struct {
	Iteration  int     `json:"iteration"`
	Total      int     `json:"total"`
	Relevance  int     `json:"relevance"`
	Continuity int     `json:"continuity"`
	Variety    int     `json:"variety"`
	Pacing     int     `json:"pacing"`
	Technical  int     `json:"technical"`
	Issues     []Issue `json:"issues"`
}

// HasIssues reports whether any defect was detected.
func (s ScoreCard) HasIssues() bool {
	return len(s.Issues) > 0
}

// Context is everything besides the timeline that scoring looks at.
type Context struct {
	Audio  montage.Audio
	Lyrics montage.Lyrics
	// MediaExists resolves a clip's media path. Nil means FileExists.
	MediaExists func(path string) bool
}

func (c Context) mediaExists(path string) bool {
	if c.MediaExists != nil {
		return c.MediaExists(path)
	}
	return FileExists(path)
}

// bpm falls back to 120 when the analysis carries no usable tempo.
func (c Context) bpm() int {
	if c.Audio.BPM <= 0 {
		return 120
	}
	return c.Audio.BPM
}

// FileExists reports whether path names an existing file.
func FileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
