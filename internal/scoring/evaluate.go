package scoring

import (
	"math"
	"strings"

	"montage-orchestrator/internal/montage"
)

const (
	relevanceKeywords     = 4
	noKeywordsRelevance   = 78
	continuityBase        = 96
	continuityPerJolt     = 8
	continuityFloor       = 55
	joltEnergyDelta       = 0.4
	abruptEnergyDelta     = 0.35
	offBeatTolerance      = 1.2
	technicalOK           = 96
	technicalMissingMedia = 35
	technicalNoDuration   = 30
)

// Evaluate scores t and detects its issues in a single pass. It never
// modifies t.
func Evaluate(t montage.Timeline, ctx Context) ScoreCard {
	items := t.Items()
	card := ScoreCard{
		Relevance:  relevanceScore(items, ctx),
		Continuity: continuityScore(items),
		Variety:    varietyScore(items),
		Pacing:     pacingScore(items, ctx),
		Technical:  technicalScore(items, t.Duration(), ctx),
	}
	card.Total = (card.Relevance + card.Continuity + card.Variety + card.Pacing + card.Technical) / 5
	card.Issues = detectIssues(items, ctx)
	return card
}

// BeatChunk is the ideal beat-aligned segment length: one bar of four beats.
func BeatChunk(bpm int) float64 {
	return (60.0 / float64(bpm)) * 4
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// mentionsKeyword reports whether prompt contains one of the leading keywords,
// ignoring case.
func mentionsKeyword(prompt string, keywords []string) bool {
	if len(keywords) > relevanceKeywords {
		keywords = keywords[:relevanceKeywords]
	}
	p := strings.ToLower(prompt)
	for _, k := range keywords {
		if strings.Contains(p, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

func relevanceScore(items []montage.Item, ctx Context) int {
	keywords := ctx.Lyrics.Keywords
	if len(keywords) == 0 {
		return noKeywordsRelevance
	}
	hits := 0
	for _, it := range items {
		if mentionsKeyword(it.Segment.Prompt, keywords) {
			hits++
		}
	}
	fraction := float64(hits) / float64(max(1, len(items)))
	return clamp(int(55+fraction*45), 50, 100)
}

func continuityScore(items []montage.Item) int {
	if len(items) == 0 {
		return 0
	}
	jolts := 0
	for i := 1; i < len(items); i++ {
		prev, curr := items[i-1], items[i]
		if prev.Transition == montage.TransitionCut && math.Abs(prev.Segment.Energy-curr.Segment.Energy) > joltEnergyDelta {
			jolts++
		}
	}
	return max(continuityFloor, continuityBase-jolts*continuityPerJolt)
}

func varietyScore(items []montage.Item) int {
	if len(items) == 0 {
		return 0
	}
	unique := make(map[string]struct{}, len(items))
	for _, it := range items {
		unique[it.Clip.VisualHash] = struct{}{}
	}
	ratio := float64(len(unique)) / float64(len(items))
	return clamp(int(40+ratio*60), 45, 100)
}

func pacingScore(items []montage.Item, ctx Context) int {
	if len(items) == 0 {
		return 0
	}
	target := BeatChunk(ctx.bpm())
	dev := 0.0
	for _, it := range items {
		dev += math.Abs(it.Segment.Duration-target) / target
	}
	avg := dev / float64(len(items))
	return clamp(int(100-avg*75), 55, 100)
}

func technicalScore(items []montage.Item, duration float64, ctx Context) int {
	if len(items) == 0 {
		return 0
	}
	for _, it := range items {
		if !ctx.mediaExists(it.Clip.MediaPath) {
			return technicalMissingMedia
		}
	}
	if duration <= 0 {
		return technicalNoDuration
	}
	return technicalOK
}

func detectIssues(items []montage.Item, ctx Context) []Issue {
	var issues []Issue
	seen := make(map[string]int, len(items))
	keywords := ctx.Lyrics.Keywords
	beat := BeatChunk(ctx.bpm())

	for idx, it := range items {
		if _, ok := seen[it.Clip.VisualHash]; ok {
			issues = append(issues, Issue{SegmentIndex: idx, Reason: ReasonRepetition, Severity: SeverityMedium})
		}
		seen[it.Clip.VisualHash] = idx

		if len(keywords) > 0 && !mentionsKeyword(it.Segment.Prompt, keywords) {
			issues = append(issues, Issue{SegmentIndex: idx, Reason: ReasonLowRelevance, Severity: SeverityHigh})
		}

		if math.Abs(it.Segment.Duration-beat) > offBeatTolerance {
			issues = append(issues, Issue{SegmentIndex: idx, Reason: ReasonOffBeat, Severity: SeverityMedium})
		}

		if idx > 0 {
			prev := items[idx-1]
			if prev.Transition == montage.TransitionCut && it.Transition == montage.TransitionCut &&
				math.Abs(it.Segment.Energy-prev.Segment.Energy) > abruptEnergyDelta {
				issues = append(issues, Issue{SegmentIndex: idx, Reason: ReasonAbruptTransition, Severity: SeverityMedium})
			}
		}
	}
	return issues
}
