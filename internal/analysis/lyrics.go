package analysis

import (
	"regexp"
	"sort"
	"strings"

	"montage-orchestrator/internal/montage"
)

const (
	keywordLimit = 8
	themeCount   = 3
)

var (
	wordPattern = regexp.MustCompile(`[a-z']+`)

	stopwords = map[string]struct{}{
		"the": {}, "and": {}, "to": {}, "a": {}, "of": {}, "in": {}, "on": {},
		"it": {}, "is": {}, "for": {}, "with": {}, "that": {}, "this": {},
		"you": {}, "i": {}, "me": {}, "my": {}, "we": {}, "our": {},
	}

	upliftingWords = []string{"love", "rise", "shine", "alive"}
)

// LyricsSummarizer turns raw lyric text into planning features.
type LyricsSummarizer interface {
	Summarize(text string) montage.Lyrics
}

// KeywordSummarizer summarizes lyrics by word frequency.
type KeywordSummarizer struct{}

// Summarize implements LyricsSummarizer.
func (KeywordSummarizer) Summarize(text string) montage.Lyrics {
	return SummarizeLyrics(text)
}

// SummarizeLyrics returns the most frequent keywords, a coarse sentiment and
// the leading themes of text. Blank text is neutral with no keywords.
func SummarizeLyrics(text string) montage.Lyrics {
	if strings.TrimSpace(text) == "" {
		return montage.Lyrics{Keywords: []string{}, Sentiment: "neutral", Themes: []string{}}
	}
	keywords := ExtractKeywords(text, keywordLimit)
	lower := strings.ToLower(text)
	sentiment := "reflective"
	for _, w := range upliftingWords {
		if strings.Contains(lower, w) {
			sentiment = "uplifting"
			break
		}
	}
	themes := append([]string{}, keywords[:min(themeCount, len(keywords))]...)
	return montage.Lyrics{Keywords: keywords, Sentiment: sentiment, Themes: themes}
}

// ExtractKeywords returns up to limit words of more than two letters that are
// not stopwords, most frequent first. Ties keep first-appearance order.
func ExtractKeywords(text string, limit int) []string {
	counts := make(map[string]int)
	var order []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopwords[w]; stop || len(w) <= 2 {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	if order == nil {
		return []string{}
	}
	return order
}
