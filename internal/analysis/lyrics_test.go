package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeLyrics(t *testing.T) {
	tests := []struct {
		name string
		text string
		want struct {
			keywords  []string
			sentiment string
			themes    []string
		}
	}{
		{
			name: "blank",
			text: "  \n\t",
		},
		{
			name: "uplifting",
			text: "Rise rise up, the light will shine; we rise and shine tonight, light!",
		},
		{
			name: "reflective",
			text: "Walking alone through the quiet streets",
		},
	}
	tests[0].want.keywords, tests[0].want.sentiment, tests[0].want.themes = []string{}, "neutral", []string{}
	tests[1].want.keywords = []string{"rise", "light", "shine", "will", "tonight"}
	tests[1].want.sentiment = "uplifting"
	tests[1].want.themes = []string{"rise", "light", "shine"}
	tests[2].want.keywords = []string{"walking", "alone", "through", "quiet", "streets"}
	tests[2].want.sentiment = "reflective"
	tests[2].want.themes = []string{"walking", "alone", "through"}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := KeywordSummarizer{}.Summarize(tt.text)
			assert.Equal(t, tt.want.keywords, got.Keywords)
			assert.Equal(t, tt.want.sentiment, got.Sentiment)
			assert.Equal(t, tt.want.themes, got.Themes)
		})
	}
}

func TestExtractKeywords_limit_and_filters(t *testing.T) {
	text := "one two three four five six seven eight nine ten eleven twelve the and it"
	got := ExtractKeywords(text, 8)
	assert.Equal(t, []string{"one", "two", "three", "four", "five", "six", "seven", "eight"}, got)

	assert.Equal(t, []string{}, ExtractKeywords("a an to of", 8))
	assert.Equal(t, []string{"don't"}, ExtractKeywords("Don't DON'T", 8), "apostrophes stay inside words")
}
