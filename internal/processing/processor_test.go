package processing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/smart-portfolio/backend/internal/processing"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "punctuation", input: "Sensex up 500 pts!!!  Nifty at 22,000", want: "Sensex up 500 pts Nifty at 22 000"},
		{name: "html entities", input: "M&amp;M shares rally", want: "M M shares rally"},
		{name: "collapse whitespace", input: "foo\n\nbar\t baz", want: "foo bar baz"},
		{name: "remove urls", input: "Read https://example.com/story now", want: "Read now"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.CleanText(tt.input))
		})
	}
}

func TestExtractKeywords(t *testing.T) {
	text := "Infosys shares rally as Infosys beats estimates; TCS, Infosys lead IT rally"
	got := processing.ExtractKeywords(text, 3, 3)
	require.Equal(t, []string{"infosys", "rally", "beats"}, got)

	require.Nil(t, processing.ExtractKeywords("", 5, 3))
	require.Nil(t, processing.ExtractKeywords("the market and the stocks", 5, 3))
}

func TestExtractKeywordsMinLength(t *testing.T) {
	got := processing.ExtractKeywords("RBI hikes repo rate by 25 bps", 10, 4)
	require.ElementsMatch(t, []string{"hikes", "repo", "rate"}, got)
}

func TestBuildDocumentID(t *testing.T) {
	id1 := processing.BuildDocumentID("https://www.moneycontrol.com/news/a.html")
	id2 := processing.BuildDocumentID(" https://www.moneycontrol.com/news/a.html/ ")
	id3 := processing.BuildDocumentID("https://www.moneycontrol.com/news/b.html")

	require.Len(t, id1, 40)
	require.Equal(t, id1, id2)
	require.NotEqual(t, id1, id3)
	require.Empty(t, processing.BuildDocumentID("  "))
}
