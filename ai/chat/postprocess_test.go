package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tunglt-picon/dentalsense/ai/prompts"
)

func TestExtractSources(t *testing.T) {
	searchText := "Title: Tooth decay\nContent: Causes and treatment.\nLink: http://example.com/a\n" +
		"\n---\n" +
		"Title: Gum disease\nContent: Gingivitis basics.\nLink: http://example.com/b\n"

	sources := extractSources(searchText)
	assert.Equal(t, []Source{
		{Title: "Tooth decay", URL: "http://example.com/a"},
		{Title: "Gum disease", URL: "http://example.com/b"},
	}, sources)
}

func TestExtractSourcesDeduplicatesByURL(t *testing.T) {
	searchText := "Title: First\nContent: x\nLink: http://example.com/a\n" +
		"\n---\n" +
		"Title: Duplicate\nContent: y\nLink: http://example.com/a\n"

	sources := extractSources(searchText)
	assert.Len(t, sources, 1)
	assert.Equal(t, "First", sources[0].Title)
}

func TestExtractSourcesNoLinks(t *testing.T) {
	assert.Empty(t, extractSources("No results found for query: xyz"))
}

func TestFormatAnswer(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "collapses runs of newlines",
			in:   "First paragraph.\n\n\n\nSecond paragraph.",
			want: "First paragraph.\n\nSecond paragraph.",
		},
		{
			name: "sentence break across single newline",
			in:   "Cavities hurt.\nBrush twice a day.",
			want: "Cavities hurt.\n\nBrush twice a day.",
		},
		{
			name: "list items get separated",
			in:   "Causes:\n- sugar\n- plaque",
			want: "Causes:\n\n- sugar\n\n- plaque",
		},
		{
			name: "bold lead-in starts a paragraph",
			in:   "Overview first.\n**Prevention** matters most.",
			want: "Overview first.\n\n**Prevention** matters most.",
		},
		{
			name: "already well formatted is unchanged",
			in:   "One idea.\n\nAnother idea.",
			want: "One idea.\n\nAnother idea.",
		},
		{
			name: "trims surrounding whitespace",
			in:   "  answer  \n",
			want: "answer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatAnswer(tt.in))
		})
	}
}

func TestAppendSources(t *testing.T) {
	out := appendSources("Answer body.", []Source{
		{Title: "Tooth decay", URL: "http://example.com/a"},
		{Title: "Gum care", URL: "http://example.com/b"},
	}, prompts.LangVI)

	assert.Equal(t, "Answer body.\n\nNguồn tham khảo:\n1. [Tooth decay](http://example.com/a)\n2. [Gum care](http://example.com/b)", out)
}

func TestAppendSourcesEnglishHeader(t *testing.T) {
	out := appendSources("Answer.", []Source{{Title: "T", URL: "http://example.com"}}, prompts.LangEN)
	assert.Contains(t, out, "Sources:\n1. [T](http://example.com)")
}

func TestAppendSourcesEscapesMarkdown(t *testing.T) {
	out := appendSources("Answer.", []Source{
		{Title: "Decay [guide] (2026)", URL: "http://example.com"},
	}, prompts.LangEN)
	assert.Contains(t, out, `[Decay \[guide\] \(2026\)](http://example.com)`)
}

func TestAppendSourcesEmptyTitleFallsBackToURL(t *testing.T) {
	out := appendSources("Answer.", []Source{{URL: "http://example.com"}}, prompts.LangEN)
	assert.Contains(t, out, "[http://example.com](http://example.com)")
}

func TestAppendSourcesNoSources(t *testing.T) {
	assert.Equal(t, "Answer.", appendSources("Answer.", nil, prompts.LangVI))
}
