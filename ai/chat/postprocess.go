package chat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tunglt-picon/dentalsense/ai/prompts"
)

// Source is one citation extracted back out of the rendered search text.
type Source struct {
	Title string
	URL   string
}

// extractSources parses {title, url} pairs from the delimited search blob
// by scanning each block for its labeled lines. Entries are deduplicated
// by URL, first occurrence wins.
func extractSources(searchText string) []Source {
	var sources []Source
	seen := make(map[string]bool)

	for _, block := range strings.Split(searchText, "\n---\n") {
		var title, link string
		for _, line := range strings.Split(block, "\n") {
			if after, ok := strings.CutPrefix(line, "Title: "); ok {
				title = strings.TrimSpace(after)
			} else if after, ok := strings.CutPrefix(line, "Link: "); ok {
				link = strings.TrimSpace(after)
			}
		}
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		sources = append(sources, Source{Title: title, URL: link})
	}
	return sources
}

var (
	collapseNewlines = regexp.MustCompile(`\n{3,}`)
	// A sentence ending on one line followed by a capitalized word on the
	// next starts a new paragraph.
	sentenceBreak = regexp.MustCompile(`([.!?])\n(\p{Lu})`)
	// List items separated by a single newline become separate paragraphs.
	listItemBreak = regexp.MustCompile(`([^\n])\n([-*•] |\d+[.)] )`)
	// Bolded lead-ins start their own paragraph.
	boldLeadBreak = regexp.MustCompile(`([^\n])\n(\*\*[^\n]+)`)
)

// formatAnswer normalizes the raw model output into double-newline
// delimited paragraphs. The model is instructed to do this itself but is
// an unreliable narrator, so the formatting is enforced mechanically.
func formatAnswer(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)

	text = collapseNewlines.ReplaceAllString(text, "\n\n")
	text = sentenceBreak.ReplaceAllString(text, "$1\n\n$2")
	text = listItemBreak.ReplaceAllString(text, "$1\n\n$2")
	text = boldLeadBreak.ReplaceAllString(text, "$1\n\n$2")

	// Break insertion may have stacked newlines next to existing ones.
	return collapseNewlines.ReplaceAllString(text, "\n\n")
}

var markdownTitleEscaper = strings.NewReplacer(
	`[`, `\[`,
	`]`, `\]`,
	`(`, `\(`,
	`)`, `\)`,
)

// appendSources attaches the localized citation section. A turn without
// extractable sources returns the answer unchanged.
func appendSources(answer string, sources []Source, lang string) string {
	if len(sources) == 0 {
		return answer
	}

	var sb strings.Builder
	sb.WriteString(answer)
	sb.WriteString("\n\n")
	sb.WriteString(prompts.SourcesHeader(lang))
	sb.WriteString(":\n")
	for i, src := range sources {
		title := markdownTitleEscaper.Replace(src.Title)
		if title == "" {
			title = src.URL
		}
		sb.WriteString(fmt.Sprintf("%d. [%s](%s)\n", i+1, title, src.URL))
	}
	return strings.TrimRight(sb.String(), "\n")
}
