package guardrail

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"

	"github.com/tunglt-picon/dentalsense/ai/prompts"
)

var (
	detector     lingua.LanguageDetector
	detectorOnce sync.Once
)

// getDetector returns a singleton detector restricted to the supported
// language set for better accuracy and startup cost.
func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(
				lingua.Vietnamese,
				lingua.English,
			).
			WithMinimumRelativeDistance(0.25).
			Build()
	})
	return detector
}

// vietnameseDiacritics covers the Vietnamese-specific letters that never
// occur in English text. Used as the last detection resort.
const vietnameseDiacritics = "àáạảãâầấậẩẫăằắặẳẵèéẹẻẽêềếệểễìíịỉĩòóọỏõôồốộổỗơờớợởỡùúụủũưừứựửữỳýỵỷỹđ"

// heuristicLanguage resolves a language tag without any model call:
// statistical detection first, then a diacritic scan, then the fixed
// fallback.
func heuristicLanguage(text string) string {
	text = strings.TrimSpace(text)
	if len(text) >= 3 {
		if language, ok := getDetector().DetectLanguageOf(text); ok {
			switch language {
			case lingua.Vietnamese:
				return prompts.LangVI
			case lingua.English:
				return prompts.LangEN
			}
		}
	}

	lower := strings.ToLower(text)
	if strings.ContainsAny(lower, vietnameseDiacritics) {
		return prompts.LangVI
	}
	if text != "" && isASCII(text) {
		return prompts.LangEN
	}

	return prompts.LangVI
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}

// parseLanguageReply extracts a recognized language tag from the first
// token of a model reply. Returns "" when the reply is ambiguous.
func parseLanguageReply(reply string) string {
	fields := strings.Fields(strings.TrimSpace(reply))
	if len(fields) == 0 {
		return ""
	}
	token := strings.ToLower(strings.Trim(fields[0], `"'.,:`))
	switch token {
	case prompts.LangVI:
		return prompts.LangVI
	case prompts.LangEN:
		return prompts.LangEN
	}
	return ""
}
