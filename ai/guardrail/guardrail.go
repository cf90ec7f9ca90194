// Package guardrail gates incoming questions on topical admission before any
// retrieval or generation cost is incurred. Decisions are fail-closed: an
// ambiguous or erroring classification rejects the question.
package guardrail

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/tunglt-picon/dentalsense/ai/core/llm"
	"github.com/tunglt-picon/dentalsense/ai/prompts"
)

// Generator is the light-tier text generation capability the guardrail
// needs. Satisfied by llm.Service.
type Generator interface {
	Generate(ctx context.Context, prompt string, tier llm.Tier, maxTokens int) (string, *llm.CallStats, error)
}

// Verdict is the ephemeral result of a classification. Not persisted.
type Verdict struct {
	InDomain bool
	Language string
}

// Guardrail classifies whether a question belongs to the dental domain and
// resolves the question's language. It only ever uses the light model tier
// and never touches conversation memory.
type Guardrail struct {
	generator Generator
}

// New creates a Guardrail backed by the given generator.
func New(generator Generator) *Guardrail {
	return &Guardrail{generator: generator}
}

// Classification replies are one word; a small cap keeps latency down.
const classifyMaxTokens = 16

// Classify resolves the question's language and decides domain admission.
// knownLang, when non-empty, skips detection. The method never returns an
// error: model failures and unparseable replies yield an out-of-domain
// verdict with a best-effort language.
func (g *Guardrail) Classify(ctx context.Context, question, knownLang string) Verdict {
	lang := g.resolveLanguage(ctx, question, knownLang)

	reply, _, err := g.generator.Generate(ctx, prompts.Guardrail(question, lang), llm.TierLight, classifyMaxTokens)
	if err != nil {
		slog.Warn("guardrail: classification call failed, rejecting", "error", err)
		return Verdict{InDomain: false, Language: lang}
	}

	inDomain, ok := parseVerdictReply(reply)
	if !ok {
		slog.Warn("guardrail: unclear classification reply, rejecting",
			"reply", strings.TrimSpace(reply),
		)
		return Verdict{InDomain: false, Language: lang}
	}

	return Verdict{InDomain: inDomain, Language: lang}
}

// DetectLanguage resolves the language tag for a text using the light tier,
// falling back to statistical/diacritic heuristics when the model call
// fails or replies ambiguously.
func (g *Guardrail) DetectLanguage(ctx context.Context, text string) string {
	reply, _, err := g.generator.Generate(ctx, prompts.LanguageDetection(text), llm.TierLight, classifyMaxTokens)
	if err != nil {
		// One retry before giving up on the model.
		reply, _, err = g.generator.Generate(ctx, prompts.LanguageDetection(text), llm.TierLight, classifyMaxTokens)
	}
	if err != nil {
		slog.Warn("guardrail: language detection call failed, using heuristic", "error", err)
		return heuristicLanguage(text)
	}

	if lang := parseLanguageReply(reply); lang != "" {
		return lang
	}

	slog.Debug("guardrail: ambiguous language reply, using heuristic",
		"reply", strings.TrimSpace(reply),
	)
	return heuristicLanguage(text)
}

func (g *Guardrail) resolveLanguage(ctx context.Context, question, knownLang string) string {
	if knownLang != "" {
		return prompts.Normalize(knownLang)
	}
	return g.DetectLanguage(ctx, question)
}

// Affirmative and negative tokens accepted from the classification model.
// Models are unreliable narrators: replies may carry punctuation, casing
// noise, or a localized token instead of the requested literal.
var (
	affirmativeTokens = []string{"YES", "CÓ"}
	negativeTokens    = []string{"NO", "KHÔNG"}
)

// parseVerdictReply interprets the first line of a classification reply.
// Tokens are matched as whole words so "NOTE" or "KNOW" never registers as
// "NO". An affirmative token wins when the model hedges with both; replies
// carrying neither return ok=false.
func parseVerdictReply(reply string) (inDomain bool, ok bool) {
	firstLine := reply
	if idx := strings.IndexByte(reply, '\n'); idx >= 0 {
		firstLine = reply[:idx]
	}
	words := strings.FieldsFunc(strings.ToUpper(strings.TrimSpace(firstLine)), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	for _, word := range words {
		for _, tok := range affirmativeTokens {
			if word == tok {
				return true, true
			}
		}
	}
	for _, word := range words {
		for _, tok := range negativeTokens {
			if word == tok {
				return false, true
			}
		}
	}
	return false, false
}
