package guardrail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tunglt-picon/dentalsense/ai/core/llm"
	"github.com/tunglt-picon/dentalsense/ai/prompts"
)

// fakeGenerator replays canned replies or errors per call.
type fakeGenerator struct {
	replies []string
	errs    []error
	calls   int
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, _ llm.Tier, _ int) (string, *llm.CallStats, error) {
	f.prompts = append(f.prompts, prompt)
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var reply string
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	return reply, &llm.CallStats{}, err
}

func TestClassifyInDomain(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"YES"}}
	g := New(gen)

	v := g.Classify(context.Background(), "How do I treat a cavity?", prompts.LangEN)
	assert.True(t, v.InDomain)
	assert.Equal(t, prompts.LangEN, v.Language)
	// Known language skips the detection call.
	assert.Equal(t, 1, gen.calls)
}

func TestClassifyOutOfDomain(t *testing.T) {
	g := New(&fakeGenerator{replies: []string{"NO"}})

	v := g.Classify(context.Background(), "What's the weather today?", prompts.LangEN)
	assert.False(t, v.InDomain)
}

func TestClassifyLocalizedTokens(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		inDomain bool
	}{
		{"vietnamese affirmative", "CÓ", true},
		{"vietnamese negative", "KHÔNG", false},
		{"lowercase yes with punctuation", "yes.", true},
		{"reply with trailing explanation", "NO\nThe question is about weather.", false},
		{"affirmative wins a hedged reply", "YES or NO depending on context", true},
		{"affirmative with trailing note", "YES. Note: strictly dental.", true},
		{"NOTE is not a negative token", "NOTE: unclear", false},
		{"KNOW is not a negative token", "I don't know", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(&fakeGenerator{replies: []string{tt.reply}})
			v := g.Classify(context.Background(), "q", prompts.LangVI)
			assert.Equal(t, tt.inDomain, v.InDomain)
		})
	}
}

func TestClassifyFailsClosed(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"model error", &fakeGenerator{errs: []error{errors.New("backend down")}}},
		{"empty reply", &fakeGenerator{replies: []string{""}}},
		{"unrecognized reply", &fakeGenerator{replies: []string{"MAYBE"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(tt.gen)
			v := g.Classify(context.Background(), "anything", prompts.LangEN)
			assert.False(t, v.InDomain, "ambiguity must never grant access")
			assert.Equal(t, prompts.LangEN, v.Language)
		})
	}
}

func TestDetectLanguageFromModel(t *testing.T) {
	gen := &fakeGenerator{replies: []string{`"vi"`}}
	g := New(gen)

	assert.Equal(t, prompts.LangVI, g.DetectLanguage(context.Background(), "Tôi bị sâu răng"))
}

func TestDetectLanguageRetriesOnce(t *testing.T) {
	gen := &fakeGenerator{
		replies: []string{"", "en"},
		errs:    []error{errors.New("timeout"), nil},
	}
	g := New(gen)

	assert.Equal(t, prompts.LangEN, g.DetectLanguage(context.Background(), "My tooth hurts"))
	assert.Equal(t, 2, gen.calls)
}

func TestDetectLanguageHeuristicFallback(t *testing.T) {
	err := errors.New("backend down")
	gen := &fakeGenerator{errs: []error{err, err}}
	g := New(gen)

	// Vietnamese diacritics resolve without the model.
	assert.Equal(t, prompts.LangVI, g.DetectLanguage(context.Background(), "Tôi bị sâu răng phải làm sao?"))

	gen2 := &fakeGenerator{errs: []error{err, err}}
	g2 := New(gen2)
	assert.Equal(t, prompts.LangEN, g2.DetectLanguage(context.Background(), "My tooth hurts when I chew."))
}

func TestHeuristicLanguage(t *testing.T) {
	assert.Equal(t, prompts.LangVI, heuristicLanguage("Răng của tôi bị đau quá"))
	assert.Equal(t, prompts.LangEN, heuristicLanguage("How often should I floss my teeth?"))
	// Too short for statistical detection, no diacritics, pure ASCII.
	assert.Equal(t, prompts.LangEN, heuristicLanguage("ok"))
	assert.Equal(t, prompts.LangVI, heuristicLanguage(""))
}

func TestGuardrailUsesLightTierOnly(t *testing.T) {
	tierSpy := &tierRecorder{}
	g := New(tierSpy)

	g.Classify(context.Background(), "Do implants hurt?", "")
	for _, tier := range tierSpy.tiers {
		assert.Equal(t, llm.TierLight, tier)
	}
}

type tierRecorder struct {
	tiers []llm.Tier
}

func (r *tierRecorder) Generate(_ context.Context, _ string, tier llm.Tier, _ int) (string, *llm.CallStats, error) {
	r.tiers = append(r.tiers, tier)
	return "en", &llm.CallStats{}, nil
}
