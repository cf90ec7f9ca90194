package prompts

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"vi", LangVI},
		{"en", LangEN},
		{"EN", LangEN},
		{" en ", LangEN},
		{"fr", LangVI},
		{"", LangVI},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestChatResponseOmitsEmptyContext(t *testing.T) {
	prompt := ChatResponse("Sâu răng là gì?", "results", "", LangVI)
	if strings.Contains(prompt, "Ngữ cảnh cuộc trò chuyện") {
		t.Error("empty summary must not produce a context framing section")
	}
	if !strings.Contains(prompt, "Sâu răng là gì?") || !strings.Contains(prompt, "results") {
		t.Error("prompt must carry the question and search results")
	}
}

func TestChatResponseIncludesSummary(t *testing.T) {
	prompt := ChatResponse("question", "results", "patient asked about cavities", LangEN)
	if !strings.Contains(prompt, "Previous conversation context:") {
		t.Error("expected English context framing")
	}
	if !strings.Contains(prompt, "patient asked about cavities") {
		t.Error("expected summary text in prompt")
	}
}

func TestLocalizedSelection(t *testing.T) {
	if !strings.Contains(Guardrail("q", LangVI), "NHA KHOA") {
		t.Error("expected Vietnamese guardrail prompt")
	}
	if !strings.Contains(Guardrail("q", LangEN), "DENTISTRY") {
		t.Error("expected English guardrail prompt")
	}
	if Rejection(LangVI) != RejectionVI || Rejection(LangEN) != RejectionEN {
		t.Error("rejection templates must be returned verbatim")
	}
	if SourcesHeader("de") != SourcesHeaderVI {
		t.Error("unknown language must fall back to the Vietnamese header")
	}
}
