package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tunglt-picon/dentalsense/ai/core/llm"
	"github.com/tunglt-picon/dentalsense/ai/prompts"
)

// scheduleSummarization runs the rolling-summary update for a completed
// turn in a detached goroutine. The caller-visible result never depends on
// this work: failures are logged and swallowed, leaving the summary at its
// prior value.
//
// priorSummary is the value loaded earlier in the same turn. Re-reading
// here would not close the race with a concurrent turn's write and the
// summary is advisory context, so the stale read is accepted.
func (s *Service) scheduleSummarization(convID, question, answer, priorSummary, lang string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("chat: summarization panic", "conversation_id", convID, "panic", r)
				s.recorder.RecordSummarizationFailure()
			}
		}()

		// Detached from the request context: the reply has already been
		// sent when this runs.
		ctx, cancel := context.WithTimeout(context.Background(), s.summaryTimeout)
		defer cancel()

		if err := s.summaryGate.Acquire(ctx, 1); err != nil {
			slog.Warn("chat: summarization skipped, gate acquire failed",
				"conversation_id", convID,
				"error", err,
			)
			s.recorder.RecordSummarizationFailure()
			return
		}
		defer s.summaryGate.Release(1)

		if err := s.summarizeTurn(ctx, convID, question, answer, priorSummary, lang); err != nil {
			slog.Warn("chat: summarization failed, summary left stale",
				"conversation_id", convID,
				"error", err,
			)
			s.recorder.RecordSummarizationFailure()
		}
	}()
}

// summarizeTurn digests one question/answer pair with the light tier and
// appends the segment to the rolling summary.
func (s *Service) summarizeTurn(ctx context.Context, convID, question, answer, priorSummary, lang string) error {
	prompt := prompts.SummarizeTurn(question, answer, lang)

	segment, stats, err := s.generator.Generate(ctx, prompt, llm.TierLight, s.summaryMaxTokens)
	if err != nil {
		return err
	}
	if stats != nil {
		s.recorder.RecordTokens(string(llm.TierLight), stats.PromptTokens, stats.CompletionTokens)
	}

	segment = strings.TrimSpace(segment)
	if segment == "" {
		slog.Debug("chat: empty summary segment, skipping write", "conversation_id", convID)
		return nil
	}

	updated := segment
	if priorSummary != "" {
		updated = priorSummary + "\n\n" + segment
	}
	s.memory.SetSummary(convID, updated)

	slog.Debug("chat: rolling summary updated",
		"conversation_id", convID,
		"summary_length", len(updated),
	)
	return nil
}
