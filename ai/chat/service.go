// Package chat implements the per-turn orchestration of the dental
// assistant: guardrail, memory lookup, web retrieval, grounded generation,
// persistence, and the detached rolling-summary update.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tunglt-picon/dentalsense/ai/core/llm"
	"github.com/tunglt-picon/dentalsense/ai/guardrail"
	"github.com/tunglt-picon/dentalsense/ai/metrics"
	"github.com/tunglt-picon/dentalsense/ai/prompts"
	"github.com/tunglt-picon/dentalsense/ai/search"
	"github.com/tunglt-picon/dentalsense/store"
)

// ChatMessage is one inbound OpenAI-format message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnRequest carries one inbound chat turn.
type TurnRequest struct {
	Messages       []ChatMessage
	Model          string
	ConversationID string
}

// TurnResult is the outcome of a successfully handled turn. Rejected marks
// a guardrail rejection, which is success-shaped: the Answer then holds the
// localized rejection template and nothing was persisted.
type TurnResult struct {
	Answer         string
	ConversationID string
	Rejected       bool
}

// Generator is the text generation capability. Satisfied by llm.Service.
type Generator interface {
	Generate(ctx context.Context, prompt string, tier llm.Tier, maxTokens int) (string, *llm.CallStats, error)
}

// Gate is the topical admission gate. Satisfied by guardrail.Guardrail.
type Gate interface {
	Classify(ctx context.Context, question, knownLang string) guardrail.Verdict
}

// ToolResolver maps an inbound model tag to its retrieval backend.
// Satisfied by search.Registry.
type ToolResolver interface {
	ForModel(model string) (search.Tool, error)
}

// Memory is the conversation state the orchestrator needs. Satisfied by
// store.ConversationStore.
type Memory interface {
	GetOrCreate(id string) string
	AddTurn(id, question, answer string)
	GetSummary(id string) string
	SetSummary(id, summary string)
}

// Config tunes the orchestrator.
type Config struct {
	// SummaryMaxTokens caps the light-tier summarization output.
	// Default: 150.
	SummaryMaxTokens int
	// SummaryTimeout bounds one background summarization. Default: 60s.
	SummaryTimeout time.Duration
	// MaxConcurrentSummaries bounds detached summarization work.
	// Default: 4.
	MaxConcurrentSummaries int64
}

// Service sequences one chat turn through its fixed pipeline. All
// collaborators are injected; the service itself holds no per-turn state.
type Service struct {
	generator Generator
	gate      Gate
	tools     ToolResolver
	memory    Memory
	recorder  metrics.Recorder

	summaryMaxTokens int
	summaryTimeout   time.Duration
	summaryGate      *semaphore.Weighted
}

// NewService creates the orchestrator. recorder may be nil.
func NewService(generator Generator, gate Gate, tools ToolResolver, memory Memory, recorder metrics.Recorder, cfg Config) *Service {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	if cfg.SummaryMaxTokens <= 0 {
		cfg.SummaryMaxTokens = 150
	}
	if cfg.SummaryTimeout <= 0 {
		cfg.SummaryTimeout = 60 * time.Second
	}
	if cfg.MaxConcurrentSummaries <= 0 {
		cfg.MaxConcurrentSummaries = 4
	}
	return &Service{
		generator:        generator,
		gate:             gate,
		tools:            tools,
		memory:           memory,
		recorder:         recorder,
		summaryMaxTokens: cfg.SummaryMaxTokens,
		summaryTimeout:   cfg.SummaryTimeout,
		summaryGate:      semaphore.NewWeighted(cfg.MaxConcurrentSummaries),
	}
}

// ProcessTurn handles one chat turn end to end. The returned result is
// available before the rolling summary update, which runs detached.
//
// Nothing is written to memory unless a usable answer was produced; the
// no-write-on-rejection case is a policy choice, not a failure.
func (s *Service) ProcessTurn(ctx context.Context, req *TurnRequest) (*TurnResult, error) {
	startTime := time.Now()

	// Extract the latest user message before anything else.
	question, ok := latestUserMessage(req.Messages)
	if !ok {
		slog.Warn("chat: no user message in request", "messages", len(req.Messages))
		s.recorder.RecordTurn(metrics.OutcomeValidationError, time.Since(startTime))
		return nil, ErrNoUserMessage
	}

	// Guardrail check first, before any retrieval or generation cost.
	verdict := s.gate.Classify(ctx, question, "")
	if !verdict.InDomain {
		slog.Info("chat: guardrail rejected question",
			"language", verdict.Language,
			"conversation_id", req.ConversationID,
		)
		s.recorder.RecordTurn(metrics.OutcomeRejected, time.Since(startTime))
		// Rejected turns are not remembered: the conversation id is passed
		// through for response continuity but nothing is persisted.
		return &TurnResult{
			Answer:         prompts.Rejection(verdict.Language),
			ConversationID: req.ConversationID,
			Rejected:       true,
		}, nil
	}

	convID := s.memory.GetOrCreate(req.ConversationID)
	summary := s.memory.GetSummary(convID)

	tool, err := s.tools.ForModel(req.Model)
	if err != nil {
		s.recorder.RecordTurn(metrics.OutcomeRetrievalError, time.Since(startTime))
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	searchStart := time.Now()
	searchText, err := tool.Search(ctx, question)
	s.recorder.RecordSearch(tool.Name(), time.Since(searchStart), err != nil)
	if err != nil {
		slog.Error("chat: search failed", "tool", tool.Name(), "error", err)
		s.recorder.RecordTurn(metrics.OutcomeRetrievalError, time.Since(startTime))
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	prompt := prompts.ChatResponse(question, searchText, summary, verdict.Language)

	answer, stats, err := s.generator.Generate(ctx, prompt, llm.TierMain, 0)
	if err != nil {
		slog.Error("chat: generation failed", "error", err)
		s.recorder.RecordTurn(metrics.OutcomeGenerationError, time.Since(startTime))
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if stats != nil {
		s.recorder.RecordTokens(string(llm.TierMain), stats.PromptTokens, stats.CompletionTokens)
	}

	final := appendSources(formatAnswer(answer), extractSources(searchText), verdict.Language)

	// Persist the user/assistant pair synchronously, before replying.
	// A single store call keeps the pair adjacent when turns on the same
	// conversation race.
	s.memory.AddTurn(convID, question, final)

	slog.Info("chat: turn completed",
		"conversation_id", convID,
		"language", verdict.Language,
		"answer_length", len(final),
		"duration_ms", time.Since(startTime).Milliseconds(),
	)
	s.recorder.RecordTurn(metrics.OutcomeOK, time.Since(startTime))

	// The rolling summary update must never delay the reply.
	s.scheduleSummarization(convID, question, answer, summary, verdict.Language)

	return &TurnResult{Answer: final, ConversationID: convID}, nil
}

// latestUserMessage scans the message list in reverse for the most recent
// user entry.
func latestUserMessage(messages []ChatMessage) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == store.RoleUser {
			return messages[i].Content, true
		}
	}
	return "", false
}
