package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/tunglt-picon/dentalsense/ai/chat"
)

// conversationIDHeader carries the conversation id on both request and
// response, letting stock OpenAI clients thread a conversation without
// understanding the body extensions.
const conversationIDHeader = "X-Conversation-ID"

type ChatCompletionRequest struct {
	Model    string             `json:"model"`
	Messages []chat.ChatMessage `json:"messages"`
	Stream   bool               `json:"stream,omitempty"`
	// ConversationID in the body wins over the header when both are set.
	ConversationID string `json:"conversation_id,omitempty"`
}

type ChatCompletionChoice struct {
	Index        int              `json:"index"`
	Message      chat.ChatMessage `json:"message"`
	FinishReason string           `json:"finish_reason"`
}

type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	// SystemFingerprint doubles as the conversation id so the value
	// survives OpenAI-client round trips that drop unknown fields.
	SystemFingerprint string                 `json:"system_fingerprint"`
	Choices           []ChatCompletionChoice `json:"choices"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

type apiErrorBody struct {
	Error apiError `json:"error"`
}

func errorJSON(c echo.Context, status int, errType, message string) error {
	return c.JSON(status, apiErrorBody{Error: apiError{Message: message, Type: errType}})
}

// CreateChatCompletion handles one chat turn in the OpenAI response shape.
// Guardrail rejections are normal completions whose content is the localized
// rejection template.
func (s *APIV1Service) CreateChatCompletion(c echo.Context) error {
	var req ChatCompletionRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_request_error", "malformed request body")
	}
	if req.Stream {
		return errorJSON(c, http.StatusBadRequest, "invalid_request_error", "streaming is not supported")
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = c.Request().Header.Get(conversationIDHeader)
	}

	result, err := s.ChatService.ProcessTurn(c.Request().Context(), &chat.TurnRequest{
		Messages:       req.Messages,
		Model:          req.Model,
		ConversationID: conversationID,
	})
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrNoUserMessage):
			return errorJSON(c, http.StatusBadRequest, "invalid_request_error", "messages must contain at least one user message")
		case errors.Is(err, chat.ErrRetrieval):
			slog.Error("chat completion failed on retrieval", "error", err)
			return errorJSON(c, http.StatusBadGateway, "upstream_error", "web search is unavailable")
		case errors.Is(err, chat.ErrGeneration):
			slog.Error("chat completion failed on generation", "error", err)
			return errorJSON(c, http.StatusBadGateway, "upstream_error", "language model is unavailable")
		default:
			slog.Error("chat completion failed", "error", err)
			return errorJSON(c, http.StatusInternalServerError, "internal_error", "internal error")
		}
	}

	finishReason := "stop"
	if result.Rejected {
		finishReason = "content_filter"
	}

	c.Response().Header().Set(conversationIDHeader, result.ConversationID)
	return c.JSON(http.StatusOK, ChatCompletionResponse{
		ID:                "chatcmpl-" + shortuuid.New(),
		Object:            "chat.completion",
		Created:           time.Now().Unix(),
		Model:             req.Model,
		SystemFingerprint: result.ConversationID,
		Choices: []ChatCompletionChoice{
			{
				Index:        0,
				Message:      chat.ChatMessage{Role: "assistant", Content: result.Answer},
				FinishReason: finishReason,
			},
		},
	})
}
