// Package v1 exposes the assistant over HTTP: an OpenAI-compatible chat
// completion surface plus conversation management and operational routes.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tunglt-picon/dentalsense/ai/chat"
	"github.com/tunglt-picon/dentalsense/ai/metrics"
	"github.com/tunglt-picon/dentalsense/ai/search"
	"github.com/tunglt-picon/dentalsense/internal/profile"
	"github.com/tunglt-picon/dentalsense/store"
)

type APIV1Service struct {
	Profile     *profile.Profile
	ChatService *chat.Service
	Store       *store.ConversationStore
	Exporter    *metrics.PrometheusExporter
}

func NewAPIV1Service(profile *profile.Profile, chatService *chat.Service, store *store.ConversationStore, exporter *metrics.PrometheusExporter) *APIV1Service {
	return &APIV1Service{
		Profile:     profile,
		ChatService: chatService,
		Store:       store,
		Exporter:    exporter,
	}
}

// Register mounts all routes on the echo server.
func (s *APIV1Service) Register(e *echo.Echo) {
	e.POST("/v1/chat/completions", s.CreateChatCompletion)
	e.GET("/v1/models", s.ListModels)

	apiGroup := e.Group("/api/v1")
	apiGroup.GET("/conversations/:id/messages", s.ListConversationMessages)
	apiGroup.POST("/conversations/:id/clear", s.ClearConversation)
	apiGroup.DELETE("/conversations/:id", s.DeleteConversation)

	e.GET("/healthz", s.Healthz)
	if s.Exporter != nil {
		e.GET("/metrics", echo.WrapHandler(s.Exporter.Handler()))
	}
}

func (s *APIV1Service) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.Profile.Version,
		"mode":    s.Profile.Mode,
	})
}

// ListModels reports the model tags accepted by the completion endpoint.
// Each tag selects a retrieval backend, not a different LLM.
func (s *APIV1Service) ListModels(c echo.Context) error {
	type model struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		OwnedBy string `json:"owned_by"`
	}
	models := make([]model, 0, 2)
	for _, id := range search.Models() {
		models = append(models, model{ID: id, Object: "model", OwnedBy: "dentalsense"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"object": "list",
		"data":   models,
	})
}
