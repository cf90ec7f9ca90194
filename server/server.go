// Package server owns the HTTP process: echo setup, route registration,
// and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	apiv1 "github.com/tunglt-picon/dentalsense/server/router/api/v1"

	"github.com/tunglt-picon/dentalsense/ai/chat"
	"github.com/tunglt-picon/dentalsense/ai/metrics"
	"github.com/tunglt-picon/dentalsense/internal/profile"
	"github.com/tunglt-picon/dentalsense/store"
)

type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	apiService *apiv1.APIV1Service
}

func NewServer(profile *profile.Profile, chatService *chat.Service, conversationStore *store.ConversationStore, exporter *metrics.PrometheusExporter) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, "X-Conversation-ID"},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("http request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			)
			return nil
		},
	}))

	apiService := apiv1.NewAPIV1Service(profile, chatService, conversationStore, exporter)
	apiService.Register(e)

	return &Server{
		Profile:    profile,
		echoServer: e,
		apiService: apiService,
	}
}

// Start begins serving in the background. Listener failures other than a
// clean shutdown are fatal for the process, so they are surfaced on the
// returned channel rather than just logged.
func (s *Server) Start() (<-chan error, error) {
	errCh := make(chan error, 1)

	var listener net.Listener
	var err error
	if s.Profile.UNIXSock != "" {
		listener, err = net.Listen("unix", s.Profile.UNIXSock)
	} else {
		listener, err = net.Listen("tcp", fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port))
	}
	if err != nil {
		return nil, err
	}

	s.echoServer.Listener = listener
	go func() {
		if serveErr := s.echoServer.Start(""); serveErr != nil && serveErr != http.ErrServerClosed {
			errCh <- serveErr
		}
		close(errCh)
	}()

	slog.Info("server started",
		"addr", listener.Addr().String(),
		"mode", s.Profile.Mode,
		"version", s.Profile.Version,
	)
	return errCh, nil
}

// Shutdown drains in-flight requests with a deadline. Detached background
// summarizations are abandoned; they hold no resources worth waiting for.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server gracefully", "error", err)
	}

	slog.Info("server stopped")
}
