// Package server assembles the HTTP server: store, completion service,
// realtime hub, and the chat/support services wired into the echo router.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/averill/parlor/ai"
	"github.com/averill/parlor/internal/metrics"
	"github.com/averill/parlor/internal/profile"
	"github.com/averill/parlor/server/chat"
	"github.com/averill/parlor/server/realtime"
	apiv1 "github.com/averill/parlor/server/router/api/v1"
	"github.com/averill/parlor/server/support"
	"github.com/averill/parlor/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	hub        *realtime.Hub
	metrics    *metrics.Metrics
}

func NewServer(_ context.Context, instanceProfile *profile.Profile, storeInstance *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	m := metrics.New()
	hub := realtime.NewHub(m)

	llm := ai.NewCompletionService(ai.NewConfigFromProfile(instanceProfile))
	chatService := chat.NewService(storeInstance, llm, hub, m)
	supportService := support.NewService(storeInstance, hub, m)

	s := &Server{
		Profile:    instanceProfile,
		Store:      storeInstance,
		echoServer: e,
		hub:        hub,
		metrics:    m,
	}

	e.Use(middleware.Recover())
	e.Use(requestLogger())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	apiV1Service := apiv1.NewAPIV1Service(instanceProfile, storeInstance, hub, chatService, supportService)
	apiV1Service.RegisterRoutes(e)

	return s, nil
}

// Start begins serving in a background goroutine and returns immediately.
func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}

	slog.Info("server shutdown complete")
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			slog.LogAttrs(context.Background(), level, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	})
}
