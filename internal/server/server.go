// Package server exposes the HTTP surface: the form and response API, the
// analytics endpoint, the live event socket, and the observability routes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/formforge/formpulse/internal/app"
	"github.com/formforge/formpulse/internal/config"
	apperrors "github.com/formforge/formpulse/internal/errors"
	"github.com/formforge/formpulse/internal/hub"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
)

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	svc         *app.Service
	wsHandler   http.Handler
	eventHub    *hub.Hub
	db          *pgxpool.Pool
	redisClient *goredis.Client
	startTime   time.Time
}

func NewServer(cfg *config.Config, svc *app.Service, eventHub *hub.Hub, wsHandler http.Handler, db *pgxpool.Pool, redisClient *goredis.Client) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(requestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:        e,
		config:      cfg,
		svc:         svc,
		wsHandler:   wsHandler,
		eventHub:    eventHub,
		db:          db,
		redisClient: redisClient,
		startTime:   time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// requestLogger logs each request through slog in the same shape the rest
// of the application logs in.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("Request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			)
			return nil
		},
	})
}
