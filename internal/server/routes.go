package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api/v1")

	// Form management
	api.POST("/forms", s.handleCreateForm)
	api.GET("/forms", s.handleListForms)
	api.GET("/forms/:id", s.handleGetForm)
	api.PUT("/forms/:id", s.handleUpdateForm)
	api.DELETE("/forms/:id", s.handleDeleteForm)
	api.PATCH("/forms/:id/publish", s.handlePublishForm)
	api.POST("/forms/:id/duplicate", s.handleDuplicateForm)

	// Public form access by share token
	api.GET("/forms/public/:token", s.handleGetFormByToken)

	// Responses (submission is rate limited per IP)
	api.POST("/forms/:id/responses", s.handleSubmitResponse, submitRateLimiter(s.config))
	api.GET("/forms/:id/responses", s.handleListResponses)

	// Analytics
	api.GET("/forms/:id/analytics", s.handleGetAnalytics)

	// Live event socket
	s.echo.GET("/ws", echo.WrapHandler(s.wsHandler))
}
