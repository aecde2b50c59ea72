package server

import (
	"net/http"
	"strconv"

	"github.com/formforge/formpulse/internal/app"
	apperrors "github.com/formforge/formpulse/internal/errors"
	"github.com/labstack/echo/v4"
)

func (s *Server) handleSubmitResponse(c echo.Context) error {
	id, err := parseFormID(c)
	if err != nil {
		return err
	}

	var req app.SubmitResponseRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	response, err := s.svc.SubmitResponse(c.Request().Context(), id, req, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return translateDomainError(err)
	}

	return c.JSON(http.StatusCreated, response)
}

func (s *Server) handleListResponses(c echo.Context) error {
	id, err := parseFormID(c)
	if err != nil {
		return err
	}

	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 0)

	result, err := s.svc.ListResponses(c.Request().Context(), id, page, limit)
	if err != nil {
		return translateDomainError(err)
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetAnalytics(c echo.Context) error {
	id, err := parseFormID(c)
	if err != nil {
		return err
	}

	summary, err := s.svc.GetAnalytics(c.Request().Context(), id)
	if err != nil {
		return translateDomainError(err)
	}

	return c.JSON(http.StatusOK, summary)
}

func queryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
