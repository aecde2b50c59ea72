package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/formforge/formpulse/internal/app"
	"github.com/formforge/formpulse/internal/domain"
	apperrors "github.com/formforge/formpulse/internal/errors"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func (s *Server) handleCreateForm(c echo.Context) error {
	var req app.CreateFormRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	form, err := s.svc.CreateForm(c.Request().Context(), req)
	if err != nil {
		return translateDomainError(err)
	}

	return c.JSON(http.StatusCreated, form)
}

func (s *Server) handleListForms(c echo.Context) error {
	forms, err := s.svc.ListForms(c.Request().Context())
	if err != nil {
		return translateDomainError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{"forms": forms, "count": len(forms)})
}

func (s *Server) handleGetForm(c echo.Context) error {
	id, err := parseFormID(c)
	if err != nil {
		return err
	}

	form, err := s.svc.GetForm(c.Request().Context(), id)
	if err != nil {
		return translateDomainError(err)
	}

	return c.JSON(http.StatusOK, form)
}

func (s *Server) handleGetFormByToken(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return apperrors.ValidationError("share token is required")
	}

	form, err := s.svc.GetFormByShareToken(c.Request().Context(), token)
	if err != nil {
		return translateDomainError(err)
	}

	return c.JSON(http.StatusOK, form)
}

func (s *Server) handleUpdateForm(c echo.Context) error {
	id, err := parseFormID(c)
	if err != nil {
		return err
	}

	var req app.UpdateFormRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	form, err := s.svc.UpdateForm(c.Request().Context(), id, req)
	if err != nil {
		return translateDomainError(err)
	}

	return c.JSON(http.StatusOK, form)
}

func (s *Server) handleDeleteForm(c echo.Context) error {
	id, err := parseFormID(c)
	if err != nil {
		return err
	}

	if err := s.svc.DeleteForm(c.Request().Context(), id); err != nil {
		return translateDomainError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handlePublishForm(c echo.Context) error {
	id, err := parseFormID(c)
	if err != nil {
		return err
	}

	publish := true
	if raw := c.QueryParam("publish"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return apperrors.ValidationError("publish must be true or false")
		}
		publish = parsed
	}

	form, err := s.svc.SetFormPublished(c.Request().Context(), id, publish)
	if err != nil {
		return translateDomainError(err)
	}

	return c.JSON(http.StatusOK, form)
}

func (s *Server) handleDuplicateForm(c echo.Context) error {
	id, err := parseFormID(c)
	if err != nil {
		return err
	}

	form, err := s.svc.DuplicateForm(c.Request().Context(), id)
	if err != nil {
		return translateDomainError(err)
	}

	return c.JSON(http.StatusCreated, form)
}

func parseFormID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperrors.ValidationError("invalid form id")
	}
	return id, nil
}

// translateDomainError maps storage and domain sentinel errors onto
// structured errors; everything else passes through for the error
// middleware to classify.
func translateDomainError(err error) error {
	switch {
	case errors.Is(err, domain.ErrFormNotFound):
		return apperrors.NotFoundError("form not found")
	case errors.Is(err, domain.ErrResponseNotFound):
		return apperrors.NotFoundError("response not found")
	case errors.Is(err, domain.ErrFormNotPublished):
		return apperrors.ConflictError("form is not accepting responses")
	default:
		return err
	}
}
