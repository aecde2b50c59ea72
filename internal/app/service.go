// Package app wires storage, the hub, and the aggregator into the
// application's use cases: form management, response intake, and analytics.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/formforge/formpulse/internal/analytics"
	"github.com/formforge/formpulse/internal/domain"
	"github.com/formforge/formpulse/internal/logging"
	"github.com/formforge/formpulse/internal/metrics"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100

	// analyticsTimeout bounds the async analytics notification that follows
	// a submission.
	analyticsTimeout = 5 * time.Second
)

// Debouncer suppresses redundant analytics_updated broadcasts per form.
type Debouncer interface {
	Allow(ctx context.Context, formID uuid.UUID) (bool, error)
}

// SummaryCache holds recently computed analytics summaries.
type SummaryCache interface {
	Get(ctx context.Context, formID uuid.UUID) (*domain.AnalyticsSummary, bool, error)
	Set(ctx context.Context, formID uuid.UUID, summary *domain.AnalyticsSummary) error
	Invalidate(ctx context.Context, formID uuid.UUID) error
}

// CreateFormRequest carries the fields for a new form.
type CreateFormRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Fields      []domain.FormField `json:"fields"`
}

// UpdateFormRequest carries a partial form update. Nil / empty members are
// left unchanged.
type UpdateFormRequest struct {
	Title       string             `json:"title,omitempty"`
	Description string             `json:"description,omitempty"`
	Fields      []domain.FormField `json:"fields,omitempty"`
	IsPublished *bool              `json:"is_published,omitempty"`
}

// SubmitResponseRequest carries one form submission.
type SubmitResponseRequest struct {
	Answers  map[string]any `json:"answers"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Service implements the application use cases around forms, responses,
// and analytics.
type Service struct {
	forms     domain.FormStore
	responses domain.ResponseStore
	hub       domain.Broadcaster
	debouncer Debouncer
	cache     SummaryCache
	clock     clockwork.Clock
}

func NewService(forms domain.FormStore, responses domain.ResponseStore, hub domain.Broadcaster, debouncer Debouncer, cache SummaryCache, clock clockwork.Clock) *Service {
	return &Service{
		forms:     forms,
		responses: responses,
		hub:       hub,
		debouncer: debouncer,
		cache:     cache,
		clock:     clock,
	}
}

// --- Forms ---

func (s *Service) CreateForm(ctx context.Context, req CreateFormRequest) (*domain.Form, error) {
	if err := validateFormRequest(req.Title, req.Fields, true); err != nil {
		return nil, err
	}

	form := &domain.Form{
		Title:       req.Title,
		Description: req.Description,
		Fields:      req.Fields,
		IsPublished: false,
		ShareToken:  generateShareToken(),
	}

	if err := s.forms.Create(ctx, form); err != nil {
		return nil, err
	}

	s.hub.Broadcast(domain.Event{Type: domain.EventFormCreated, Data: form})
	return form, nil
}

func (s *Service) GetForm(ctx context.Context, id uuid.UUID) (*domain.Form, error) {
	return s.forms.GetByID(ctx, id)
}

func (s *Service) GetFormByShareToken(ctx context.Context, token string) (*domain.Form, error) {
	return s.forms.GetByShareToken(ctx, token)
}

func (s *Service) ListForms(ctx context.Context) ([]domain.Form, error) {
	return s.forms.List(ctx)
}

func (s *Service) UpdateForm(ctx context.Context, id uuid.UUID, req UpdateFormRequest) (*domain.Form, error) {
	if err := validateFormRequest(req.Title, req.Fields, false); err != nil {
		return nil, err
	}

	form, err := s.forms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	wasPublished := form.IsPublished

	if req.Title != "" {
		form.Title = req.Title
	}
	if req.Description != "" {
		form.Description = req.Description
	}
	if req.Fields != nil {
		form.Fields = req.Fields
	}
	if req.IsPublished != nil {
		form.IsPublished = *req.IsPublished
	}

	if err := s.forms.Update(ctx, form); err != nil {
		return nil, err
	}

	s.hub.Broadcast(domain.Event{Type: domain.EventFormUpdated, Data: form})
	if req.IsPublished != nil && wasPublished != form.IsPublished {
		s.broadcastPublishState(form)
	}

	return form, nil
}

func (s *Service) DeleteForm(ctx context.Context, id uuid.UUID) error {
	if err := s.forms.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.cache.Invalidate(ctx, id); err != nil {
		logging.WithForm(id.String()).Warn("Failed to invalidate summary cache", "error", err)
	}

	s.hub.Broadcast(domain.Event{Type: domain.EventFormDeleted, Data: map[string]string{"id": id.String()}})
	return nil
}

// SetFormPublished publishes or unpublishes a form.
func (s *Service) SetFormPublished(ctx context.Context, id uuid.UUID, publish bool) (*domain.Form, error) {
	form, err := s.forms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	form.IsPublished = publish
	if err := s.forms.Update(ctx, form); err != nil {
		return nil, err
	}

	s.broadcastPublishState(form)
	return form, nil
}

// DuplicateForm creates an unpublished copy of a form with a fresh share token.
func (s *Service) DuplicateForm(ctx context.Context, id uuid.UUID) (*domain.Form, error) {
	original, err := s.forms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	dup := &domain.Form{
		Title:       original.Title + " (Copy)",
		Description: original.Description,
		Fields:      original.Fields,
		IsPublished: false,
		ShareToken:  generateShareToken(),
	}

	if err := s.forms.Create(ctx, dup); err != nil {
		return nil, err
	}

	s.hub.Broadcast(domain.Event{Type: domain.EventFormCreated, Data: dup})
	return dup, nil
}

func (s *Service) broadcastPublishState(form *domain.Form) {
	eventType := domain.EventFormUnpublished
	if form.IsPublished {
		eventType = domain.EventFormPublished
	}
	s.hub.Broadcast(domain.Event{Type: eventType, Data: form})
}

// --- Responses ---

// SubmitResponse validates and stores a submission, notifies live viewers of
// the form, and schedules a debounced analytics_updated broadcast.
func (s *Service) SubmitResponse(ctx context.Context, formID uuid.UUID, req SubmitResponseRequest, ipAddress, userAgent string) (*domain.FormResponse, error) {
	form, err := s.forms.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	if !form.IsPublished {
		return nil, domain.ErrFormNotPublished
	}

	if err := validateAnswers(req.Answers, form.Fields); err != nil {
		return nil, err
	}

	response := &domain.FormResponse{
		FormID:    formID,
		Answers:   req.Answers,
		Metadata:  req.Metadata,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}

	if err := s.responses.Insert(ctx, response); err != nil {
		return nil, err
	}
	metrics.ResponsesSubmittedTotal.Inc()

	if err := s.cache.Invalidate(ctx, formID); err != nil {
		logging.WithForm(formID.String()).Warn("Failed to invalidate summary cache", "error", err)
	}

	s.hub.Broadcast(domain.Event{
		Type:   domain.EventResponseSubmitted,
		FormID: formID.String(),
		Data:   map[string]any{"form_id": formID.String(), "response": response},
	})

	go s.notifyAnalyticsUpdated(formID)

	return response, nil
}

func (s *Service) ListResponses(ctx context.Context, formID uuid.UUID, page, limit int) (*domain.ResponsePage, error) {
	if _, err := s.forms.GetByID(ctx, formID); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageLimit {
		limit = defaultPageLimit
	}

	return s.responses.ListByFormPaged(ctx, formID, page, limit)
}

// --- Analytics ---

// GetAnalytics returns the analytics summary for a form, recomputing it when
// the cache has no fresh entry.
func (s *Service) GetAnalytics(ctx context.Context, formID uuid.UUID) (*domain.AnalyticsSummary, error) {
	form, err := s.forms.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}

	if summary, ok, err := s.cache.Get(ctx, formID); err != nil {
		logging.WithForm(formID.String()).Warn("Summary cache read failed", "error", err)
	} else if ok {
		return summary, nil
	}

	responses, err := s.responses.ListByForm(ctx, formID)
	if err != nil {
		return nil, err
	}

	summary := analytics.ComputeSummary(form.Fields, responses, s.clock.Now())

	if err := s.cache.Set(ctx, formID, summary); err != nil {
		logging.WithForm(formID.String()).Warn("Summary cache write failed", "error", err)
	}

	return summary, nil
}

// notifyAnalyticsUpdated tells live viewers to refetch analytics. The
// debouncer collapses bursts so a submission storm produces one broadcast
// per interval.
func (s *Service) notifyAnalyticsUpdated(formID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), analyticsTimeout)
	defer cancel()

	allowed, err := s.debouncer.Allow(ctx, formID)
	if err != nil {
		logging.WithForm(formID.String()).Warn("Analytics debounce check failed, broadcasting anyway", "error", err)
		allowed = true
	}
	if !allowed {
		return
	}

	s.hub.Broadcast(domain.Event{
		Type:   domain.EventAnalyticsUpdated,
		FormID: formID.String(),
		Data:   map[string]any{"form_id": formID.String(), "updated_at": s.clock.Now()},
	})
}

func generateShareToken() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
