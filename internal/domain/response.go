package domain

import (
	"time"

	"github.com/google/uuid"
)

// FormResponse is one submitted response to a form. Answers maps field ID to
// the submitted value; values stay schema-less until the aggregator resolves
// them against the field's declared type.
type FormResponse struct {
	ID          uuid.UUID      `json:"id"`
	FormID      uuid.UUID      `json:"form_id"`
	Answers     map[string]any `json:"answers"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	IPAddress   string         `json:"ip_address,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// ResponsePage is a paginated slice of responses.
type ResponsePage struct {
	Responses  []FormResponse `json:"responses"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	Total      int64          `json:"total"`
	TotalPages int64          `json:"total_pages"`
}
