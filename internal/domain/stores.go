package domain

import (
	"context"

	"github.com/google/uuid"
)

// FormStore is the durable storage for form definitions.
type FormStore interface {
	Create(ctx context.Context, form *Form) error
	GetByID(ctx context.Context, id uuid.UUID) (*Form, error)
	GetByShareToken(ctx context.Context, token string) (*Form, error)
	List(ctx context.Context) ([]Form, error)
	Update(ctx context.Context, form *Form) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ResponseStore is the durable storage for submitted responses. The
// analytics aggregator only reads from it.
type ResponseStore interface {
	Insert(ctx context.Context, response *FormResponse) error
	ListByForm(ctx context.Context, formID uuid.UUID) ([]FormResponse, error)
	ListByFormPaged(ctx context.Context, formID uuid.UUID, page, limit int) (*ResponsePage, error)
	CountByForm(ctx context.Context, formID uuid.UUID) (int64, error)
}

// Broadcaster publishes events to live subscribers. Implemented by the hub;
// declared here so the application service does not depend on the transport.
type Broadcaster interface {
	Broadcast(event Event)
}
