package domain

import (
	"time"

	"github.com/google/uuid"
)

// FieldType identifies the kind of input a form field accepts.
type FieldType string

const (
	FieldTypeText           FieldType = "text"
	FieldTypeTextarea       FieldType = "textarea"
	FieldTypeEmail          FieldType = "email"
	FieldTypeNumber         FieldType = "number"
	FieldTypeMultipleChoice FieldType = "multiple_choice"
	FieldTypeCheckbox       FieldType = "checkbox"
	FieldTypeRating         FieldType = "rating"
	FieldTypeDate           FieldType = "date"
)

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeTextarea, FieldTypeEmail, FieldTypeNumber,
		FieldTypeMultipleChoice, FieldTypeCheckbox, FieldTypeRating, FieldTypeDate:
		return true
	}
	return false
}

// ValidationRule holds the per-field validation bounds. Zero values mean
// the bound is not set.
type ValidationRule struct {
	Required  bool    `json:"required"`
	MinLength int     `json:"min_length,omitempty"`
	MaxLength int     `json:"max_length,omitempty"`
	Pattern   string  `json:"pattern,omitempty"`
	Min       float64 `json:"min,omitempty"`
	Max       float64 `json:"max,omitempty"`
}

// FieldOption is one selectable option of a multiple_choice or checkbox field.
type FieldOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// FormField is a single field of a form.
type FormField struct {
	ID          string         `json:"id"`
	Type        FieldType      `json:"type"`
	Label       string         `json:"label"`
	Description string         `json:"description,omitempty"`
	Placeholder string         `json:"placeholder,omitempty"`
	Required    bool           `json:"required"`
	Options     []FieldOption  `json:"options,omitempty"`
	Validation  ValidationRule `json:"validation"`
	Order       int            `json:"order"`
}

// Form is a form definition with its ordered fields.
type Form struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Fields      []FormField `json:"fields"`
	IsPublished bool        `json:"is_published"`
	ShareToken  string      `json:"share_token"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
