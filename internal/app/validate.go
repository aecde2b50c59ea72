package app

import (
	"fmt"
	"strings"

	"github.com/formforge/formpulse/internal/domain"
	apperrors "github.com/formforge/formpulse/internal/errors"
)

const maxFormFields = 100

// validateFormRequest checks the shape of a create or update request.
// Required fields are only enforced on create.
func validateFormRequest(title string, fields []domain.FormField, isCreate bool) error {
	if isCreate && strings.TrimSpace(title) == "" {
		return apperrors.ValidationError("title is required").WithField("field", "title")
	}
	if isCreate && len(fields) == 0 {
		return apperrors.ValidationError("at least one field is required").WithField("field", "fields")
	}
	if len(fields) > maxFormFields {
		return apperrors.ValidationError(fmt.Sprintf("forms are limited to %d fields", maxFormFields)).WithField("field", "fields")
	}

	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if field.ID == "" {
			return apperrors.ValidationError("every field needs an id").WithField("field", "fields")
		}
		if _, dup := seen[field.ID]; dup {
			return apperrors.ValidationError("duplicate field id: "+field.ID).WithField("field", field.ID)
		}
		seen[field.ID] = struct{}{}

		if !field.Type.Valid() {
			return apperrors.ValidationError("unknown field type: "+string(field.Type)).WithField("field", field.ID)
		}
	}

	return nil
}

// validateAnswers checks a submission against the form's field definitions.
func validateAnswers(answers map[string]any, fields []domain.FormField) error {
	for _, field := range fields {
		value := answers[field.ID]

		if !domain.Answered(value) {
			if field.Required || field.Validation.Required {
				return apperrors.ValidationError("field is required: "+field.Label).WithField("field", field.ID)
			}
			continue
		}

		if err := validateAnswer(field, value); err != nil {
			return err
		}
	}

	return nil
}

func validateAnswer(field domain.FormField, value any) error {
	switch field.Type {
	case domain.FieldTypeEmail:
		str, ok := domain.StringValue(value)
		if !ok || !strings.Contains(str, "@") || !strings.Contains(str, ".") {
			return apperrors.ValidationError("invalid email address for field: "+field.Label).WithField("field", field.ID)
		}

	case domain.FieldTypeNumber:
		num, ok := domain.NumberValue(value)
		if !ok {
			return apperrors.ValidationError("expected a number for field: "+field.Label).WithField("field", field.ID)
		}
		rule := field.Validation
		if rule.Min != 0 && num < rule.Min {
			return apperrors.ValidationError(fmt.Sprintf("value below minimum %v for field: %s", rule.Min, field.Label)).WithField("field", field.ID)
		}
		if rule.Max != 0 && num > rule.Max {
			return apperrors.ValidationError(fmt.Sprintf("value above maximum %v for field: %s", rule.Max, field.Label)).WithField("field", field.ID)
		}

	case domain.FieldTypeRating:
		num, ok := domain.NumberValue(value)
		if !ok || num < 1 || num > 5 {
			return apperrors.ValidationError("rating must be between 1 and 5 for field: "+field.Label).WithField("field", field.ID)
		}

	case domain.FieldTypeText, domain.FieldTypeTextarea:
		str, ok := domain.StringValue(value)
		if !ok {
			return apperrors.ValidationError("expected text for field: "+field.Label).WithField("field", field.ID)
		}
		rule := field.Validation
		if rule.MinLength != 0 && len(str) < rule.MinLength {
			return apperrors.ValidationError(fmt.Sprintf("text shorter than %d characters for field: %s", rule.MinLength, field.Label)).WithField("field", field.ID)
		}
		if rule.MaxLength != 0 && len(str) > rule.MaxLength {
			return apperrors.ValidationError(fmt.Sprintf("text longer than %d characters for field: %s", rule.MaxLength, field.Label)).WithField("field", field.ID)
		}

	case domain.FieldTypeMultipleChoice:
		if _, ok := domain.StringValue(value); !ok {
			return apperrors.ValidationError("expected a single choice for field: "+field.Label).WithField("field", field.ID)
		}

	case domain.FieldTypeCheckbox:
		if _, ok := domain.StringsValue(value); !ok {
			return apperrors.ValidationError("expected a list of choices for field: "+field.Label).WithField("field", field.ID)
		}
	}

	return nil
}
