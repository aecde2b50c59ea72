package app

import (
	"testing"

	"github.com/formforge/formpulse/internal/domain"
	apperrors "github.com/formforge/formpulse/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var structured *apperrors.Error
	require.ErrorAs(t, err, &structured)
	assert.Equal(t, apperrors.TypeValidation, structured.Type)
}

func TestValidateFormRequest(t *testing.T) {
	valid := []domain.FormField{{ID: "q1", Type: domain.FieldTypeText, Label: "Q1"}}

	assert.NoError(t, validateFormRequest("Title", valid, true))

	requireValidationError(t, validateFormRequest("", valid, true))
	requireValidationError(t, validateFormRequest("  ", valid, true))
	requireValidationError(t, validateFormRequest("Title", nil, true))

	// Updates may omit title and fields.
	assert.NoError(t, validateFormRequest("", nil, false))

	duplicated := []domain.FormField{
		{ID: "q1", Type: domain.FieldTypeText, Label: "A"},
		{ID: "q1", Type: domain.FieldTypeText, Label: "B"},
	}
	requireValidationError(t, validateFormRequest("Title", duplicated, true))

	unknownType := []domain.FormField{{ID: "q1", Type: "telepathy", Label: "Q1"}}
	requireValidationError(t, validateFormRequest("Title", unknownType, true))

	missingID := []domain.FormField{{Type: domain.FieldTypeText, Label: "Q1"}}
	requireValidationError(t, validateFormRequest("Title", missingID, true))
}

func TestValidateAnswers_Required(t *testing.T) {
	fields := []domain.FormField{
		{ID: "name", Type: domain.FieldTypeText, Label: "Name", Required: true},
		{ID: "note", Type: domain.FieldTypeTextarea, Label: "Note"},
	}

	assert.NoError(t, validateAnswers(map[string]any{"name": "Ada"}, fields))

	requireValidationError(t, validateAnswers(map[string]any{}, fields))
	requireValidationError(t, validateAnswers(map[string]any{"name": ""}, fields))
	requireValidationError(t, validateAnswers(map[string]any{"note": "only optional"}, fields))
}

func TestValidateAnswers_Email(t *testing.T) {
	fields := []domain.FormField{{ID: "mail", Type: domain.FieldTypeEmail, Label: "Mail"}}

	assert.NoError(t, validateAnswers(map[string]any{"mail": "ada@example.com"}, fields))
	requireValidationError(t, validateAnswers(map[string]any{"mail": "not-an-email"}, fields))
	requireValidationError(t, validateAnswers(map[string]any{"mail": 42.0}, fields))
}

func TestValidateAnswers_NumberBounds(t *testing.T) {
	fields := []domain.FormField{{
		ID: "age", Type: domain.FieldTypeNumber, Label: "Age",
		Validation: domain.ValidationRule{Min: 18, Max: 99},
	}}

	assert.NoError(t, validateAnswers(map[string]any{"age": 30.0}, fields))
	requireValidationError(t, validateAnswers(map[string]any{"age": 17.0}, fields))
	requireValidationError(t, validateAnswers(map[string]any{"age": 120.0}, fields))
	requireValidationError(t, validateAnswers(map[string]any{"age": "thirty"}, fields))
}

func TestValidateAnswers_Rating(t *testing.T) {
	fields := []domain.FormField{{ID: "stars", Type: domain.FieldTypeRating, Label: "Stars"}}

	assert.NoError(t, validateAnswers(map[string]any{"stars": 5.0}, fields))
	assert.NoError(t, validateAnswers(map[string]any{"stars": 1.0}, fields))
	requireValidationError(t, validateAnswers(map[string]any{"stars": 0.0}, fields))
	requireValidationError(t, validateAnswers(map[string]any{"stars": 6.0}, fields))
}

func TestValidateAnswers_TextLength(t *testing.T) {
	fields := []domain.FormField{{
		ID: "bio", Type: domain.FieldTypeText, Label: "Bio",
		Validation: domain.ValidationRule{MinLength: 3, MaxLength: 10},
	}}

	assert.NoError(t, validateAnswers(map[string]any{"bio": "hello"}, fields))
	requireValidationError(t, validateAnswers(map[string]any{"bio": "hi"}, fields))
	requireValidationError(t, validateAnswers(map[string]any{"bio": "way too long for this"}, fields))
}

func TestValidateAnswers_ChoiceShapes(t *testing.T) {
	fields := []domain.FormField{
		{ID: "color", Type: domain.FieldTypeMultipleChoice, Label: "Color"},
		{ID: "toppings", Type: domain.FieldTypeCheckbox, Label: "Toppings"},
	}

	assert.NoError(t, validateAnswers(map[string]any{
		"color":    "red",
		"toppings": []any{"cheese", "olives"},
	}, fields))

	requireValidationError(t, validateAnswers(map[string]any{"color": 3.0}, fields))
	requireValidationError(t, validateAnswers(map[string]any{"toppings": []any{"cheese", 5.0}}, fields))
}

func TestValidateAnswers_UnknownAnswersIgnored(t *testing.T) {
	fields := []domain.FormField{{ID: "q1", Type: domain.FieldTypeText, Label: "Q1"}}

	// Answers for fields the form does not define are not an error.
	assert.NoError(t, validateAnswers(map[string]any{"q1": "ok", "ghost": "value"}, fields))
}
