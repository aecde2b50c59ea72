package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/formforge/formpulse/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FormRepo implements domain.FormStore on PostgreSQL.
type FormRepo struct {
	pool *pgxpool.Pool
}

func NewFormRepo(pool *pgxpool.Pool) *FormRepo {
	return &FormRepo{pool: pool}
}

func (r *FormRepo) Create(ctx context.Context, form *domain.Form) error {
	fields, err := json.Marshal(form.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO forms (title, description, fields, is_published, share_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, form.Title, form.Description, fields, form.IsPublished, form.ShareToken).
		Scan(&form.ID, &form.CreatedAt, &form.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert form: %w", err)
	}
	return nil
}

func (r *FormRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Form, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, title, description, fields, is_published, share_token, created_at, updated_at
		FROM forms
		WHERE id = $1
	`, id)

	form, err := scanForm(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrFormNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get form: %w", err)
	}
	return form, nil
}

// GetByShareToken resolves a form through its public share token. Only
// published forms are visible this way.
func (r *FormRepo) GetByShareToken(ctx context.Context, token string) (*domain.Form, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, title, description, fields, is_published, share_token, created_at, updated_at
		FROM forms
		WHERE share_token = $1 AND is_published = TRUE
	`, token)

	form, err := scanForm(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrFormNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get form by share token: %w", err)
	}
	return form, nil
}

func (r *FormRepo) List(ctx context.Context) ([]domain.Form, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, description, fields, is_published, share_token, created_at, updated_at
		FROM forms
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}
	defer rows.Close()

	forms := make([]domain.Form, 0)
	for rows.Next() {
		form, err := scanForm(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan form: %w", err)
		}
		forms = append(forms, *form)
	}
	return forms, rows.Err()
}

func (r *FormRepo) Update(ctx context.Context, form *domain.Form) error {
	fields, err := json.Marshal(form.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE forms
		SET title = $1, description = $2, fields = $3, is_published = $4, updated_at = NOW()
		WHERE id = $5
	`, form.Title, form.Description, fields, form.IsPublished, form.ID)
	if err != nil {
		return fmt.Errorf("failed to update form: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFormNotFound
	}
	return nil
}

func (r *FormRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM forms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete form: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFormNotFound
	}
	return nil
}

func scanForm(row pgx.Row) (*domain.Form, error) {
	var form domain.Form
	var fields []byte
	err := row.Scan(&form.ID, &form.Title, &form.Description, &fields,
		&form.IsPublished, &form.ShareToken, &form.CreatedAt, &form.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(fields, &form.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
	}
	return &form, nil
}
