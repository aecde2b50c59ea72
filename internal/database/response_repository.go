package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/formforge/formpulse/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResponseRepo implements domain.ResponseStore on PostgreSQL.
type ResponseRepo struct {
	pool *pgxpool.Pool
}

func NewResponseRepo(pool *pgxpool.Pool) *ResponseRepo {
	return &ResponseRepo{pool: pool}
}

func (r *ResponseRepo) Insert(ctx context.Context, response *domain.FormResponse) error {
	answers, err := json.Marshal(response.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}

	var metadata []byte
	if response.Metadata != nil {
		metadata, err = json.Marshal(response.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO responses (form_id, answers, metadata, ip_address, user_agent, submitted_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, submitted_at
	`, response.FormID, answers, metadata, response.IPAddress, response.UserAgent).
		Scan(&response.ID, &response.SubmittedAt)
	if err != nil {
		return fmt.Errorf("failed to insert response: %w", err)
	}
	return nil
}

func (r *ResponseRepo) ListByForm(ctx context.Context, formID uuid.UUID) ([]domain.FormResponse, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, form_id, answers, metadata, ip_address, user_agent, submitted_at
		FROM responses
		WHERE form_id = $1
		ORDER BY submitted_at ASC
	`, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	defer rows.Close()

	return scanResponses(rows)
}

func (r *ResponseRepo) ListByFormPaged(ctx context.Context, formID uuid.UUID, page, limit int) (*domain.ResponsePage, error) {
	total, err := r.CountByForm(ctx, formID)
	if err != nil {
		return nil, err
	}

	offset := (page - 1) * limit
	rows, err := r.pool.Query(ctx, `
		SELECT id, form_id, answers, metadata, ip_address, user_agent, submitted_at
		FROM responses
		WHERE form_id = $1
		ORDER BY submitted_at DESC
		OFFSET $2 LIMIT $3
	`, formID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	defer rows.Close()

	responses, err := scanResponses(rows)
	if err != nil {
		return nil, err
	}

	return &domain.ResponsePage{
		Responses:  responses,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
	}, nil
}

func (r *ResponseRepo) CountByForm(ctx context.Context, formID uuid.UUID) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM responses WHERE form_id = $1`, formID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count responses: %w", err)
	}
	return total, nil
}

func scanResponses(rows pgx.Rows) ([]domain.FormResponse, error) {
	responses := make([]domain.FormResponse, 0)
	for rows.Next() {
		var response domain.FormResponse
		var answers, metadata []byte
		err := rows.Scan(&response.ID, &response.FormID, &answers, &metadata,
			&response.IPAddress, &response.UserAgent, &response.SubmittedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		if err := json.Unmarshal(answers, &response.Answers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
		}
		if metadata != nil {
			if err := json.Unmarshal(metadata, &response.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		responses = append(responses, response)
	}
	return responses, rows.Err()
}
