package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/formforge/formpulse/internal/domain"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// SummaryCache keeps recently computed analytics summaries so bursts of
// dashboard refreshes do not re-fold the whole response set each time.
// Entries expire on their own and are dropped eagerly when a new response
// arrives.
type SummaryCache struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewSummaryCache(rdb *goredis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached summary for a form, or (nil, false) on a miss.
func (c *SummaryCache) Get(ctx context.Context, formID uuid.UUID) (*domain.AnalyticsSummary, bool, error) {
	data, err := c.rdb.Get(ctx, summaryKey(formID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read summary cache: %w", err)
	}

	var summary domain.AnalyticsSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached summary: %w", err)
	}
	return &summary, true, nil
}

// Set stores a freshly computed summary.
func (c *SummaryCache) Set(ctx context.Context, formID uuid.UUID, summary *domain.AnalyticsSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := c.rdb.Set(ctx, summaryKey(formID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write summary cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached summary for a form.
func (c *SummaryCache) Invalidate(ctx context.Context, formID uuid.UUID) error {
	if err := c.rdb.Del(ctx, summaryKey(formID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate summary cache: %w", err)
	}
	return nil
}

func summaryKey(formID uuid.UUID) string {
	return "analytics_summary:" + formID.String()
}
