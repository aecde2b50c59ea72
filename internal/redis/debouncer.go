package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Debouncer collapses analytics_updated broadcasts: during a burst of
// submissions only the first one within the interval triggers a broadcast.
type Debouncer struct {
	rdb      *goredis.Client
	interval time.Duration
}

func NewDebouncer(rdb *goredis.Client, interval time.Duration) *Debouncer {
	return &Debouncer{rdb: rdb, interval: interval}
}

// Allow reports whether a broadcast for the form may fire now. The first
// call within the interval wins; followers are suppressed until the key
// expires.
func (d *Debouncer) Allow(ctx context.Context, formID uuid.UUID) (bool, error) {
	set, err := d.rdb.SetNX(ctx, debounceKey(formID), "1", d.interval).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check debounce: %w", err)
	}
	return set, nil
}

func debounceKey(formID uuid.UUID) string {
	return "analytics_debounce:" + formID.String()
}
