package redis

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/formforge/formpulse/internal/metrics"
	goredis "github.com/redis/go-redis/v9"
)

// MetricsHook feeds the redis_* collectors from every command the shared
// client issues. NewClient registers it once; the debouncer and summary
// cache are instrumented through it without any code of their own.
type MetricsHook struct{}

var _ goredis.Hook = (*MetricsHook)(nil)

func (h *MetricsHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			metrics.RedisConnectionErrors.Inc()
		}
		return conn, err
	}
}

func (h *MetricsHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		recordOp(cmd.Name(), start, err)
		return err
	}
}

// ProcessPipelineHook exists to satisfy goredis.Hook; nothing here pipelines
// explicitly, so the whole batch is recorded as one operation.
func (h *MetricsHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		recordOp("pipeline", start, err)
		return err
	}
}

// recordOp counts an operation and observes its latency. A cache miss
// (goredis.Nil) is a successful operation, not an error.
func recordOp(operation string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, goredis.Nil) {
		status = "error"
	}
	metrics.RedisOpsTotal.WithLabelValues(operation, status).Inc()
	metrics.RedisOpDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
