// Package trace stamps every Telegram update with a trace id and logs how
// long it took to handle.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ledgerbot/internal/log"
)

// Handler processes one update.
type Handler func(ctx context.Context, upd tgbotapi.Update)

// Tracer wraps update handlers with trace ids, timing and counters.
type Tracer struct {
	logger  *log.Logger
	metrics *Metrics
	now     func() time.Time
}

// Metrics tracks update handling
type Metrics struct {
	TotalUpdates int64
	// LastDuration is the most recent handling time in microseconds.
	LastDuration int64
	InFlight     int64
}

func NewTracer(logger *log.Logger) *Tracer {
	if logger == nil {
		logger = log.Discard()
	}
	return &Tracer{
		logger:  logger.WithComponent(log.ComponentBot),
		metrics: &Metrics{},
		now:     time.Now,
	}
}

// Wrap returns next with tracing around it. The trace id goes into the
// context, so every log line written with it downstream carries the id.
func (t *Tracer) Wrap(next Handler) Handler {
	return func(ctx context.Context, upd tgbotapi.Update) {
		start := t.now()
		traceID := GenerateTraceID()

		ctx = log.WithTrace(ctx, traceID, upd.UpdateID)

		atomic.AddInt64(&t.metrics.TotalUpdates, 1)
		atomic.AddInt64(&t.metrics.InFlight, 1)
		defer atomic.AddInt64(&t.metrics.InFlight, -1)

		t.logger.DebugContext(ctx, "Update started", "kind", kind(upd))

		next(ctx, upd)

		duration := t.now().Sub(start)
		atomic.StoreInt64(&t.metrics.LastDuration, duration.Microseconds())

		t.logger.DebugContext(ctx, "Update completed",
			log.FieldDuration, duration.Milliseconds(),
			"duration_human", duration.String())
	}
}

func kind(upd tgbotapi.Update) string {
	switch {
	case upd.CallbackQuery != nil:
		return "callback"
	case upd.Message != nil && upd.Message.IsCommand():
		return "command"
	case upd.Message != nil:
		return "message"
	default:
		return "other"
	}
}

// GenerateTraceID creates a unique id for one update
func GenerateTraceID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("upd_%d", time.Now().UnixNano())
	}
	return "upd_" + hex.EncodeToString(bytes)
}

// GetTraceID extracts the trace ID from context
func GetTraceID(ctx context.Context) string {
	return log.TraceID(ctx)
}

// GetMetrics returns current metrics
func (t *Tracer) GetMetrics() Metrics {
	return Metrics{
		TotalUpdates: atomic.LoadInt64(&t.metrics.TotalUpdates),
		LastDuration: atomic.LoadInt64(&t.metrics.LastDuration),
		InFlight:     atomic.LoadInt64(&t.metrics.InFlight),
	}
}
