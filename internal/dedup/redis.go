package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"ledgerbot/internal/log"
)

const defaultKeyPrefix = "ledgerbot:dedup:"

// RedisFilter shares the seen set between replicas and across restarts.
// When Redis is unreachable it fails open: the message is processed and a
// warning is logged.
type RedisFilter struct {
	client redis.UniversalClient
	window time.Duration
	prefix string
	logger *log.Logger
}

func NewRedisFilter(client redis.UniversalClient, window time.Duration, logger *log.Logger) *RedisFilter {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &RedisFilter{
		client: client,
		window: window,
		prefix: defaultKeyPrefix,
		logger: logger.WithComponent(log.ComponentDedup),
	}
}

func (f *RedisFilter) ShouldProcess(ctx context.Context, id string) bool {
	ok, err := f.client.SetNX(ctx, f.prefix+id, 1, f.window).Result()
	if err != nil {
		f.logger.WarnContext(ctx, "Duplicate filter unavailable, processing message",
			log.FieldMessageID, id,
			log.FieldError, err.Error())
		return true
	}
	return ok
}

// Ping checks connectivity at startup.
func (f *RedisFilter) Ping(ctx context.Context) error {
	return f.client.Ping(ctx).Err()
}

func (f *RedisFilter) Close() error {
	return f.client.Close()
}
