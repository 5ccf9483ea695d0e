// Package capacity reports this server's room count to the external
// capacity tracker. Reporting is fire-and-forget: a miss is logged and
// the next room create or delete publishes a fresh count anyway.
package capacity

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/someonesays/roomserver/internal/domain"
)

// Reporter publishes the current room count for a server instance.
type Reporter interface {
	ReportRoomCount(ctx context.Context, serverID domain.ServerID, count int) error
}

// RedisReporter writes the count to servers:<id>:rooms.
type RedisReporter struct {
	client *redis.Client
}

func NewRedisReporter(client *redis.Client) *RedisReporter {
	return &RedisReporter{client: client}
}

func (r *RedisReporter) ReportRoomCount(ctx context.Context, serverID domain.ServerID, count int) error {
	key := fmt.Sprintf("servers:%s:rooms", serverID)
	if err := r.client.Set(ctx, key, count, 0).Err(); err != nil {
		return fmt.Errorf("report room count: %w", err)
	}
	return nil
}

// ReportAsync runs the report on its own goroutine with a short
// deadline. Eventual consistency is acceptable here, so errors are
// logged and never retried inline.
func ReportAsync(rep Reporter, serverID domain.ServerID, count int) {
	if rep == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rep.ReportRoomCount(ctx, serverID, count); err != nil {
			log.Warn().Err(err).Str("module", "capacity").Int("count", count).Msg("room count report failed")
		}
	}()
}
