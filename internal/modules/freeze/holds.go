// README: Per-car creation locks backed by Redis.
package freeze

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

const (
	holdKeyPrefix = "freeze:car:%s:hold"
	// Long enough to cover the overlap checks and the insert.
	holdTTL = 10 * time.Second
)

// RedisHolds serializes concurrent freeze creation on the same car. The
// database overlap checks are authoritative; the lock only closes the
// check-then-insert window between two racing requests.
type RedisHolds struct {
	redis *redis.Client
}

func NewRedisHolds(redis *redis.Client) *RedisHolds {
	return &RedisHolds{redis: redis}
}

// TryAcquire takes the per-car creation lock. Returns false when another
// request currently holds it.
func (h *RedisHolds) TryAcquire(ctx context.Context, carID types.ID) (bool, error) {
	return h.redis.SetNX(ctx, holdKey(carID), "1", holdTTL).Result()
}

func (h *RedisHolds) Release(ctx context.Context, carID types.ID) error {
	return h.redis.Del(ctx, holdKey(carID)).Err()
}

func holdKey(carID types.ID) string {
	return fmt.Sprintf(holdKeyPrefix, string(carID))
}
