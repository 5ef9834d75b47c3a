package rediscache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brightloop/geoscore-backend/internal/pkg/envutil"
	"github.com/brightloop/geoscore-backend/internal/pkg/logger"
)

// NewClient connects to redis when REDIS_ADDR is set and returns nil when it
// is not. Callers treat a nil client as "cache disabled".
func NewClient(log *logger.Logger) *redis.Client {
	addr := strings.TrimSpace(envutil.Str("REDIS_ADDR", ""))
	if addr == "" {
		log.Info("redis disabled (REDIS_ADDR not set)")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: envutil.Str("REDIS_PASSWORD", ""),
		DB:       envutil.Int("REDIS_DB", 0),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, continuing without cache", "addr", addr, "error", err)
		rdb.Close()
		return nil
	}
	log.Info("redis connected", "addr", addr)
	return rdb
}
