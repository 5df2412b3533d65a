package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/upwise-backend/internal/data/cache"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
	"github.com/yungbote/upwise-backend/internal/realtime/bus"
)

// Clients holds the optional Redis-backed collaborators. Without REDIS_ADDR
// every field is nil and the app runs single-replica.
type Clients struct {
	Redis        goredis.UniversalClient
	SSEBus       bus.Bus
	SummaryCache cache.SummaryCache
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set; using in-process events and no summary cache")
		return Clients{}, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return Clients{}, fmt.Errorf("redis ping: %w", err)
	}

	sseBus, err := bus.NewRedisBus(log, rdb, cfg.RedisSSEChannel)
	if err != nil {
		_ = rdb.Close()
		return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
	}

	return Clients{
		Redis:        rdb,
		SSEBus:       sseBus,
		SummaryCache: cache.NewRedisSummaryCache(rdb, cfg.SummaryCacheTTL, log),
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
