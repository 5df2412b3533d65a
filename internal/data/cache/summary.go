package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

const (
	DefaultSummaryTTL = 30 * time.Second
	summaryKeyPrefix  = "upwise:summary:"
	genKeyPrefix      = "upwise:summary-gen:"
)

// generationTTL outlives any summary entry; a counter that expires only
// resets to zero once no entry built against it can still be pending.
const generationTTL = 24 * time.Hour

// Entry is one cache lookup. Raw is nil on a miss. Generation is the user's
// invalidation counter at the time of the read.
type Entry struct {
	Raw        []byte
	Generation int64
}

func (e Entry) Hit() bool { return e.Raw != nil }

// SummaryCache stores encoded progress summaries per user.
type SummaryCache interface {
	Get(ctx context.Context, userID uuid.UUID) (Entry, error)
	// Set stores raw only when no Invalidate ran since the Get that returned
	// generation, so a summary built from pre-mutation reads is dropped.
	Set(ctx context.Context, userID uuid.UUID, generation int64, raw []byte) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

type redisSummaryCache struct {
	log *logger.Logger
	rdb goredis.UniversalClient
	ttl time.Duration
}

func NewRedisSummaryCache(rdb goredis.UniversalClient, ttl time.Duration, baseLog *logger.Logger) SummaryCache {
	if ttl <= 0 {
		ttl = DefaultSummaryTTL
	}
	return &redisSummaryCache{
		log: baseLog.With("cache", "RedisSummaryCache"),
		rdb: rdb,
		ttl: ttl,
	}
}

// Both keys share a hash tag so the compare-and-set script stays on one
// cluster slot.
func SummaryKey(userID uuid.UUID) string {
	return summaryKeyPrefix + "{" + userID.String() + "}"
}

func GenerationKey(userID uuid.UUID) string {
	return genKeyPrefix + "{" + userID.String() + "}"
}

var setIfGeneration = goredis.NewScript(`
local gen = redis.call('GET', KEYS[1])
if (gen or '0') ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

func (c *redisSummaryCache) Get(ctx context.Context, userID uuid.UUID) (Entry, error) {
	var genCmd, rawCmd *goredis.StringCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		genCmd = pipe.Get(ctx, GenerationKey(userID))
		rawCmd = pipe.Get(ctx, SummaryKey(userID))
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return Entry{}, fmt.Errorf("summary cache get: %w", err)
	}
	var out Entry
	gen, err := genCmd.Int64()
	switch {
	case errors.Is(err, goredis.Nil):
	case err != nil:
		return Entry{}, fmt.Errorf("summary cache generation: %w", err)
	default:
		out.Generation = gen
	}
	raw, err := rawCmd.Bytes()
	switch {
	case errors.Is(err, goredis.Nil):
	case err != nil:
		return Entry{}, fmt.Errorf("summary cache get: %w", err)
	default:
		out.Raw = raw
	}
	return out, nil
}

func (c *redisSummaryCache) Set(ctx context.Context, userID uuid.UUID, generation int64, raw []byte) error {
	keys := []string{GenerationKey(userID), SummaryKey(userID)}
	stored, err := setIfGeneration.Run(ctx, c.rdb, keys, strconv.FormatInt(generation, 10), raw, c.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("summary cache set: %w", err)
	}
	if stored == 0 {
		c.log.Debug("stale summary dropped", "user_id", userID, "generation", generation)
	}
	return nil
}

func (c *redisSummaryCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Incr(ctx, GenerationKey(userID))
		pipe.Expire(ctx, GenerationKey(userID), generationTTL)
		pipe.Del(ctx, SummaryKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("summary cache invalidate: %w", err)
	}
	return nil
}

type noopSummaryCache struct{}

// NewNoopSummaryCache never stores anything; every Get misses.
func NewNoopSummaryCache() SummaryCache { return noopSummaryCache{} }

func (noopSummaryCache) Get(context.Context, uuid.UUID) (Entry, error)       { return Entry{}, nil }
func (noopSummaryCache) Set(context.Context, uuid.UUID, int64, []byte) error { return nil }
func (noopSummaryCache) Invalidate(context.Context, uuid.UUID) error         { return nil }
