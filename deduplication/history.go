package deduplication

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"weeklyreport/types"

	"github.com/redis/go-redis/v9"
)

// History remembers which articles already went into an earlier week's
// report. Re-running the same week never filters its own articles.
type History interface {
	Seen(ctx context.Context, key types.Key, week string) (bool, error)
	Mark(ctx context.Context, key types.Key, week string) error
}

// HistoryConfig configures the Redis connection
type HistoryConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
	TTL      time.Duration
}

// RedisHistory stores, per article, the week it was first reported in.
type RedisHistory struct {
	client redis.Cmdable
	closer func() error
	ttl    time.Duration
}

const historyKeyPrefix = "weeklyreport:seen:"

// NewRedisHistory connects to Redis and verifies connectivity
func NewRedisHistory(ctx context.Context, cfg HistoryConfig) (*RedisHistory, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisHistory{client: client, closer: client.Close, ttl: cfg.TTL}, nil
}

// NewRedisHistoryWithClient wraps an existing client
func NewRedisHistoryWithClient(client redis.Cmdable, ttl time.Duration) *RedisHistory {
	return &RedisHistory{client: client, ttl: ttl}
}

// Close closes the underlying Redis client
func (r *RedisHistory) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}

// Seen reports whether key was recorded under a week other than week
func (r *RedisHistory) Seen(ctx context.Context, key types.Key, week string) (bool, error) {
	stored, err := r.client.Get(ctx, HashKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored != week, nil
}

// Mark records key under week unless it is already recorded.
func (r *RedisHistory) Mark(ctx context.Context, key types.Key, week string) error {
	return r.client.SetNX(ctx, HashKey(key), week, r.ttl).Err()
}

// HashKey returns the Redis key for an identity key
func HashKey(key types.Key) string {
	h := sha256.Sum256([]byte(key.String()))
	return historyKeyPrefix + hex.EncodeToString(h[:])
}

// FilterSeen drops articles the history places in an earlier week. History
// errors are logged and the article is kept.
func FilterSeen(ctx context.Context, h History, articles []types.Article, week string, log *slog.Logger) ([]types.Article, int) {
	if h == nil {
		return articles, 0
	}
	out := make([]types.Article, 0, len(articles))
	skipped := 0
	for _, a := range articles {
		seen, err := h.Seen(ctx, a.IdentityKey(), week)
		if err != nil {
			log.Warn("History lookup failed; keeping article", "url", a.URL, "error", err)
			out = append(out, a)
			continue
		}
		if seen {
			skipped++
			log.Debug("Already reported in an earlier week", "title", a.Title)
			continue
		}
		out = append(out, a)
	}
	return out, skipped
}

// MarkAll records the final weekly set. Failures are logged only.
func MarkAll(ctx context.Context, h History, articles []types.Article, week string, log *slog.Logger) {
	if h == nil {
		return
	}
	for _, a := range articles {
		if err := h.Mark(ctx, a.IdentityKey(), week); err != nil {
			log.Warn("Failed to record article in history", "url", a.URL, "error", err)
		}
	}
}
