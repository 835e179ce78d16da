// internal/cache/redis.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/tresillo/internal/config"
	"github.com/redis/go-redis/v9"
)

// Connect builds a Redis client from cfg and pings it. It returns a nil client
// and no error when Redis is not configured.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

// joinScript pushes a client onto a mode queue and, once the queue holds need
// entries, pops that many oldest entries in one step.
var joinScript = redis.NewScript(`
redis.call('LPUSH', KEYS[1], ARGV[1])
local need = tonumber(ARGV[2])
if redis.call('LLEN', KEYS[1]) < need then
  return {}
end
local out = {}
for i = 1, need do
  out[i] = redis.call('RPOP', KEYS[1])
end
return out
`)

// Queue holds the matchmaking lists, one per mode, and the match assignments.
type Queue struct {
	rdb    *redis.Client
	prefix string
}

// NewQueue wraps rdb. Lists are named prefix+mode.
func NewQueue(rdb *redis.Client, prefix string) *Queue {
	return &Queue{rdb: rdb, prefix: prefix}
}

func (q *Queue) key(mode string) string {
	return q.prefix + mode
}

func matchKey(clientID string) string {
	return "match:" + clientID
}

// Join enqueues clientID. When the list reaches need entries it returns the
// popped group, oldest first; otherwise it returns nil.
func (q *Queue) Join(ctx context.Context, mode, clientID string, need int) ([]string, error) {
	group, err := joinScript.Run(ctx, q.rdb, []string{q.key(mode)}, clientID, need).StringSlice()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("join queue %s: %w", mode, err)
	}
	if len(group) == 0 {
		return nil, nil
	}
	return group, nil
}

// Len is the number of clients waiting for mode.
func (q *Queue) Len(ctx context.Context, mode string) (int64, error) {
	n, err := q.rdb.LLen(ctx, q.key(mode)).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length %s: %w", mode, err)
	}
	return n, nil
}

// Leave removes every entry of clientID from the mode queue.
func (q *Queue) Leave(ctx context.Context, mode, clientID string) error {
	if err := q.rdb.LRem(ctx, q.key(mode), 0, clientID).Err(); err != nil {
		return fmt.Errorf("leave queue %s: %w", mode, err)
	}
	return nil
}

// SetMatch records the room a matched client should join.
func (q *Queue) SetMatch(ctx context.Context, clientID, roomID string, ttl time.Duration) error {
	if err := q.rdb.Set(ctx, matchKey(clientID), roomID, ttl).Err(); err != nil {
		return fmt.Errorf("store match for %s: %w", clientID, err)
	}
	return nil
}

// Match returns the room assigned to clientID, if any.
func (q *Queue) Match(ctx context.Context, clientID string) (string, bool, error) {
	roomID, err := q.rdb.Get(ctx, matchKey(clientID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load match for %s: %w", clientID, err)
	}
	return roomID, true, nil
}
