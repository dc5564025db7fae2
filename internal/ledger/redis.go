package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCmdable is the subset of *redis.Client the ledger needs.
type RedisCmdable interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisLedger stores one key per record so each can carry its own TTL.
type RedisLedger struct {
	rdb       RedisCmdable
	retention time.Duration
	now       func() time.Time
}

// NewRedisLedger wraps rdb. retention <= 0 stores keys without expiry.
func NewRedisLedger(rdb RedisCmdable, retention time.Duration) *RedisLedger {
	if retention < 0 {
		retention = 0
	}
	return &RedisLedger{rdb: rdb, retention: retention, now: time.Now}
}

func connKey(connID, code string) string   { return "ledger:conn:" + code + ":" + connID }
func nameKey(username, code string) string { return "ledger:name:" + code + ":" + username }

func (l *RedisLedger) RecordLeft(ctx context.Context, connID, username, code string) error {
	at := strconv.FormatInt(l.now().Unix(), 10)
	if connID != "" {
		if err := l.rdb.Set(ctx, connKey(connID, code), at, l.retention).Err(); err != nil {
			return fmt.Errorf("ledger: record conn %s: %w", code, err)
		}
	}
	if username != "" {
		if err := l.rdb.Set(ctx, nameKey(username, code), at, l.retention).Err(); err != nil {
			return fmt.Errorf("ledger: record name %s: %w", code, err)
		}
	}
	return nil
}

func (l *RedisLedger) HasLeftConn(ctx context.Context, connID, code string) (bool, error) {
	return l.exists(ctx, connKey(connID, code))
}

func (l *RedisLedger) HasLeftName(ctx context.Context, username, code string) (bool, error) {
	return l.exists(ctx, nameKey(username, code))
}

func (l *RedisLedger) exists(ctx context.Context, key string) (bool, error) {
	n, err := l.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("ledger: lookup: %w", err)
	}
	return n > 0, nil
}
