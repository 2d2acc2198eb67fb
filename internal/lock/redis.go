// Package lock provides the advisory lock taken around roster edits of a
// sibling group.  It is a single-instance Redis lock: SET NX with a random
// token, released by a script that deletes the key only while it still
// holds that token.
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/tour-backoffice/internal/config"
	"github.com/iliyamo/tour-backoffice/internal/roster"
)

var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisLocker implements roster.Locker.
type RedisLocker struct {
	rdb *redis.Client
	cfg config.LockConfig
	log *zap.Logger
}

// New returns a RedisLocker.  rdb must not be nil.
func New(rdb *redis.Client, cfg config.LockConfig, log *zap.Logger) *RedisLocker {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisLocker{rdb: rdb, cfg: cfg, log: log}
}

// Lock takes the lock for key, polling every cfg.Retry for up to cfg.Wait.
// A lock still held after that returns roster.ErrGroupBusy.  The returned
// release func is safe to call more than once.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	full := l.key(key)
	token := uuid.NewString()
	deadline := time.Now().Add(l.cfg.Wait)
	for {
		ok, err := l.rdb.SetNX(ctx, full, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return l.releaser(full, token), nil
		}
		if !time.Now().Before(deadline) {
			return nil, roster.ErrGroupBusy
		}
		t := time.NewTimer(l.cfg.Retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (l *RedisLocker) key(k string) string {
	if l.cfg.Prefix == "" {
		return k
	}
	return l.cfg.Prefix + ":" + k
}

func (l *RedisLocker) releaser(full, token string) func() {
	done := false
	return func() {
		if done {
			return
		}
		done = true
		// The request context may already be cancelled here.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.rdb, []string{full}, token).Err(); err != nil {
			l.log.Warn("release roster lock failed; it will expire", zap.String("key", full), zap.Error(err))
		}
	}
}
