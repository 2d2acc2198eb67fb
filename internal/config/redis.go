package config

import (
    "context"
    "crypto/tls"
    "net"
    "time"

    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"
)

// RedisConfig locates the Redis server used for rate limiting and the
// roster lock.
//
//   REDIS_ADDR       host:port shorthand
//   REDIS_HOST/PORT  take precedence over REDIS_ADDR when both are set
//   REDIS_PASSWORD   optional
//   REDIS_DB         database number (default 0)
//   REDIS_TLS        enable TLS
type RedisConfig struct {
    Addr     string
    Password string
    DB       int
    TLS      bool
}

func LoadRedisConfig() RedisConfig {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
        addr = net.JoinHostPort(host, port)
    }
    return RedisConfig{
        Addr:     addr,
        Password: envStr("REDIS_PASSWORD", ""),
        DB:       envInt("REDIS_DB", 0),
        TLS:      envBool("REDIS_TLS", false),
    }
}

// NewRedisClient connects and pings with a short timeout.  It returns nil
// when Redis is unreachable; callers then run without rate limiting and
// without the roster lock.
func NewRedisClient(cfg RedisConfig, log *zap.Logger) *redis.Client {
    opts := &redis.Options{
        Addr:        cfg.Addr,
        Password:    cfg.Password,
        DB:          cfg.DB,
        DialTimeout: 2 * time.Second,
    }
    if cfg.TLS {
        opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(opts)

    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        if log != nil {
            log.Warn("redis ping failed", zap.String("addr", cfg.Addr), zap.Error(err))
        }
        _ = client.Close()
        return nil
    }
    return client
}
