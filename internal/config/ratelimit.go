package config

import (
    "strings"
    "time"
)

// Rate limit key strategies.  The default keys on staff id and route so
// one operator hammering a single tour does not throttle colleagues.
var rateKeyStrategies = map[string]bool{
    "ip": true, "user": true, "route": true,
    "ip_user": true, "ip_route": true, "user_route": true, "ip_user_route": true,
}

// RateLimitConfig drives the Redis token bucket in front of /v1/tours.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int           // bucket size
    RefillTokens   int           // tokens added per interval
    RefillInterval time.Duration // refill period
    TTL            time.Duration // idle bucket expiry
    KeyStrategy    string
    Prefix         string
    Debug          bool // log every blocked request
}

func LoadRateLimitConfig() RateLimitConfig {
    c := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 30),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    strings.ToLower(envStr("RATE_LIMIT_KEY_STRATEGY", "user_route")),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "tb:rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    return c.normalize()
}

func (c RateLimitConfig) normalize() RateLimitConfig {
    if c.Capacity < 1 {
        c.Capacity = 1
    }
    if c.RefillTokens < 1 {
        c.RefillTokens = 1
    }
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
        c.TTL = minTTL
    }
    if !rateKeyStrategies[c.KeyStrategy] {
        c.KeyStrategy = "user_route"
    }
    return c
}
