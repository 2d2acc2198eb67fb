package config

import "time"

// LockConfig controls the Redis advisory lock taken around roster edits.
type LockConfig struct {
    Enabled bool
    TTL     time.Duration // lock expiry, in case a holder dies
    Wait    time.Duration // how long to wait for a busy lock
    Retry   time.Duration // poll interval while waiting
    Prefix  string
}

func LoadLockConfig() LockConfig {
    c := LockConfig{
        Enabled: envBool("ROSTER_LOCK_ENABLED", true),
        TTL:     envDur("ROSTER_LOCK_TTL", 10*time.Second),
        Wait:    envDur("ROSTER_LOCK_WAIT", 2*time.Second),
        Retry:   envDur("ROSTER_LOCK_RETRY", 50*time.Millisecond),
        Prefix:  envStr("ROSTER_LOCK_PREFIX", "roster:lock"),
    }
    if c.TTL < time.Second {
        c.TTL = time.Second
    }
    if c.Retry <= 0 {
        c.Retry = 50 * time.Millisecond
    }
    if c.Wait < 0 {
        c.Wait = 0
    }
    return c
}
