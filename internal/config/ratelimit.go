package config

import "time"

// RateLimitConfig drives the Redis token bucket in front of the API.  The
// auth endpoints get their own, stricter bucket so that credential
// guessing is throttled independently of catalog browsing.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	AuthCapacity   int
	Debug          bool
}

func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		AuthCapacity:   envInt("RATE_LIMIT_AUTH_CAPACITY", 10),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.AuthCapacity < 1 {
		cfg.AuthCapacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}

// ForAuth returns a copy of the config with the auth bucket size and a
// separate key prefix.
func (c RateLimitConfig) ForAuth() RateLimitConfig {
	c.Capacity = c.AuthCapacity
	c.Prefix = c.Prefix + ":auth"
	c.KeyStrategy = "ip_route"
	return c
}
