package config

// Redis backs the rate limiter and the catalog response cache.  Neither is
// required for correctness: when the server cannot be reached the client
// constructor returns nil and both middlewares pass requests through.

import (
	"context"
	"crypto/tls"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from the environment:
//   REDIS_ADDR (host:port) or REDIS_HOST + REDIS_PORT, default localhost:6379
//   REDIS_PASSWORD, REDIS_DB (default 0), REDIS_TLS ("true"/"1")
func RedisOptions() *redis.Options {
	addr := os.Getenv("REDIS_ADDR")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	opts := &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       envInt("REDIS_DB", 0),
	}
	if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// NewRedisClient connects using RedisOptions and pings with a short
// timeout.  It returns nil if the server does not answer.
func NewRedisClient() *redis.Client {
	client := redis.NewClient(RedisOptions())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
