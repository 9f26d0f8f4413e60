package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 5 * time.Second

var errNoAddr = errors.New("redis: address is empty")

// Config describes the Redis instance holding revocation cutoffs.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Timeout bounds dialing and every command. Defaults to 5s.
	Timeout time.Duration
}

func (c Config) clientOptions() (*redis.Options, error) {
	if c.Addr == "" {
		return nil, errNoAddr
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}, nil
}

// Connect opens the client and pings it once so a bad address fails startup.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	opts, err := cfg.clientOptions()
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := Ping(client)(pingCtx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Ping adapts client to a readiness check.
func Ping(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		return nil
	}
}
