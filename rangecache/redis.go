package rangecache

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/gomodule/redigo/redis"
)

// Redis stores range lists in Redis as newline-separated CIDR text, the same
// format the range endpoints serve.
type Redis struct {
	pool   *redis.Pool
	prefix string
}

// NewRedis creates a cache using pool. Keys are prepended with prefix.
func NewRedis(pool *redis.Pool, prefix string) *Redis {
	return &Redis{pool: pool, prefix: prefix}
}

// NewPool creates a redigo pool dialing addr.
func NewPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     4,
		IdleTimeout: 240 * time.Second,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr)
		},
		TestOnBorrow: func(conn redis.Conn, lastUsed time.Time) error {
			if time.Since(lastUsed) < time.Minute {
				return nil
			}
			_, err := conn.Do("PING")
			return err
		},
	}
}

// Get returns the cached list for key. A missing key is a miss, not an error.
func (c *Redis) Get(ctx context.Context, key string) ([]netip.Prefix, bool, error) {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("redis connection: %w", err)
	}
	defer conn.Close()

	body, err := redis.String(redis.DoContext(conn, ctx, "GET", c.prefix+key))
	if errors.Is(err, redis.ErrNil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis GET %s: %w", c.prefix+key, err)
	}

	prefixes, err := decode(body)
	if err != nil {
		return nil, false, fmt.Errorf("redis GET %s: %w", c.prefix+key, err)
	}
	if len(prefixes) == 0 {
		return nil, false, nil
	}

	return prefixes, true, nil
}

// Set stores prefixes under key for ttl. A zero ttl never expires.
func (c *Redis) Set(ctx context.Context, key string, prefixes []netip.Prefix, ttl time.Duration) error {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis connection: %w", err)
	}
	defer conn.Close()

	args := []any{c.prefix + key, encode(prefixes)}
	if ttl > 0 {
		args = append(args, "PX", ttl.Milliseconds())
	}

	if _, err := redis.DoContext(conn, ctx, "SET", args...); err != nil {
		return fmt.Errorf("redis SET %s: %w", c.prefix+key, err)
	}
	return nil
}

// Delete removes key.
func (c *Redis) Delete(ctx context.Context, key string) error {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis connection: %w", err)
	}
	defer conn.Close()

	if _, err := redis.DoContext(conn, ctx, "DEL", c.prefix+key); err != nil {
		return fmt.Errorf("redis DEL %s: %w", c.prefix+key, err)
	}
	return nil
}

func encode(prefixes []netip.Prefix) string {
	var b strings.Builder
	for _, prefix := range prefixes {
		b.WriteString(prefix.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func decode(body string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for line := range strings.SplitSeq(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		prefix, err := netip.ParsePrefix(line)
		if err != nil {
			return nil, fmt.Errorf("decode cached range %q: %w", line, err)
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes, nil
}
