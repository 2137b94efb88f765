package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"github.com/serhatipek/choreline/internal/ratelimit"
)

const keyPrefix = "choreline:ratelimit:"

// The window TTL is anchored to the first send: INCR starts the counter and
// only the key's creation sets the expiry, giving the same lazy-reset rolling
// window as the in-memory counter.
var recordScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

var _ ratelimit.Counter = (*Counter)(nil)

// Counter is a Redis-backed ratelimit.Counter for multi-instance deployments
// where all API replicas must share per-recipient send accounting.
type Counter struct {
	client *goredis.Client
	script *goredis.Script
}

func NewCounter(client *goredis.Client) (*Counter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &Counter{client: client, script: recordScript}, nil
}

func (c *Counter) Peek(ctx context.Context, key string) (int, error) {
	if c == nil || c.client == nil {
		return 0, fmt.Errorf("redis counter is not initialized")
	}
	if strings.TrimSpace(key) == "" {
		return 0, fmt.Errorf("recipient key is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	value, err := c.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read rate counter: %w", err)
	}

	count, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("unexpected rate counter value %q: %w", value, err)
	}
	return count, nil
}

func (c *Counter) Record(ctx context.Context, key string) error {
	if c == nil || c.client == nil || c.script == nil {
		return fmt.Errorf("redis counter is not initialized")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("recipient key is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	seconds := int(ratelimit.Window.Seconds())
	if err := c.script.Run(ctx, c.client, []string{keyPrefix + key}, seconds).Err(); err != nil {
		return fmt.Errorf("failed to record send: %w", err)
	}
	return nil
}

func (c *Counter) Active(ctx context.Context) (int, error) {
	if c == nil || c.client == nil {
		return 0, fmt.Errorf("redis counter is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	keys, err := c.client.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list rate counters: %w", err)
	}
	return len(keys), nil
}
