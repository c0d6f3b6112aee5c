package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoLoader is returned by FetchJSON when called without a loader.
var ErrNoLoader = errors.New("cache: loader required")

// Versioned caches JSON documents under a namespace generation. Keys embed
// the generation, so Bump orphans every entry written before it and lets
// the TTL reclaim them.
type Versioned struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewVersioned returns a cache for namespace. A nil client disables caching.
func NewVersioned(client *redis.Client, namespace string, ttl time.Duration) *Versioned {
	return &Versioned{client: client, namespace: namespace, ttl: ttl}
}

func (c *Versioned) enabled() bool { return c != nil && c.client != nil }

func (c *Versioned) generationKey() string { return c.namespace + ":gen" }

// Version reports the live generation, seeding it at 1 on first use.
func (c *Versioned) Version(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	var get *redis.StringCmd
	_, err := c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.SetNX(ctx, c.generationKey(), 1, 0)
		get = p.Get(ctx, c.generationKey())
		return nil
	})
	if err != nil {
		return 0, err
	}
	return get.Int64()
}

// BuildKey joins parts under the namespace and tags the result with the
// live generation, e.g. "dashboard:user:7:v3".
func (c *Versioned) BuildKey(ctx context.Context, parts ...string) (string, error) {
	tail := strings.Join(parts, ":")
	if c == nil {
		return tail, nil
	}
	base := c.namespace + ":" + tail
	if c.client == nil {
		return base, nil
	}
	gen, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return base + ":v" + strconv.FormatInt(gen, 10), nil
}

// FetchJSON decodes the document stored at key into dest. On a miss the
// loader result is stored with the cache TTL before being decoded.
func (c *Versioned) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return ErrNoLoader
	}
	if c.enabled() {
		raw, err := c.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			return json.Unmarshal(raw, dest)
		case !errors.Is(err, redis.Nil):
			return err
		}
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c.enabled() {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return err
		}
	}
	return json.Unmarshal(raw, dest)
}

// Bump moves the namespace to a new generation.
func (c *Versioned) Bump(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Incr(ctx, c.generationKey()).Err()
}
