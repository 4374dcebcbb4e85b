// Package cache keeps rendered field trees so that the public endpoints do
// not walk the database on every request.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Rendered caches the rendered tree of a field, keyed by field id.
// Invalidate drops every entry at once: an edit to a template changes the
// rendering of every tree that references it.
type Rendered interface {
	Get(ctx context.Context, id string) (data []byte, ok bool, err error)
	Set(ctx context.Context, id string, data []byte) error
	Invalidate(ctx context.Context) error
}

const generationKey = "fields:gen"

type redisRendered struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRendered returns a cache backed by client. Entries are namespaced by a
// generation counter; bumping it makes every older entry unreachable until
// it expires.
func NewRendered(client *redis.Client, ttl time.Duration) Rendered {
	return &redisRendered{client: client, ttl: ttl}
}

func (c *redisRendered) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

func (c *redisRendered) key(gen int64, id string) string {
	return fmt.Sprintf("rendered:%d:%s", gen, id)
}

func (c *redisRendered) Get(ctx context.Context, id string) ([]byte, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, false, errors.Wrap(err, "cache.get.generation")
	}
	data, err := c.client.Get(ctx, c.key(gen, id)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "cache.get")
	}
	return data, true, nil
}

func (c *redisRendered) Set(ctx context.Context, id string, data []byte) error {
	gen, err := c.generation(ctx)
	if err != nil {
		return errors.Wrap(err, "cache.set.generation")
	}
	return errors.Wrap(c.client.Set(ctx, c.key(gen, id), data, c.ttl).Err(), "cache.set")
}

func (c *redisRendered) Invalidate(ctx context.Context) error {
	return errors.Wrap(c.client.Incr(ctx, generationKey).Err(), "cache.invalidate")
}

type nop struct{}

// Nop never holds anything. It stands in when no redis is configured.
var Nop Rendered = nop{}

func (nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (nop) Set(context.Context, string, []byte) error         { return nil }
func (nop) Invalidate(context.Context) error                  { return nil }
