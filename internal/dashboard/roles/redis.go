package roles

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis backs the role cache with a shared Redis instance, letting multiple
// dashboard replicas observe the same invalidations.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis wraps client. Keys expire after ttl as a backstop; the resolver
// still applies its own staleness check via Entry.FetchedAt.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func key(identifier string) string { return "scholarhub:role:" + identifier }

func (r *Redis) Get(ctx context.Context, identifier string) (Entry, bool, error) {
	raw, err := r.client.Get(ctx, key(identifier)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (r *Redis) Put(ctx context.Context, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key(e.Identifier), raw, r.ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context, identifier string) error {
	return r.client.Del(ctx, key(identifier)).Err()
}
