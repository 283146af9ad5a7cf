package identity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nigersavoir/savoir-api/internal/redisx"
)

// CachedResolver keeps resolved accounts in redis for a short TTL. Cache
// failures are ignored; the database stays the source of truth.
type CachedResolver struct {
	Next  Resolver
	Redis *redis.Client
}

func (c *CachedResolver) ResolveByEmail(ctx context.Context, email string) (*User, error) {
	key := fmt.Sprintf(redisx.KeyIdentity, email)
	if s, err := c.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		var u User
		if err := json.Unmarshal([]byte(s), &u); err == nil {
			return &u, nil
		}
	}

	u, err := c.Next.ResolveByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(u); err == nil {
		_ = c.Redis.Set(ctx, key, b, redisx.TTLIdentity).Err()
	}
	return u, nil
}
