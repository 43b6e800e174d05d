package identity

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// RoleCache is a Store whose RoleExists answers are cached for ttl. The role
// set only changes through migrations, so stale entries are harmless.
type RoleCache struct {
	Store
	c *gocache.Cache
}

func NewRoleCache(store Store, ttl time.Duration) *RoleCache {
	return &RoleCache{Store: store, c: gocache.New(ttl, time.Minute)}
}

func (r *RoleCache) RoleExists(ctx context.Context, role string) (bool, error) {
	key := strings.ToUpper(role)
	if v, ok := r.c.Get(key); ok {
		if exists, ok := v.(bool); ok {
			return exists, nil
		}
	}

	exists, err := r.Store.RoleExists(ctx, role)
	if err != nil {
		return false, err
	}
	r.c.SetDefault(key, exists)
	return exists, nil
}
