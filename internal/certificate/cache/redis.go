// Package cache provides the Redis-backed verification cache. Only
// non-revoked certificate snapshots are cached; revocation tombstones the
// entry so a stale hit can never report a revoked certificate as valid.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"credentry/internal/certificate/models"
	"credentry/pkg/domain"
)

const keyPrefix = "cert:verify:"

// tombstone marks a revoked certificate. Invalidate writes it instead of
// deleting the key, and Put never overwrites an existing value, so a
// verification that read the record before the revocation committed cannot
// resurrect the snapshot afterwards.
const tombstone = "revoked"

// VerifyCache memoizes verification snapshots of non-revoked certificates.
type VerifyCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewVerifyCache(client redis.Cmdable, ttl time.Duration) *VerifyCache {
	return &VerifyCache{client: client, ttl: ttl}
}

func key(id domain.CertificateID) string {
	return fmt.Sprintf("%s%d", keyPrefix, uint64(id))
}

// Get returns the cached snapshot for id. The second return reports a hit;
// tombstones, cache errors, and decode errors are returned as misses so
// verification falls through to the store.
func (c *VerifyCache) Get(ctx context.Context, id domain.CertificateID) (models.VerifySnapshot, bool) {
	raw, err := c.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		return models.VerifySnapshot{}, false
	}
	if string(raw) == tombstone {
		return models.VerifySnapshot{}, false
	}
	var snap models.VerifySnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return models.VerifySnapshot{}, false
	}
	return snap, true
}

// Put caches the snapshot of a non-revoked certificate. SetNX leaves any
// existing entry alone, tombstones included.
func (c *VerifyCache) Put(ctx context.Context, id domain.CertificateID, snap models.VerifySnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode verify snapshot: %w", err)
	}
	return c.client.SetNX(ctx, key(id), raw, c.ttl).Err()
}

// Invalidate tombstones the entry after a revocation. Revocation is one-way,
// so the tombstone holds the full TTL.
func (c *VerifyCache) Invalidate(ctx context.Context, id domain.CertificateID) error {
	return c.client.Set(ctx, key(id), tombstone, c.ttl).Err()
}
