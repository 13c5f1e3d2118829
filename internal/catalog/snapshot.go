package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/pkg/redis"
	"github.com/angelmondragon/storefront/pkg/types"
)

// SnapshotCache keeps the last full product list for a short time.
type SnapshotCache interface {
	Load(ctx context.Context) ([]types.Product, bool, error)
	Store(ctx context.Context, products []types.Product) error
	Drop(ctx context.Context) error
}

// MemorySnapshots is the single-instance cache.
type MemorySnapshots struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	products []types.Product
	storedAt time.Time
	valid    bool
}

func NewMemorySnapshots(ttl time.Duration, now func() time.Time) *MemorySnapshots {
	if now == nil {
		now = time.Now
	}
	return &MemorySnapshots{ttl: ttl, now: now}
}

func (m *MemorySnapshots) Load(context.Context) ([]types.Product, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.valid || m.ttl <= 0 || m.now().Sub(m.storedAt) >= m.ttl {
		return nil, false, nil
	}
	return append([]types.Product(nil), m.products...), true, nil
}

func (m *MemorySnapshots) Store(_ context.Context, products []types.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = append([]types.Product(nil), products...)
	m.storedAt = m.now()
	m.valid = true
	return nil
}

func (m *MemorySnapshots) Drop(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = nil
	m.valid = false
	return nil
}

type snapshotRedis interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CatalogSnapshotKey() string
}

// RedisSnapshots shares the snapshot between storefront instances so an
// admin write on one instance invalidates it for all.
type RedisSnapshots struct {
	client snapshotRedis
	ttl    time.Duration
}

func NewRedisSnapshots(client *redis.Client, ttl time.Duration) (*RedisSnapshots, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return &RedisSnapshots{client: client, ttl: ttl}, nil
}

func (r *RedisSnapshots) Load(ctx context.Context) ([]types.Product, bool, error) {
	if r.ttl <= 0 {
		return nil, false, nil
	}
	raw, err := r.client.Get(ctx, r.client.CatalogSnapshotKey())
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var products []types.Product
	if err := json.Unmarshal([]byte(raw), &products); err != nil {
		return nil, false, fmt.Errorf("decode catalog snapshot: %w", err)
	}
	return products, true, nil
}

func (r *RedisSnapshots) Store(ctx context.Context, products []types.Product) error {
	if r.ttl <= 0 {
		return nil
	}
	encoded, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("encode catalog snapshot: %w", err)
	}
	return r.client.Set(ctx, r.client.CatalogSnapshotKey(), string(encoded), r.ttl)
}

func (r *RedisSnapshots) Drop(ctx context.Context) error {
	return r.client.Del(ctx, r.client.CatalogSnapshotKey())
}
