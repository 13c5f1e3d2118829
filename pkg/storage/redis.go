package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/redis"
)

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Touch(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Publish(ctx context.Context, channel string, payload any) error
	Subscribe(ctx context.Context, channels ...string) (*goredis.PubSub, error)
	Ping(ctx context.Context) error
	StorageKey(clientID, key string) string
	StorageChannel(clientID string) string
}

// Redis shares client storage across storefront instances. Entries expire
// after ttl of inactivity (reads and writes both renew it) and every mutation
// is published on the namespace's change channel.
type Redis struct {
	client redisStore
	ttl    time.Duration
	logg   *logger.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, logg *logger.Logger) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return &Redis{client: client, ttl: ttl, logg: logg}, nil
}

func (r *Redis) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	if namespace == "" {
		return "", false, ErrNamespaceRequired
	}
	storageKey := r.client.StorageKey(namespace, key)
	value, err := r.client.Get(ctx, storageKey)
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := r.client.Touch(ctx, storageKey, r.ttl); err != nil && r.logg != nil {
		r.logg.Warn(r.logg.WithFields(ctx, map[string]any{"key": key, "error": err.Error()}), "storage.touch_failed")
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, namespace, key, value string) error {
	if namespace == "" {
		return ErrNamespaceRequired
	}
	if err := r.client.Set(ctx, r.client.StorageKey(namespace, key), value, r.ttl); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return r.publish(ctx, Change{Namespace: namespace, Key: key})
}

func (r *Redis) Remove(ctx context.Context, namespace string, keys ...string) error {
	if namespace == "" {
		return ErrNamespaceRequired
	}
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = r.client.StorageKey(namespace, key)
	}
	if err := r.client.Del(ctx, full...); err != nil {
		return fmt.Errorf("remove %v: %w", keys, err)
	}
	for _, key := range keys {
		if err := r.publish(ctx, Change{Namespace: namespace, Key: key, Removed: true}); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe delivers changes on a dedicated goroutine until cancel is called
// or ctx ends.
func (r *Redis) Subscribe(ctx context.Context, namespace string, fn Listener) (func(), error) {
	if namespace == "" {
		return nil, ErrNamespaceRequired
	}
	ps, err := r.client.Subscribe(ctx, r.client.StorageChannel(namespace))
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range ps.Channel() {
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				if r.logg != nil {
					r.logg.Warn(r.logg.WithField(ctx, "payload", msg.Payload), "storage.change_decode_failed")
				}
				continue
			}
			fn(change)
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = ps.Close()
			<-done
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return cancel, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

func (r *Redis) publish(ctx context.Context, change Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.client.StorageChannel(change.Namespace), payload); err != nil {
		return fmt.Errorf("publish change for %s: %w", change.Key, err)
	}
	return nil
}
