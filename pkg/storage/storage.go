// Package storage holds the durable per-client key/value store that backs the
// storefront session. Every browser client owns one namespace; writes and
// removals are broadcast to subscribers of that namespace.
package storage

import (
	"context"
	"errors"
)

// Change describes one write or removal inside a namespace.
type Change struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Removed   bool   `json:"removed"`
}

// Listener receives change notifications. It must not hold on to values; it
// re-reads the storage instead.
type Listener func(Change)

// Backend is implemented by the memory and redis stores.
type Backend interface {
	Get(ctx context.Context, namespace, key string) (string, bool, error)
	Set(ctx context.Context, namespace, key, value string) error
	Remove(ctx context.Context, namespace string, keys ...string) error
	Subscribe(ctx context.Context, namespace string, fn Listener) (cancel func(), err error)
	Ping(ctx context.Context) error
}

var ErrNamespaceRequired = errors.New("storage namespace is required")

// Local is a namespace-bound view with the browser storage shape.
type Local struct {
	backend   Backend
	namespace string
}

func NewLocal(backend Backend, namespace string) (*Local, error) {
	if backend == nil {
		return nil, errors.New("storage backend required")
	}
	if namespace == "" {
		return nil, ErrNamespaceRequired
	}
	return &Local{backend: backend, namespace: namespace}, nil
}

func (l *Local) Namespace() string {
	return l.namespace
}

func (l *Local) GetItem(ctx context.Context, key string) (string, bool, error) {
	return l.backend.Get(ctx, l.namespace, key)
}

func (l *Local) SetItem(ctx context.Context, key, value string) error {
	return l.backend.Set(ctx, l.namespace, key, value)
}

func (l *Local) RemoveItem(ctx context.Context, keys ...string) error {
	return l.backend.Remove(ctx, l.namespace, keys...)
}

// Watch subscribes fn to changes made in this namespace by anyone.
func (l *Local) Watch(ctx context.Context, fn Listener) (func(), error) {
	return l.backend.Subscribe(ctx, l.namespace, fn)
}
