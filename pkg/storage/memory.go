package storage

import (
	"context"
	"sync"
)

// Memory keeps client storage in process. Listeners run synchronously on the
// writer's goroutine after the store lock is released.
type Memory struct {
	mu        sync.Mutex
	values    map[string]map[string]string
	listeners map[string]map[int]Listener
	nextID    int
}

func NewMemory() *Memory {
	return &Memory{
		values:    make(map[string]map[string]string),
		listeners: make(map[string]map[int]Listener),
	}
}

func (m *Memory) Get(_ context.Context, namespace, key string) (string, bool, error) {
	if namespace == "" {
		return "", false, ErrNamespaceRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[namespace][key]
	return value, ok, nil
}

func (m *Memory) Set(_ context.Context, namespace, key, value string) error {
	if namespace == "" {
		return ErrNamespaceRequired
	}
	m.mu.Lock()
	bucket, ok := m.values[namespace]
	if !ok {
		bucket = make(map[string]string)
		m.values[namespace] = bucket
	}
	bucket[key] = value
	listeners := m.snapshotListeners(namespace)
	m.mu.Unlock()

	notify(listeners, Change{Namespace: namespace, Key: key})
	return nil
}

func (m *Memory) Remove(_ context.Context, namespace string, keys ...string) error {
	if namespace == "" {
		return ErrNamespaceRequired
	}
	m.mu.Lock()
	bucket := m.values[namespace]
	removed := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := bucket[key]; ok {
			delete(bucket, key)
			removed = append(removed, key)
		}
	}
	listeners := m.snapshotListeners(namespace)
	m.mu.Unlock()

	for _, key := range removed {
		notify(listeners, Change{Namespace: namespace, Key: key, Removed: true})
	}
	return nil
}

func (m *Memory) Subscribe(_ context.Context, namespace string, fn Listener) (func(), error) {
	if namespace == "" {
		return nil, ErrNamespaceRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	if m.listeners[namespace] == nil {
		m.listeners[namespace] = make(map[int]Listener)
	}
	m.listeners[namespace][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.listeners[namespace], id)
			if len(m.listeners[namespace]) == 0 {
				delete(m.listeners, namespace)
			}
		})
	}, nil
}

func (m *Memory) Ping(context.Context) error {
	return nil
}

func (m *Memory) snapshotListeners(namespace string) []Listener {
	out := make([]Listener, 0, len(m.listeners[namespace]))
	for _, fn := range m.listeners[namespace] {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []Listener, change Change) {
	for _, fn := range listeners {
		fn(change)
	}
}
