/*
Copyright 2026 Gravitational, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package cache keeps per-user copies of API resources. A namespace is opened
// for the user after login and dropped when the session ends; entries of a
// resource are evicted when the server revokes access to it.
package cache

import (
	"context"
	"strings"
	"sync"
)

// Evictor receives eviction signals for collaborative resources.
type Evictor interface {
	// Evict drops the entry of the resource and every entry nested under it.
	Evict(ctx context.Context, kind, id string) error
}

// Cache is a per-user resource cache.
type Cache interface {
	Evictor
	// Open switches the cache to the namespace of userID.
	Open(ctx context.Context, userID string) error
	// Drop removes the current namespace and its entries.
	Drop(ctx context.Context) error
	Put(ctx context.Context, kind, id string, value []byte) error
	// Get returns the cached value; found is false on a miss or when no
	// namespace is open.
	Get(ctx context.Context, kind, id string) (value []byte, found bool, err error)
}

// entryKey is the key of an entry within a namespace. Nested entries use ids
// of the form "<parent id>/<suffix>".
func entryKey(kind, id string) string {
	return kind + ":" + id
}

// Memory is an in-process Cache.
type Memory struct {
	mu         sync.RWMutex // protects the below fields
	current    string
	namespaces map[string]map[string][]byte
}

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{namespaces: make(map[string]map[string][]byte)}
}

// Open implements Cache.
func (m *Memory) Open(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = userID
	if userID != "" && m.namespaces[userID] == nil {
		m.namespaces[userID] = make(map[string][]byte)
	}
	return nil
}

// Drop implements Cache.
func (m *Memory) Drop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.namespaces, m.current)
	m.current = ""
	return nil
}

// Put implements Cache.
func (m *Memory) Put(_ context.Context, kind, id string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ns := m.namespaces[m.current]; ns != nil {
		ns[entryKey(kind, id)] = append([]byte(nil), value...)
	}
	return nil
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, kind, id string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.namespaces[m.current][entryKey(kind, id)]
	return value, ok, nil
}

// Evict implements Evictor.
func (m *Memory) Evict(_ context.Context, kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.namespaces[m.current]
	key := entryKey(kind, id)
	for k := range ns {
		if k == key || strings.HasPrefix(k, key+"/") {
			delete(ns, k)
		}
	}
	return nil
}

// Len returns the number of entries in the current namespace.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.namespaces[m.current])
}
