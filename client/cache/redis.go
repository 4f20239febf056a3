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

package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gravitational/trace"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "wsctl"
	defaultRedisTTL    = 24 * time.Hour
	redisScanCount     = 100
)

// RedisConfig configures a Redis cache.
type RedisConfig struct {
	// Client is the Redis connection. Required.
	Client redis.UniversalClient
	// Prefix namespaces all keys, defaults to "wsctl".
	Prefix string
	// TTL bounds the lifetime of entries, defaults to 24h.
	TTL time.Duration
}

// CheckAndSetDefaults validates the config.
func (c *RedisConfig) CheckAndSetDefaults() error {
	if c.Client == nil {
		return trace.BadParameter("missing parameter Client")
	}
	if c.Prefix == "" {
		c.Prefix = defaultRedisPrefix
	}
	if c.TTL <= 0 {
		c.TTL = defaultRedisTTL
	}
	return nil
}

// Redis is a Cache shared between processes through Redis. Keys have the form
// "<prefix>:<user>:<kind>:<id>".
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration

	mu      sync.RWMutex // protects current
	current string
}

// NewRedis returns a Redis-backed cache.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Redis{client: cfg.Client, prefix: cfg.Prefix, ttl: cfg.TTL}, nil
}

// Open implements Cache.
func (r *Redis) Open(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = userID
	return nil
}

// Drop implements Cache.
func (r *Redis) Drop(ctx context.Context) error {
	r.mu.Lock()
	namespace := r.namespace()
	r.current = ""
	r.mu.Unlock()
	if namespace == "" {
		return nil
	}
	return trace.Wrap(r.deleteMatching(ctx, escapePattern(namespace)+"*"))
}

// Put implements Cache.
func (r *Redis) Put(ctx context.Context, kind, id string, value []byte) error {
	key, ok := r.key(kind, id)
	if !ok {
		return nil
	}
	return trace.Wrap(r.client.Set(ctx, key, value, r.ttl).Err())
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, kind, id string) ([]byte, bool, error) {
	key, ok := r.key(kind, id)
	if !ok {
		return nil, false, nil
	}
	value, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, trace.Wrap(err)
	}
	return value, true, nil
}

// Evict implements Evictor.
func (r *Redis) Evict(ctx context.Context, kind, id string) error {
	key, ok := r.key(kind, id)
	if !ok {
		return nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(r.deleteMatching(ctx, escapePattern(key+"/")+"*"))
}

func (r *Redis) deleteMatching(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, redisScanCount).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return trace.Wrap(err)
	}
	if len(keys) == 0 {
		return nil
	}
	return trace.Wrap(r.client.Del(ctx, keys...).Err())
}

// namespace must be called with mu held.
func (r *Redis) namespace() string {
	if r.current == "" {
		return ""
	}
	return r.prefix + ":" + r.current + ":"
}

func (r *Redis) key(kind, id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	namespace := r.namespace()
	if namespace == "" {
		return "", false
	}
	return namespace + entryKey(kind, id), true
}

var patternEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// escapePattern quotes glob metacharacters for SCAN MATCH.
func escapePattern(s string) string {
	return patternEscaper.Replace(s)
}
