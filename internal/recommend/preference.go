package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const preferenceKeyPrefix = "PREFERRED_ROUTER:"

// PreferenceStore persists the preferred access point per client. Only the
// name is stored; capacity and health always come from the live catalog.
type PreferenceStore interface {
	Get(ctx context.Context, clientID string) (*Preferred, error)
	Set(ctx context.Context, clientID string, preferred Preferred) error
}

// RedisPreferenceStore keeps preferences in Redis without expiry.
type RedisPreferenceStore struct {
	cache *redis.Client
}

// NewRedisPreferenceStore constructs a Redis-backed store.
func NewRedisPreferenceStore(cache *redis.Client) *RedisPreferenceStore {
	return &RedisPreferenceStore{cache: cache}
}

// Get returns nil when the client has no stored preference.
func (s *RedisPreferenceStore) Get(ctx context.Context, clientID string) (*Preferred, error) {
	raw, err := s.cache.Get(ctx, preferenceKey(clientID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get preference: %w", err)
	}
	return decodePreference(raw), nil
}

// Set overwrites the stored preference.
func (s *RedisPreferenceStore) Set(ctx context.Context, clientID string, preferred Preferred) error {
	payload, err := sonic.Marshal(preferred)
	if err != nil {
		return fmt.Errorf("encode preference: %w", err)
	}
	if err := s.cache.Set(ctx, preferenceKey(clientID), payload, 0).Err(); err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}

// MemoryPreferenceStore is an in-process store for development and tests.
type MemoryPreferenceStore struct {
	mu    sync.RWMutex
	items map[string]Preferred
}

// NewMemoryPreferenceStore constructs an empty in-memory store.
func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{items: make(map[string]Preferred)}
}

func (s *MemoryPreferenceStore) Get(_ context.Context, clientID string) (*Preferred, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[clientID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *MemoryPreferenceStore) Set(_ context.Context, clientID string, preferred Preferred) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[clientID] = preferred
	return nil
}

func preferenceKey(clientID string) string {
	return preferenceKeyPrefix + clientID
}

// decodePreference accepts the JSON object written by Set as well as older
// entries holding a whole access point record or a bare name. Anything
// unreadable counts as no preference.
func decodePreference(raw string) *Preferred {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if raw[0] != '{' {
		return &Preferred{Name: raw}
	}
	var p Preferred
	if err := sonic.UnmarshalString(raw, &p); err != nil || p.Name == "" {
		return nil
	}
	return &p
}
