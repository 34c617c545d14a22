// Package memory provides the default in-process driver for the ephemeral
// key/value stores. All state is lost on process exit, which matches the
// lifecycle of captchas, verification codes and pending logins. Running more
// than one instance fragments this state per instance; that limitation is
// inherited from the original design and deliberately not papered over here.
package memory

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// KV is a mutex-guarded TTL map. The single lock keeps every operation,
// including the check-then-delete in Take, atomic with respect to concurrent
// requests.
type KV[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
}

func NewKV[V any]() *KV[V] {
	return &KV[V]{entries: make(map[string]entry[V])}
}

func (s *KV[V]) Put(key string, v V, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry[V]{value: v, expiresAt: expiresAt}
}

func (s *KV[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !time.Now().Before(e.expiresAt) {
		delete(s.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (s *KV[V]) Take(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	delete(s.entries, key)
	if !time.Now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (s *KV[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

func (s *KV[V]) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored entries, expired or not. Intended for
// tests and readiness reporting.
func (s *KV[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
