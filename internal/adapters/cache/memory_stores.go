package cache

import (
	"context"
	"sync"
	"time"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryResetTokenStore is a process-local ResetTokenStore.
// It only suits tests and single-instance local runs.
type MemoryResetTokenStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryResetTokenStore() *MemoryResetTokenStore {
	return &MemoryResetTokenStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryResetTokenStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.purgeLocked(now)
	cp := make([]byte, len(value))
	copy(cp, value)
	s.entries[key] = memoryEntry{value: cp, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryResetTokenStore) GetAndDelete(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(s.entries, key)
	if !s.now().Before(entry.expiresAt) {
		return nil, domain.ErrNotFound
	}
	return entry.value, nil
}

// Len reports the number of stored entries, expired ones included.
func (s *MemoryResetTokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryResetTokenStore) purgeLocked(now time.Time) {
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}

// MemoryLockoutStore is a process-local LockoutStore.
type MemoryLockoutStore struct {
	mu    sync.Mutex
	state map[string]memoryLockout
}

type memoryLockout struct {
	state     ports.LockoutState
	expiresAt time.Time
}

func NewMemoryLockoutStore() *MemoryLockoutStore {
	return &MemoryLockoutStore{state: make(map[string]memoryLockout)}
}

func (s *MemoryLockoutStore) Get(_ context.Context, key string) (ports.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.state[key]
	if !ok {
		return ports.LockoutState{}, nil
	}
	return entry.state, nil
}

func (s *MemoryLockoutStore) RecordFailure(_ context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.state[key]
	if !ok || !now.Before(entry.expiresAt) {
		entry = memoryLockout{expiresAt: now.Add(lockoutWindow)}
	}
	entry.state.FailedCount++
	if entry.state.FailedCount >= threshold {
		lockedUntil := now.Add(lockoutWindow).UTC()
		entry.state.LockedUntil = &lockedUntil
		entry.expiresAt = lockedUntil
	}
	s.state[key] = entry
	return entry.state, nil
}

func (s *MemoryLockoutStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state, key)
	return nil
}
