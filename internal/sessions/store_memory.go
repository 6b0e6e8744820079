package sessions

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store with an idle TTL.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
	ttl  time.Duration
	now  func() time.Time
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// NewMemoryStore constructs a MemoryStore. A non-positive ttl keeps sessions until deleted.
func NewMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		data: make(map[string]memoryEntry),
		ttl:  ttl,
		now:  now,
	}
}

// Get returns the session for id.
func (s *MemoryStore) Get(ctx context.Context, id string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	now := s.now()
	s.mu.RLock()
	entry, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return Session{}, ErrNotFound
	}
	if !entry.expiredAt(now) {
		return entry.session, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A Save may have refreshed the entry after the read lock was released.
	current, ok := s.data[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if !current.expiredAt(now) {
		return current.session, nil
	}
	delete(s.data, id)
	return Session{}, ErrNotFound
}

// Save stores/overwrites the session and refreshes its TTL.
func (s *MemoryStore) Save(ctx context.Context, sess Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sess.ID == "" {
		return errors.New("session id required")
	}
	entry := memoryEntry{session: sess}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}
	s.mu.Lock()
	s.data[sess.ID] = entry
	s.mu.Unlock()
	return nil
}

// Delete removes the session.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.data, id)
	s.mu.Unlock()
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, entry := range s.data {
		if entry.expiredAt(now) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is done.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

func (e memoryEntry) expiredAt(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

var _ Store = (*MemoryStore)(nil)
