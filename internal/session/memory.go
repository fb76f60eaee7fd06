package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	userID    int64
	expiresAt time.Time
}

type MemoryStore struct {
	opts Options

	mu       sync.Mutex
	sessions map[string]memoryEntry
}

func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		opts:     opts,
		sessions: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Create(ctx context.Context, userID int64) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[hashToken(token)] = memoryEntry{
		userID:    userID,
		expiresAt: s.opts.now().Add(s.opts.TTL),
	}
	return token, nil
}

func (s *MemoryStore) Lookup(ctx context.Context, token string) (int64, error) {
	key := hashToken(token)

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[key]
	if !ok {
		return 0, ErrNotFound
	}
	if !s.opts.now().Before(entry.expiresAt) {
		delete(s.sessions, key)
		return 0, ErrNotFound
	}
	return entry.userID, nil
}

func (s *MemoryStore) Destroy(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, hashToken(token))
	return nil
}

// PurgeExpired drops every expired entry, including tokens nobody looks up again.
func (s *MemoryStore) PurgeExpired(ctx context.Context) (int64, error) {
	now := s.opts.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, entry := range s.sessions {
		if !now.Before(entry.expiresAt) {
			delete(s.sessions, key)
			n++
		}
	}
	return n, nil
}
