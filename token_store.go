package portal

import (
	"context"
	"sync"
)

var (
	_ TokenStore = &MemoryTokenStore{}
	_ TokenStore = &memorySession{}
)

// MemoryTokenStore keeps the session token in process memory
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryTokenStore returns a store seeded with token, which may be empty
func NewMemoryTokenStore(token string) *MemoryTokenStore {
	return &MemoryTokenStore{token: token}
}

func (s *MemoryTokenStore) Token(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *MemoryTokenStore) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *MemoryTokenStore) ClearToken(_ context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}

// MemorySessions keeps the tokens of many sessions in process memory.
// Only sessions holding a token take up an entry.
type MemorySessions struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{tokens: make(map[string]string)}
}

// Store returns the TokenStore of the session named key
func (m *MemorySessions) Store(key string) TokenStore {
	return &memorySession{sessions: m, key: key}
}

// Purge drops the sessions whose token usable rejects and returns how
// many were dropped
func (m *MemorySessions) Purge(usable func(token string) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	dropped := 0
	for key, token := range m.tokens {
		if !usable(token) {
			delete(m.tokens, key)
			dropped++
		}
	}
	return dropped
}

func (m *MemorySessions) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}

type memorySession struct {
	sessions *MemorySessions
	key      string
}

func (s *memorySession) Token(_ context.Context) (string, error) {
	s.sessions.mu.RLock()
	defer s.sessions.mu.RUnlock()
	return s.sessions.tokens[s.key], nil
}

func (s *memorySession) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return s.ClearToken(ctx)
	}
	s.sessions.mu.Lock()
	s.sessions.tokens[s.key] = token
	s.sessions.mu.Unlock()
	return nil
}

func (s *memorySession) ClearToken(_ context.Context) error {
	s.sessions.mu.Lock()
	delete(s.sessions.tokens, s.key)
	s.sessions.mu.Unlock()
	return nil
}
