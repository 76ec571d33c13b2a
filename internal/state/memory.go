package state

import (
	"context"
	"sync"
)

// MemoryStore keeps conversations in process; used with the in-memory repository and in tests.
type MemoryStore struct {
	mu   sync.Mutex
	data map[Key][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[Key][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, key Key) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.data[key]
	if !ok {
		return Idle(), nil
	}
	return decode(raw), nil
}

func (s *MemoryStore) Set(ctx context.Context, key Key, c Conversation) error {
	if c.IsIdle() {
		return s.Clear(ctx, key)
	}
	raw, err := encode(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.data[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, key Key) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}
