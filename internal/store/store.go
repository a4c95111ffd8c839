// Package store holds the live conversation records for the process.
package store

import (
	"sync"

	"github.com/asistente-legal/intake-backend/internal/models"
)

// Store is the exclusive owner of in-memory conversations, keyed by id.
// The mutex protects the map itself; two requests mutating the same
// conversation are last-write-wins. Each session has a single user, so
// that is a documented limitation rather than a guarded case.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
}

func New() *Store {
	return &Store{
		conversations: make(map[string]*models.Conversation),
	}
}

// Put inserts or replaces a conversation.
func (s *Store) Put(conv *models.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conv.ID] = conv
}

// Get returns the conversation for id, or nil when absent.
func (s *Store) Get(id string) *models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversations[id]
}

// Delete removes the conversation for id and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.conversations[id]
	delete(s.conversations, id)
	return ok
}

// Len returns the number of live conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// ActiveCount returns the number of live conversations not yet complete.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, conv := range s.conversations {
		if !conv.Complete {
			n++
		}
	}
	return n
}

// Snapshot returns the live conversations in arbitrary order.
func (s *Store) Snapshot() []*models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, conv)
	}
	return out
}
