// Package memory provides in-process implementations of every store port.
// They back the chat REPL and the tests, and are safe for concurrent use.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bbkanego/seerbot/pkg/domain"
)

// SessionStore implements ports.SessionStore.
// Snapshots are kept JSON-encoded so loads never alias saved values.
type SessionStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{data: make(map[string][]byte)}
}

// Save persists the snapshot.
func (s *SessionStore) Save(ctx context.Context, sessionID string, snap domain.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = data
	return nil
}

// Load retrieves the snapshot.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (domain.SessionSnapshot, error) {
	s.mu.RLock()
	data, ok := s.data[sessionID]
	s.mu.RUnlock()
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}

	var snap domain.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return snap, nil
}

// Delete removes the snapshot.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns the stored session ids.
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
