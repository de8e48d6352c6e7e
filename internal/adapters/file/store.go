// Package file persists sessions as JSON files and loads catalog fixtures from YAML.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bbkanego/seerbot/pkg/domain"
)

// SessionStore implements ports.SessionStore with one JSON file per session.
type SessionStore struct {
	BasePath string
}

// NewSessionStore creates a store under basePath, defaulting to ".seerbot/sessions".
func NewSessionStore(basePath string) *SessionStore {
	if basePath == "" {
		basePath = filepath.Join(".seerbot", "sessions")
	}
	return &SessionStore{BasePath: basePath}
}

func (s *SessionStore) path(sessionID string) (string, error) {
	name := sessionID + ".json"
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) || !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: invalid session id %q", domain.ErrInvalidRequest, sessionID)
	}
	return filepath.Join(s.BasePath, name), nil
}

// Save writes the snapshot to a temp file, fsyncs it and renames it into place.
func (s *SessionStore) Save(ctx context.Context, sessionID string, snap domain.SessionSnapshot) error {
	dest, err := s.path(sessionID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tmp, err := os.CreateTemp(s.BasePath, "tmp-"+sessionID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	// Windows cannot rename over an existing file.
	if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to rename session file: %w", err)
	}
	return nil
}

// Load reads the snapshot of sessionID.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (domain.SessionSnapshot, error) {
	p, err := s.path(sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("failed to read session file: %w", err)
	}

	var snap domain.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return snap, nil
}

// Delete removes the session file. A missing file is not an error.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	p, err := s.path(sessionID)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// List returns the ids of the stored sessions.
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}
