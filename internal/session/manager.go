// Package session manages per-chat conversation history stored as JSON files,
// one file per session key under <data>/sessions/.
package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/roadscout/roadscout/internal/schema"
)

// Manager loads and persists sessions.
type Manager struct {
	sessionsDir string
	cache       sync.Map // key → *Session
}

// NewManager creates a Manager rooted at the data directory.
// It creates the sessions subdirectory if necessary.
func NewManager(dataDir string) (*Manager, error) {
	dir := filepath.Join(dataDir, "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &Manager{sessionsDir: dir}, nil
}

// GetOrCreate returns the cached session for key, loading from disk if needed,
// or creating an empty new one.
func (m *Manager) GetOrCreate(key string) *Session {
	if v, ok := m.cache.Load(key); ok {
		return v.(*Session)
	}

	s := m.load(key)
	if s == nil {
		now := time.Now()
		s = &Session{Key: key, CreatedAt: now, UpdatedAt: now}
	}

	actual, _ := m.cache.LoadOrStore(key, s)
	return actual.(*Session)
}

// Save writes the session to disk and updates the cache.
func (m *Manager) Save(s *Session) error {
	turns, createdAt, updatedAt := s.snapshot()

	data, err := json.MarshalIndent(sessionFile{
		Key:       s.Key,
		CreatedAt: createdAt.UTC().Format(time.RFC3339),
		UpdatedAt: updatedAt.UTC().Format(time.RFC3339),
		Turns:     turns,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.Key, err)
	}
	data = append(data, '\n')

	path := m.sessionPath(s.Key)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", path, err)
	}

	m.cache.Store(s.Key, s)
	return nil
}

// Invalidate removes a session from the in-memory cache (used after /new).
func (m *Manager) Invalidate(key string) {
	m.cache.Delete(key)
}

// ListSessions returns metadata for all persisted sessions, newest-first.
func (m *Manager) ListSessions() []map[string]any {
	entries, _ := filepath.Glob(filepath.Join(m.sessionsDir, "*.json"))
	var out []map[string]any

	for _, path := range entries {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var f sessionFile
		if json.Unmarshal(data, &f) != nil {
			continue
		}
		key := f.Key
		if key == "" {
			key = strings.Replace(strings.TrimSuffix(filepath.Base(path), ".json"), "_", ":", 1)
		}
		out = append(out, map[string]any{
			"key":        key,
			"turns":      len(f.Turns),
			"created_at": f.CreatedAt,
			"updated_at": f.UpdatedAt,
			"path":       path,
		})
	}

	// ISO timestamps sort lexicographically.
	for i := 0; i < len(out)-1; i++ {
		for j := i + 1; j < len(out); j++ {
			ai, _ := out[i]["updated_at"].(string)
			aj, _ := out[j]["updated_at"].(string)
			if aj > ai {
				out[i], out[j] = out[j], out[i]
			}
		}
	}

	return out
}

// sessionFile is the on-disk JSON representation of a session.
type sessionFile struct {
	Key       string        `json:"key"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
	Turns     []schema.Turn `json:"turns"`
}

// sessionPath converts a session key to its file path.
func (m *Manager) sessionPath(key string) string {
	return filepath.Join(m.sessionsDir, safeFilename(strings.ReplaceAll(key, ":", "_"))+".json")
}

// safeFilename replaces filesystem-unsafe characters with underscores.
func safeFilename(name string) string {
	const unsafe = `<>:"/\|?*`
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(unsafe, r) {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// load reads a session from disk; a missing or unreadable file yields nil.
func (m *Manager) load(key string) *Session {
	path := m.sessionPath(key)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var f sessionFile
	if err := json.Unmarshal(data, &f); err != nil {
		slog.Warn("skipping malformed session file", "key", key, "err", err)
		return nil
	}

	createdAt, _ := time.Parse(time.RFC3339, f.CreatedAt)
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &Session{
		Key:       key,
		Turns:     f.Turns,
		CreatedAt: createdAt,
		UpdatedAt: time.Now(),
	}
}
