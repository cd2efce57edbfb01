// Package channels connects the assistant to external chat surfaces and
// routes outbound alerts to them.
package channels

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roadscout/roadscout/internal/config"
	"github.com/roadscout/roadscout/internal/schema"
)

// Responder answers one user message within a keyed session. Implemented by
// *assistant.Assistant.
type Responder interface {
	Handle(ctx context.Context, key, message string, location *schema.LatLon, onProgress func(string)) schema.Outcome
	Reset(key string) error
}

// Manager owns all enabled channels.
type Manager struct {
	channels map[string]schema.Channel
}

// NewManager initialises every channel enabled in cfg.
func NewManager(cfg *config.Config, r Responder) *Manager {
	m := &Manager{channels: make(map[string]schema.Channel)}

	if cfg.Channels.Telegram.Enabled {
		ch := NewTelegramChannel(&cfg.Channels.Telegram, r)
		m.channels[ch.Name()] = ch
		slog.Info("channel enabled", "name", ch.Name())
	}
	if cfg.Channels.Slack.Enabled {
		ch := NewSlackChannel(&cfg.Channels.Slack)
		m.channels[ch.Name()] = ch
		slog.Info("channel enabled", "name", ch.Name())
	}

	return m
}

// EnabledChannels returns the names of all enabled channels.
func (m *Manager) EnabledChannels() []string {
	names := make([]string, 0, len(m.channels))
	for n := range m.channels {
		names = append(names, n)
	}
	return names
}

// StartAll starts every channel in its own goroutine and blocks until ctx is
// cancelled.
func (m *Manager) StartAll(ctx context.Context) error {
	for name, ch := range m.channels {
		go func(n string, c schema.Channel) {
			slog.Info("starting channel", "name", n)
			if err := c.Start(ctx); err != nil && ctx.Err() == nil {
				slog.Error("channel exited with error", "name", n, "err", err)
			}
		}(name, ch)
	}

	<-ctx.Done()
	return ctx.Err()
}

// Notify routes an unsolicited message (a trip alert) to the named channel.
// It satisfies the monitor's Notifier.
func (m *Manager) Notify(ctx context.Context, channel, chatID, text string) error {
	ch, ok := m.channels[channel]
	if !ok {
		return fmt.Errorf("channel %q not enabled", channel)
	}
	return ch.Send(ctx, chatID, text)
}

// locationStore remembers the last shared location per chat.
type locationStore struct {
	mu  sync.Mutex
	byc map[int64]schema.LatLon
}

func (s *locationStore) set(chatID int64, loc schema.LatLon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byc == nil {
		s.byc = make(map[int64]schema.LatLon)
	}
	s.byc[chatID] = loc
}

func (s *locationStore) get(chatID int64) *schema.LatLon {
	s.mu.Lock()
	defer s.mu.Unlock()
	if loc, ok := s.byc[chatID]; ok {
		return &loc
	}
	return nil
}

func (s *locationStore) clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byc, chatID)
}
