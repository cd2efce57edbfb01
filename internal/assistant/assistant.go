// Package assistant is the shared front door for every surface (CLI, gateway,
// chat channels): it keys sessions, feeds stored history into the engine, and
// records the exchange back into the session.
package assistant

import (
	"context"
	"log/slog"

	"github.com/roadscout/roadscout/internal/engine"
	"github.com/roadscout/roadscout/internal/schema"
	"github.com/roadscout/roadscout/internal/session"
)

// Assistant binds the conversation engine to persisted per-chat sessions.
type Assistant struct {
	engine        *engine.Engine
	sessions      *session.Manager
	historyWindow int
}

// New creates an Assistant. historyWindow bounds how many stored turns are
// handed to the engine per run; values <= 0 select the engine default.
func New(eng *engine.Engine, sessions *session.Manager, historyWindow int) *Assistant {
	if historyWindow <= 0 {
		historyWindow = engine.DefaultHistoryWindow
	}
	return &Assistant{engine: eng, sessions: sessions, historyWindow: historyWindow}
}

// Handle runs one user message through the engine under the session identified
// by key and returns the outcome. Successful exchanges are appended to the
// session and persisted; failed runs leave the stored history untouched so a
// transient provider error does not pollute later context.
func (a *Assistant) Handle(
	ctx context.Context,
	key, message string,
	location *schema.LatLon,
	onProgress func(string),
) schema.Outcome {
	sess := a.sessions.GetOrCreate(key)

	outcome := a.engine.Run(ctx, engine.Request{
		Message:    message,
		Location:   location,
		History:    sess.Recent(a.historyWindow),
		OnProgress: onProgress,
	})

	if outcome.Success {
		sess.AddUser(message)
		sess.AddAssistant(outcome.Text)
		if err := a.sessions.Save(sess); err != nil {
			slog.Warn("session save failed", "key", key, "err", err)
		}
	}

	return outcome
}

// Reset clears the session identified by key and persists the empty state.
func (a *Assistant) Reset(key string) error {
	sess := a.sessions.GetOrCreate(key)
	sess.Clear()
	return a.sessions.Save(sess)
}

// Sessions exposes stored session metadata for status commands.
func (a *Assistant) Sessions() []map[string]any {
	return a.sessions.ListSessions()
}
