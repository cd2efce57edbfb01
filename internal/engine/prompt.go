package engine

import (
	"fmt"
	"time"

	"github.com/roadscout/roadscout/internal/schema"
)

// systemPrompt is the fixed persona instruction seeding every session.
func systemPrompt(now time.Time) string {
	return fmt.Sprintf(`# roadscout

You are roadscout, a traffic copilot. You answer questions about driving
conditions, routes, departure timing, and road incidents using your tools.

## Current Time
%s

## How to work
- Resolve place names to coordinates with search_place before routing tools.
- Prefer one tool call at a time; read its result before deciding the next step.
- Tool results may contain an "error" field; explain the problem briefly and,
  when sensible, retry with adjusted arguments.
- Answer in the user's language, concisely, with concrete minutes and distances.
- Never invent traffic data; if the tools cannot answer, say so.`,
		now.Format("2006-01-02 15:04 (Monday)"))
}

// BuildConversation assembles the seeded message list for one session:
// persona system prompt, the most recent window turns of caller history, and
// the user message prefixed with location context when supplied.
func BuildConversation(req Request, window int, now time.Time) schema.Messages {
	msgs := schema.NewMessages()
	msgs.AddSystem(systemPrompt(now))

	for _, turn := range truncateHistory(req.History, window) {
		switch turn.Role {
		case schema.RoleAssistant:
			content := turn.Content
			msgs.AddAssistant(&content, nil)
		case schema.RoleTool:
			// Past tool results lose their call IDs once they leave the
			// session, so they re-enter as plain context.
			msgs.AddUser("(earlier tool result) " + turn.Content)
		default:
			msgs.AddUser(turn.Content)
		}
	}

	msgs.AddUser(withLocation(req.Message, req.Location))
	return msgs
}

// truncateHistory keeps only the most recent window turns; older turns are
// silently dropped, not summarised, to bound token growth.
func truncateHistory(history []schema.Turn, window int) []schema.Turn {
	if window > 0 && len(history) > window {
		return history[len(history)-window:]
	}
	return history
}

func withLocation(message string, loc *schema.LatLon) string {
	if loc == nil {
		return message
	}
	return fmt.Sprintf("[User location: %.6f,%.6f]\n%s", loc.Lat, loc.Lon, message)
}
