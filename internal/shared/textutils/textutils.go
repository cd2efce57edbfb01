// Package textutils holds small string helpers shared across packages.
package textutils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roadscout/roadscout/internal/schema"
)

var reThink = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Truncate shortens a string to at most n characters, adding "..." if it was truncated.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// StripThink removes <think>…</think> blocks that some models embed.
func StripThink(s string) string {
	return strings.TrimSpace(reThink.ReplaceAllString(s, ""))
}

// StringOrDefault returns s if it's not empty, or def if s is empty.
func StringOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// ToolHint generates a short progress hint for a tool call,
// e.g. `search_place("coffee near alexanderplatz")`.
func ToolHint(tc schema.ToolCallRequest) string {
	var firstVal string
	for _, v := range tc.Arguments {
		if s, ok := v.(string); ok {
			firstVal = s
		}
		break
	}
	if firstVal == "" {
		return tc.Name
	}
	if len(firstVal) > 40 {
		firstVal = firstVal[:40] + "…"
	}
	return fmt.Sprintf("%s(%q)", tc.Name, firstVal)
}
