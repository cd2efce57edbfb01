package schema

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool-result"
)

// Turn is one message unit in a conversation: user input, assistant output,
// or a tool result. Callers supply past turns as session history; only the
// most recent window is retained by the engine.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// LatLon is a WGS84 coordinate pair.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Outcome is the externally visible result of one conversation run.
// ToolsUsed lists tool names in actual call order, duplicates kept.
// On failure Text carries a fixed friendly fallback; internal error detail
// is logged, never exposed here.
type Outcome struct {
	Success   bool     `json:"success"`
	Text      string   `json:"text"`
	ToolsUsed []string `json:"toolsUsed"`
}
