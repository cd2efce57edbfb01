// Package tools implements the closed set of traffic tools the model may
// invoke, plus the immutable registry that declares and dispatches them.
package tools

import (
	"encoding/json"

	"github.com/roadscout/roadscout/internal/schema"
)

// ToolName is the canonical name of a built-in tool.
type ToolName string

const (
	ToolSearchPlace       ToolName = "search_place"
	ToolCalculateRoutes   ToolName = "calculate_routes"
	ToolGetTrafficFlow    ToolName = "get_traffic_flow"
	ToolGetDepartureTimes ToolName = "get_departure_times"
	ToolGetIncidents      ToolName = "get_incidents"
)

// Registry holds the fixed set of named tools. It is immutable after Build;
// there is no dynamic registration.
type Registry struct {
	tools map[string]schema.Tool
	order []string // registration order, keeps Definitions stable
}

// Get returns the tool with the given name, or nil if not found.
func (r *Registry) Get(name string) schema.Tool {
	return r.tools[name]
}

// Names returns all registered tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Definitions returns all tool declarations in OpenAI function-calling format,
// embedded in every model request so the model can choose by name and schema.
func (r *Registry) Definitions() []map[string]any {
	list := make([]map[string]any, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		var params any
		if err := json.Unmarshal(t.Parameters(), &params); err != nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		list = append(list, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name(),
				"description": t.Description(),
				"parameters":  params,
			},
		})
	}
	return list
}
