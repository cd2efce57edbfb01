// Package schema contains the core contracts shared across roadscout packages.
// Concrete implementations live in their respective packages; this package is
// the single canonical source of truth for every interface definition.
package schema

import (
	"context"
	"encoding/json"
)

// Tool is the interface all LLM-callable tools must satisfy.
//
// Execute converts every upstream problem (timeout, provider error, malformed
// payload, missing argument) into a failure payload string so the model can
// react conversationally. The returned error is reserved for programming
// errors and is nil on all normal paths.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema (as raw JSON bytes) for this tool's parameters.
	Parameters() json.RawMessage
	Execute(ctx context.Context, params map[string]any) (string, error)
}
