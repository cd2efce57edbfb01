package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/roadscout/roadscout/internal/schema"
	"github.com/roadscout/roadscout/internal/tools"
)

// ─── Test fakes ─────────────────────────────────────────────────────────────

// scriptProvider replays a fixed sequence of model turns and records every
// conversation it was sent.
type scriptProvider struct {
	responses []schema.LLMResponse
	calls     int
	sent      []schema.Messages
}

func (p *scriptProvider) Chat(_ context.Context, messages schema.Messages, _ []map[string]any, _ schema.ChatOptions) (schema.LLMResponse, error) {
	p.sent = append(p.sent, messages.Clone())
	if p.calls >= len(p.responses) {
		return schema.LLMResponse{}, fmt.Errorf("unexpected model call %d", p.calls)
	}
	resp := p.responses[p.calls]
	p.calls++
	return resp, nil
}

func (p *scriptProvider) DefaultModel() string { return "test-model" }

func textTurn(text string) schema.LLMResponse {
	return schema.LLMResponse{Content: &text, FinishReason: "stop"}
}

func toolTurn(names ...string) schema.LLMResponse {
	resp := schema.LLMResponse{FinishReason: "tool_calls"}
	for i, name := range names {
		resp.ToolCalls = append(resp.ToolCalls, schema.ToolCallRequest{
			ID:        fmt.Sprintf("call_%d", i),
			Name:      name,
			Arguments: map[string]any{"query": "test"},
		})
	}
	return resp
}

// stubTool is a registry entry with a canned result.
type stubTool struct {
	name   string
	result string
	err    error
	calls  int
}

func (s *stubTool) Name() string                 { return s.name }
func (s *stubTool) Description() string          { return "stub" }
func (s *stubTool) Parameters() json.RawMessage  { return json.RawMessage(`{"type":"object","properties":{}}`) }
func (s *stubTool) Execute(context.Context, map[string]any) (string, error) {
	s.calls++
	return s.result, s.err
}

func newEngineWith(t *testing.T, provider schema.LLMProvider, stubs ...*stubTool) *Engine {
	t.Helper()
	b := tools.NewRegistryBuilder()
	for _, s := range stubs {
		b.WithTool(s)
	}
	return New(provider, b.Build(), Settings{})
}

// ─── Run ────────────────────────────────────────────────────────────────────

func TestRun_PlainAnswer(t *testing.T) {
	provider := &scriptProvider{responses: []schema.LLMResponse{textTurn("All clear on your route.")}}
	eng := newEngineWith(t, provider)

	outcome := eng.Run(context.Background(), Request{Message: "how's traffic?"})

	if !outcome.Success {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if outcome.Text != "All clear on your route." {
		t.Errorf("unexpected text: %q", outcome.Text)
	}
	if len(outcome.ToolsUsed) != 0 {
		t.Errorf("expected no tools used, got %v", outcome.ToolsUsed)
	}
	if provider.calls != 1 {
		t.Errorf("expected 1 model call, got %d", provider.calls)
	}
}

func TestRun_ToolCycleThenAnswer(t *testing.T) {
	flow := &stubTool{name: "get_traffic_flow", result: `{"congestion":"clear"}`}
	provider := &scriptProvider{responses: []schema.LLMResponse{
		toolTurn("get_traffic_flow"),
		textTurn("Traffic is clear."),
	}}
	eng := newEngineWith(t, provider, flow)

	outcome := eng.Run(context.Background(), Request{Message: "check my street"})

	if !outcome.Success {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if flow.calls != 1 {
		t.Errorf("expected 1 tool execution, got %d", flow.calls)
	}
	if len(outcome.ToolsUsed) != 1 || outcome.ToolsUsed[0] != "get_traffic_flow" {
		t.Errorf("unexpected tools used: %v", outcome.ToolsUsed)
	}

	// The second model call must see the tool result in the conversation.
	last := provider.sent[1].Messages
	found := false
	for _, m := range last {
		if m.Role == "tool" {
			found = true
			if m.Content != `{"congestion":"clear"}` {
				t.Errorf("tool result not fed back verbatim: %v", m.Content)
			}
		}
	}
	if !found {
		t.Error("no tool-result message in the second model call")
	}
}

func TestRun_ToolsUsedKeepsOrderAndDuplicates(t *testing.T) {
	search := &stubTool{name: "search_place", result: `{"places":[]}`}
	routes := &stubTool{name: "calculate_routes", result: `{"routes":[]}`}
	provider := &scriptProvider{responses: []schema.LLMResponse{
		toolTurn("search_place"),
		toolTurn("search_place"),
		toolTurn("calculate_routes"),
		textTurn("done"),
	}}
	eng := newEngineWith(t, provider, search, routes)

	outcome := eng.Run(context.Background(), Request{Message: "route me"})

	want := []string{"search_place", "search_place", "calculate_routes"}
	if len(outcome.ToolsUsed) != len(want) {
		t.Fatalf("tools used: got %v, want %v", outcome.ToolsUsed, want)
	}
	for i := range want {
		if outcome.ToolsUsed[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, outcome.ToolsUsed[i], want[i])
		}
	}
}

func TestRun_UnknownToolFails(t *testing.T) {
	provider := &scriptProvider{responses: []schema.LLMResponse{toolTurn("send_email")}}
	eng := newEngineWith(t, provider)

	outcome := eng.Run(context.Background(), Request{Message: "email my boss"})

	if outcome.Success {
		t.Fatal("unknown tool must fail the session")
	}
	if outcome.Text != fallbackText {
		t.Errorf("failure must show the fixed fallback, got %q", outcome.Text)
	}
	if len(outcome.ToolsUsed) != 0 {
		t.Errorf("unknown tool must not be recorded as used: %v", outcome.ToolsUsed)
	}
}

func TestRun_CycleBound(t *testing.T) {
	flow := &stubTool{name: "get_traffic_flow", result: `{}`}
	// The model never stops asking for tools: 6 requests against a bound of 5.
	var responses []schema.LLMResponse
	for i := 0; i < 6; i++ {
		responses = append(responses, toolTurn("get_traffic_flow"))
	}
	provider := &scriptProvider{responses: responses}
	eng := newEngineWith(t, provider, flow)

	outcome := eng.Run(context.Background(), Request{Message: "loop forever"})

	if outcome.Success {
		t.Fatal("expected failure at the cycle bound")
	}
	if len(outcome.ToolsUsed) != DefaultMaxToolCycles {
		t.Errorf("expected %d recorded tool uses, got %d", DefaultMaxToolCycles, len(outcome.ToolsUsed))
	}
	if flow.calls != DefaultMaxToolCycles {
		t.Errorf("expected %d executions, got %d", DefaultMaxToolCycles, flow.calls)
	}
}

func TestRun_MalformedTurnFails(t *testing.T) {
	empty := ""
	provider := &scriptProvider{responses: []schema.LLMResponse{
		{Content: &empty, FinishReason: "stop"},
	}}
	eng := newEngineWith(t, provider)

	outcome := eng.Run(context.Background(), Request{Message: "hello"})

	if outcome.Success {
		t.Fatal("turn with neither text nor tool call must fail")
	}
	if outcome.Text != fallbackText {
		t.Errorf("expected fallback text, got %q", outcome.Text)
	}
}

func TestRun_StripsThinkBlocks(t *testing.T) {
	provider := &scriptProvider{responses: []schema.LLMResponse{
		textTurn("<think>let me check</think>Take the A100."),
	}}
	eng := newEngineWith(t, provider)

	outcome := eng.Run(context.Background(), Request{Message: "route?"})

	if !outcome.Success {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if outcome.Text != "Take the A100." {
		t.Errorf("think block not stripped: %q", outcome.Text)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	provider := &scriptProvider{responses: []schema.LLMResponse{textTurn("never")}}
	eng := newEngineWith(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := eng.Run(ctx, Request{Message: "hello"})

	if outcome.Success {
		t.Fatal("cancelled session must fail")
	}
	if provider.calls != 0 {
		t.Errorf("no model call should happen after cancellation, got %d", provider.calls)
	}
}

func TestRun_ExecutorErrorFoldsToPayload(t *testing.T) {
	broken := &stubTool{name: "get_incidents", err: fmt.Errorf("nil map write")}
	provider := &scriptProvider{responses: []schema.LLMResponse{
		toolTurn("get_incidents"),
		textTurn("Sorry, incidents are unavailable."),
	}}
	eng := newEngineWith(t, provider, broken)

	outcome := eng.Run(context.Background(), Request{Message: "any incidents?"})

	if !outcome.Success {
		t.Fatalf("executor panic-class errors must not abort the session: %+v", outcome)
	}
	last := provider.sent[1].Messages
	var toolResult string
	for _, m := range last {
		if m.Role == "tool" {
			toolResult, _ = m.Content.(string)
		}
	}
	if !strings.Contains(toolResult, "failed internally") {
		t.Errorf("expected folded failure payload, got %q", toolResult)
	}
}

func TestRun_MultipleToolCallsExecutesFirstOnly(t *testing.T) {
	flow := &stubTool{name: "get_traffic_flow", result: `{}`}
	incidents := &stubTool{name: "get_incidents", result: `{}`}
	provider := &scriptProvider{responses: []schema.LLMResponse{
		toolTurn("get_traffic_flow", "get_incidents"),
		textTurn("done"),
	}}
	eng := newEngineWith(t, provider, flow, incidents)

	outcome := eng.Run(context.Background(), Request{Message: "both please"})

	if !outcome.Success {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if flow.calls != 1 || incidents.calls != 0 {
		t.Errorf("only the first requested tool may run: flow=%d incidents=%d", flow.calls, incidents.calls)
	}
	if len(outcome.ToolsUsed) != 1 || outcome.ToolsUsed[0] != "get_traffic_flow" {
		t.Errorf("unexpected tools used: %v", outcome.ToolsUsed)
	}
}

func TestRun_ProgressHints(t *testing.T) {
	search := &stubTool{name: "search_place", result: `{"places":[]}`}
	provider := &scriptProvider{responses: []schema.LLMResponse{
		toolTurn("search_place"),
		textTurn("found it"),
	}}
	eng := newEngineWith(t, provider, search)

	var hints []string
	eng.Run(context.Background(), Request{
		Message:    "find the station",
		OnProgress: func(h string) { hints = append(hints, h) },
	})

	if len(hints) != 1 || !strings.Contains(hints[0], "search_place") {
		t.Errorf("expected one search_place hint, got %v", hints)
	}
}
