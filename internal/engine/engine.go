// Package engine drives the bounded model/tool conversation cycle: it sends
// the session context to the language model, executes at most one requested
// tool per cycle, feeds the result back, and stops when the model produces a
// text answer or the cycle bound is hit.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roadscout/roadscout/internal/schema"
	"github.com/roadscout/roadscout/internal/shared/textutils"
	"github.com/roadscout/roadscout/internal/tools"
)

const (
	// DefaultMaxToolCycles bounds complete model→tool→model cycles per
	// session so a model that keeps requesting tools cannot loop forever.
	DefaultMaxToolCycles = 5
	// DefaultHistoryWindow is how many caller-supplied turns are retained.
	DefaultHistoryWindow = 10

	// fallbackText is the only failure text ever shown to the end caller;
	// internal detail stays in the logs.
	fallbackText = "Sorry, I couldn't work that out right now. Please try again in a moment."
)

// state is the engine's position in one session.
type state int

const (
	stateAwaitingModel state = iota
	stateExecutingTool
	stateDone
	stateFailed
)

// Settings configures the engine. Zero values select the defaults.
type Settings struct {
	Model         string
	MaxTokens     int
	Temperature   float64
	MaxToolCycles int
	HistoryWindow int
}

// Request is one conversation run: a user message, optional location, and up
// to HistoryWindow prior turns. OnProgress, when set, receives short hints as
// tools are invoked.
type Request struct {
	Message    string
	Location   *schema.LatLon
	History    []schema.Turn
	OnProgress func(string)
}

// Engine runs conversations against a model provider and a tool registry.
// It keeps no per-session state, so one Engine serves any number of
// concurrent sessions; within a session execution is strictly sequential.
type Engine struct {
	provider schema.LLMProvider
	registry *tools.Registry
	settings Settings
}

// New creates an Engine. Unset numeric settings fall back to defaults.
func New(provider schema.LLMProvider, registry *tools.Registry, settings Settings) *Engine {
	if settings.MaxToolCycles <= 0 {
		settings.MaxToolCycles = DefaultMaxToolCycles
	}
	if settings.HistoryWindow <= 0 {
		settings.HistoryWindow = DefaultHistoryWindow
	}
	return &Engine{provider: provider, registry: registry, settings: settings}
}

// Run executes one session to completion and returns the assembled outcome.
// It always terminates: the cycle bound caps model calls and every tool call
// inherits ctx plus the upstream client timeout.
func (e *Engine) Run(ctx context.Context, req Request) schema.Outcome {
	conv := BuildConversation(req, e.settings.HistoryWindow, time.Now())
	defs := e.registry.Definitions()

	var (
		used      = make([]string, 0, e.settings.MaxToolCycles)
		finalText string
		failure   string
		pending   schema.ToolCallRequest
		cycles    int
	)

	st := stateAwaitingModel
	for st != stateDone && st != stateFailed {
		if err := ctx.Err(); err != nil {
			st, failure = stateFailed, fmt.Sprintf("session cancelled: %v", err)
			continue
		}

		switch st {
		case stateAwaitingModel:
			resp, err := e.provider.Chat(ctx, conv, defs,
				schema.NewChatOptions(e.settings.Model, e.settings.MaxTokens, e.settings.Temperature))
			if err != nil {
				st, failure = stateFailed, fmt.Sprintf("model turn failed: %v", err)
				continue
			}

			if !resp.HasToolCalls() {
				text := ""
				if resp.Content != nil {
					text = textutils.StripThink(*resp.Content)
				}
				if text == "" {
					st, failure = stateFailed, "malformed model turn: neither text nor tool call"
					continue
				}
				finalText = text
				st = stateDone
				continue
			}

			if cycles >= e.settings.MaxToolCycles {
				st, failure = stateFailed, fmt.Sprintf("no final answer within %d tool cycles", e.settings.MaxToolCycles)
				continue
			}

			tc := resp.ToolCalls[0]
			if len(resp.ToolCalls) > 1 {
				slog.Warn("model requested multiple tools; executing first only",
					"first", tc.Name, "ignored", len(resp.ToolCalls)-1)
			}
			if e.registry.Get(tc.Name) == nil {
				st, failure = stateFailed, fmt.Sprintf("unknown tool requested: %q", tc.Name)
				continue
			}

			conv.AddAssistant(resp.Content, []schema.ToolCall{
				{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments},
			})
			used = append(used, tc.Name)
			if req.OnProgress != nil {
				req.OnProgress(textutils.ToolHint(tc))
			}
			pending = tc
			st = stateExecutingTool

		case stateExecutingTool:
			result := e.executeTool(ctx, pending)
			conv.AddToolResult(pending.ID, pending.Name, result)
			cycles++
			st = stateAwaitingModel
		}
	}

	return e.assemble(st, finalText, used, failure)
}

// executeTool runs one executor. Executors convert their own failures to
// payload strings; a non-nil error here is a programming error and is folded
// into a failure payload so the session keeps its ordinary shape.
func (e *Engine) executeTool(ctx context.Context, tc schema.ToolCallRequest) string {
	slog.Info("tool call", "name", tc.Name)

	result, err := e.registry.Get(tc.Name).Execute(ctx, tc.Arguments)
	if err != nil {
		slog.Error("tool executor error", "name", tc.Name, "err", err)
		return fmt.Sprintf(`{"error":"tool %s failed internally"}`, tc.Name)
	}
	slog.Debug("tool result", "name", tc.Name, "result", textutils.Truncate(result, 200))
	return result
}

// assemble maps the terminal state to the externally visible outcome.
// Failure detail is logged and replaced by the fixed friendly fallback.
func (e *Engine) assemble(st state, finalText string, used []string, failure string) schema.Outcome {
	if st == stateDone {
		return schema.Outcome{Success: true, Text: finalText, ToolsUsed: used}
	}
	slog.Error("conversation failed", "reason", failure, "toolsUsed", used)
	return schema.Outcome{Success: false, Text: fallbackText, ToolsUsed: used}
}
