// Package providers implements the language-model turn provider over any
// OpenAI-compatible chat-completions endpoint.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/roadscout/roadscout/internal/schema"
)

const defaultAPIBase = "https://api.openai.com/v1"

// OpenAIProvider makes direct HTTP calls to an OpenAI-compatible endpoint.
type OpenAIProvider struct {
	apiKey       string
	apiBase      string
	defaultModel string
	extraHeaders map[string]string
	httpClient   *http.Client
}

// Params carries raw config values for New. The caller extracts these from
// config.Config to avoid an import cycle.
type Params struct {
	APIKey       string
	APIBase      string
	DefaultModel string
	ExtraHeaders map[string]string
}

// New constructs an OpenAIProvider.
func New(p Params) *OpenAIProvider {
	base := p.APIBase
	if base == "" {
		base = defaultAPIBase
	}
	return &OpenAIProvider{
		apiKey:       p.APIKey,
		apiBase:      strings.TrimRight(base, "/"),
		defaultModel: p.DefaultModel,
		extraHeaders: p.ExtraHeaders,
		httpClient:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }

// Chat implements schema.LLMProvider.
func (p *OpenAIProvider) Chat(
	ctx context.Context,
	messages schema.Messages,
	tools []map[string]any,
	opts schema.ChatOptions,
) (schema.LLMResponse, error) {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	body := map[string]any{
		"model":       model,
		"messages":    toWireMessages(messages),
		"max_tokens":  maxTokens,
		"temperature": opts.Temperature,
	}
	if len(tools) > 0 {
		body["tools"] = tools
		body["tool_choice"] = "auto"
	}

	data, err := json.Marshal(body)
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.apiBase+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	for k, v := range p.extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return schema.LLMResponse{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, friendlyHTTPError(resp.StatusCode, raw))
	}

	return ParseResponse(raw)
}

// toWireMessages serialises the typed conversation into the wire format.
func toWireMessages(messages schema.Messages) []map[string]any {
	out := make([]map[string]any, 0, len(messages.Messages))
	for _, m := range messages.Messages {
		wire := map[string]any{"role": m.Role}

		switch c := m.Content.(type) {
		case string:
			wire["content"] = c
		case *string:
			if c != nil {
				wire["content"] = *c
			}
		}

		if len(m.ToolCalls) > 0 {
			calls := make([]map[string]any, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				calls = append(calls, tc.ToWireMap())
			}
			wire["tool_calls"] = calls
		}
		if m.Role == "tool" {
			wire["tool_call_id"] = m.ToolCallID
			wire["name"] = m.ToolName
		}
		out = append(out, wire)
	}
	return out
}

// ParseResponse normalises a chat-completions body into an LLMResponse.
func ParseResponse(raw []byte) (schema.LLMResponse, error) {
	var data struct {
		Choices []struct {
			Message struct {
				Content   *string `json:"content"`
				ToolCalls []struct {
					ID       string `json:"id"`
					Function struct {
						Name      string `json:"name"`
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return schema.LLMResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if data.Error != nil {
		return schema.LLMResponse{}, fmt.Errorf("provider error: %s", data.Error.Message)
	}
	if len(data.Choices) == 0 {
		return schema.LLMResponse{}, fmt.Errorf("empty choices in response")
	}

	choice := data.Choices[0]
	out := schema.LLMResponse{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: map[string]int{
			"input_tokens":  data.Usage.PromptTokens,
			"output_tokens": data.Usage.CompletionTokens,
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			// Malformed argument JSON degrades to empty args; the executor
			// reports the missing parameters back to the model.
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		out.ToolCalls = append(out.ToolCalls, schema.ToolCallRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return out, nil
}

// friendlyHTTPError extracts the provider's error message when present.
func friendlyHTTPError(status int, raw []byte) string {
	var data struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &data); err == nil && data.Error.Message != "" {
		return data.Error.Message
	}
	s := string(raw)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		return http.StatusText(status)
	}
	return s
}
