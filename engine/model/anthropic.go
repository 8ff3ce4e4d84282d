package model

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Anthropic implements Provider for Claude models via the Messages API.
type Anthropic struct {
	config ProviderConfig
	http   *httpClient
}

// NewAnthropic creates an Anthropic provider with the given API key.
func NewAnthropic(apiKey string) *Anthropic {
	return NewAnthropicWithConfig(ProviderConfig{APIKey: apiKey})
}

// NewAnthropicWithConfig creates an Anthropic provider with full configuration.
func NewAnthropicWithConfig(cfg ProviderConfig) *Anthropic {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	headers := map[string]string{
		"x-api-key":         cfg.APIKey,
		"anthropic-version": "2023-06-01",
	}
	return &Anthropic{
		config: cfg,
		http:   newHTTPClient(cfg.BaseURL, cfg.TimeoutSec, headers),
	}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	resp, err := a.http.post(ctx, "/v1/messages", a.buildRequestBody(req))
	if err != nil {
		return nil, fmt.Errorf("anthropic chat: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anthropic chat: %s", readErrorBody(resp))
	}

	var raw anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("anthropic chat decode: %w", err)
	}
	return convertAnthropicResponse(&raw), nil
}

func (a *Anthropic) buildRequestBody(req *ChatRequest) map[string]any {
	modelID := req.Model
	if modelID == "" {
		modelID = a.config.Model
	}

	var system string
	messages := make([]map[string]any, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch {
		case m.Role == RoleSystem:
			system = m.Content
		case m.Role == RoleTool:
			// Tool observations travel as user-role tool_result blocks.
			messages = append(messages, map[string]any{
				"role": RoleUser,
				"content": []map[string]any{{
					"type":        "tool_result",
					"tool_use_id": m.ToolCallID,
					"content":     m.Content,
				}},
			})
		case len(m.ToolCalls) > 0:
			content := make([]map[string]any, 0, len(m.ToolCalls)+1)
			if m.Content != "" {
				content = append(content, map[string]any{"type": "text", "text": m.Content})
			}
			for _, tc := range m.ToolCalls {
				var input any
				_ = json.Unmarshal([]byte(tc.Arguments), &input)
				content = append(content, map[string]any{
					"type":  "tool_use",
					"id":    tc.ID,
					"name":  tc.Name,
					"input": input,
				})
			}
			messages = append(messages, map[string]any{"role": m.Role, "content": content})
		default:
			messages = append(messages, map[string]any{"role": m.Role, "content": m.Content})
		}
	}

	body := map[string]any{
		"model":      modelID,
		"messages":   messages,
		"max_tokens": 2048,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if system != "" {
		body["system"] = system
	}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}
	if len(req.Tools) > 0 {
		tools := make([]map[string]any, len(req.Tools))
		for i, t := range req.Tools {
			tools[i] = map[string]any{
				"name":         t.Name,
				"description":  t.Description,
				"input_schema": t.Parameters,
			}
		}
		body["tools"] = tools
	}
	return body
}

func convertAnthropicResponse(raw *anthropicResponse) *ChatResponse {
	cr := &ChatResponse{ID: raw.ID}

	var textParts []string
	for _, block := range raw.Content {
		switch block.Type {
		case "text":
			textParts = append(textParts, block.Text)
		case "tool_use":
			argsJSON, _ := json.Marshal(block.Input)
			cr.ToolCalls = append(cr.ToolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: string(argsJSON),
			})
		}
	}
	cr.Content = strings.Join(textParts, "")

	switch raw.StopReason {
	case "tool_use":
		cr.StopReason = StopReasonToolCall
	case "max_tokens":
		cr.StopReason = StopReasonMaxTokens
	default:
		cr.StopReason = StopReasonEnd
	}
	return cr
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type  string `json:"type"`
		Text  string `json:"text,omitempty"`
		ID    string `json:"id,omitempty"`
		Name  string `json:"name,omitempty"`
		Input any    `json:"input,omitempty"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}
