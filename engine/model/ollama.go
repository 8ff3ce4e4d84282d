package model

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Ollama implements Provider against a local Ollama server, which exposes
// an OpenAI-compatible API at /v1/chat/completions.
type Ollama struct {
	config ProviderConfig
	http   *httpClient
}

// NewOllama creates an Ollama provider pointing at a local instance.
func NewOllama(host, modelName string) *Ollama {
	return NewOllamaWithConfig(ProviderConfig{BaseURL: host, Model: modelName})
}

// NewOllamaWithConfig creates an Ollama provider with full configuration.
func NewOllamaWithConfig(cfg ProviderConfig) *Ollama {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.2"
	}
	return &Ollama{
		config: cfg,
		http:   newHTTPClient(cfg.BaseURL, cfg.TimeoutSec, nil),
	}
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	resp, err := o.http.post(ctx, "/v1/chat/completions", o.buildRequestBody(req))
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama chat: %s", readErrorBody(resp))
	}

	var raw openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("ollama chat decode: %w", err)
	}
	return convertOpenAIResponse(&raw), nil
}

func (o *Ollama) buildRequestBody(req *ChatRequest) map[string]any {
	modelID := req.Model
	if modelID == "" {
		modelID = o.config.Model
	}

	messages := make([]map[string]any, 0, len(req.Messages))
	for _, m := range req.Messages {
		msg := map[string]any{"role": m.Role, "content": m.Content}
		if m.ToolCallID != "" {
			msg["tool_call_id"] = m.ToolCallID
		}
		if len(m.ToolCalls) > 0 {
			tcs := make([]map[string]any, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				tcs[i] = map[string]any{
					"id":   tc.ID,
					"type": "function",
					"function": map[string]any{
						"name":      tc.Name,
						"arguments": tc.Arguments,
					},
				}
			}
			msg["tool_calls"] = tcs
		}
		messages = append(messages, msg)
	}

	body := map[string]any{
		"model":    modelID,
		"messages": messages,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}
	if len(req.Tools) > 0 {
		tools := make([]map[string]any, len(req.Tools))
		for i, t := range req.Tools {
			tools[i] = map[string]any{
				"type": "function",
				"function": map[string]any{
					"name":        t.Name,
					"description": t.Description,
					"parameters":  t.Parameters,
				},
			}
		}
		body["tools"] = tools
	}
	return body
}

type openAIChatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
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
}

func convertOpenAIResponse(raw *openAIChatResponse) *ChatResponse {
	cr := &ChatResponse{ID: raw.ID, StopReason: StopReasonEnd}
	if len(raw.Choices) == 0 {
		return cr
	}
	choice := raw.Choices[0]
	cr.Content = choice.Message.Content
	for _, tc := range choice.Message.ToolCalls {
		cr.ToolCalls = append(cr.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	switch choice.FinishReason {
	case "tool_calls":
		cr.StopReason = StopReasonToolCall
	case "length":
		cr.StopReason = StopReasonMaxTokens
	}
	return cr
}
