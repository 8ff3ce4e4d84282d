// Package agent runs the tool-calling answer loop: it hands the model a
// question plus the registered tools, executes the tool calls the model
// makes, and returns the final answer with its sources.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/studyhall-ai/studyhall/engine/model"
	"github.com/studyhall-ai/studyhall/engine/tool"
	"github.com/studyhall-ai/studyhall/sdk/session"
)

// ErrQueryFailed is returned when the model could not produce an answer.
// Callers should treat it as opaque and not surface provider details.
var ErrQueryFailed = errors.New("query failed")

const defaultSystemPrompt = `You are a course materials assistant. Answer questions about course
content using the provided tools. Search the course content before
answering content questions, and use the course outline tool for
questions about course structure. Answer concisely from what the tools
return; if the tools return nothing relevant, say you don't know.`

// Answer is the result of one completed query.
type Answer struct {
	Text      string        `json:"answer"`
	Sources   []tool.Source `json:"sources"`
	SessionID string        `json:"session_id"`
}

// Assistant orchestrates the model, the tool registry, and conversation
// history.
type Assistant struct {
	provider      model.Provider
	tools         *tool.Registry
	history       *session.Store
	maxToolRounds int
	systemPrompt  string
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithSystemPrompt replaces the built-in system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(a *Assistant) { a.systemPrompt = prompt }
}

// WithMaxToolRounds caps how many rounds of tool calls the model may
// make before it is forced to answer. Values below 1 are raised to 1.
func WithMaxToolRounds(rounds int) Option {
	return func(a *Assistant) {
		if rounds < 1 {
			rounds = 1
		}
		a.maxToolRounds = rounds
	}
}

// New creates an Assistant around a provider, a tool registry, and a
// history store.
func New(provider model.Provider, tools *tool.Registry, history *session.Store, opts ...Option) *Assistant {
	a := &Assistant{
		provider:      provider,
		tools:         tools,
		history:       history,
		maxToolRounds: 2,
		systemPrompt:  defaultSystemPrompt,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnswerQuery runs one query to completion. An empty sessionID starts a
// new conversation; the ID in use is echoed back in the Answer. History
// is only committed when an answer is actually produced, so a failed
// query leaves the conversation untouched.
func (a *Assistant) AnswerQuery(ctx context.Context, query, sessionID string) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrQueryFailed)
	}
	if sessionID == "" {
		sessionID = a.history.NewSessionID()
	}

	system := a.systemPrompt
	if history := a.history.Context(sessionID); history != "" {
		system += "\n\nPrevious conversation:\n" + history
	}

	messages := []model.Message{
		{Role: model.RoleSystem, Content: system},
		{Role: model.RoleUser, Content: query},
	}
	defs := a.tools.Definitions()
	schemas := make([]model.ToolSchema, len(defs))
	for i, d := range defs {
		schemas[i] = model.ToolSchema{Name: d.Name, Description: d.Description, Parameters: d.Parameters}
	}

	text, err := a.runLoop(ctx, messages, schemas)
	if err != nil {
		// Discard any sources recorded by tool runs on the failed path.
		a.tools.DrainSources()
		return nil, err
	}

	sources := a.tools.DrainSources()
	a.history.AppendTurn(sessionID, session.RoleUser, query)
	a.history.AppendTurn(sessionID, session.RoleAssistant, text)

	return &Answer{Text: text, Sources: sources, SessionID: sessionID}, nil
}

// runLoop drives the model until it answers in plain text. Each round the
// model may call tools; after maxToolRounds the tool schemas are withheld
// so the model has to produce a final answer.
func (a *Assistant) runLoop(ctx context.Context, messages []model.Message, schemas []model.ToolSchema) (string, error) {
	for round := 0; round <= a.maxToolRounds; round++ {
		req := &model.ChatRequest{Messages: messages}
		if round < a.maxToolRounds {
			req.Tools = schemas
		}

		resp, err := a.provider.Chat(ctx, req)
		if err != nil {
			log.Printf("agent: provider %s: %v", a.provider.Name(), err)
			return "", fmt.Errorf("%w: model call failed", ErrQueryFailed)
		}

		if len(resp.ToolCalls) == 0 || round == a.maxToolRounds {
			answer := strings.TrimSpace(resp.Content)
			if answer == "" {
				return "", fmt.Errorf("%w: model returned no answer", ErrQueryFailed)
			}
			return answer, nil
		}

		messages = append(messages, model.Message{
			Role:      model.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			messages = append(messages, model.Message{
				Role:       model.RoleTool,
				Content:    a.execute(ctx, call),
				ToolCallID: call.ID,
			})
		}
	}
	// Unreachable: the final iteration always returns.
	return "", fmt.Errorf("%w: model returned no answer", ErrQueryFailed)
}

// execute runs one tool call and always returns an observation for the
// model; dispatch failures are surfaced to the model, not the caller.
func (a *Assistant) execute(ctx context.Context, call model.ToolCall) string {
	args := make(map[string]any)
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			log.Printf("agent: tool %s: bad arguments: %v", call.Name, err)
			return fmt.Sprintf("search failed: invalid arguments: %v", err)
		}
	}
	out, err := a.tools.Dispatch(ctx, call.Name, args)
	if err != nil {
		log.Printf("agent: tool %s: %v", call.Name, err)
		return fmt.Sprintf("search failed: %v", err)
	}
	return out
}
