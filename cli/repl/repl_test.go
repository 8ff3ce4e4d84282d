package repl

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/studyhall-ai/studyhall/engine/model"
	"github.com/studyhall-ai/studyhall/engine/tool"
	"github.com/studyhall-ai/studyhall/sdk/agent"
	"github.com/studyhall-ai/studyhall/sdk/knowledge"
	"github.com/studyhall-ai/studyhall/sdk/session"
	"github.com/studyhall-ai/studyhall/storage/adapters/memory"
)

type fixedProvider struct {
	content string
}

func (p *fixedProvider) Chat(context.Context, *model.ChatRequest) (*model.ChatResponse, error) {
	return &model.ChatResponse{Content: p.content, StopReason: model.StopReasonEnd}, nil
}

func (p *fixedProvider) Name() string { return "fixed" }

type flatEmbedder struct{}

func (flatEmbedder) Embed(_ context.Context, req *model.EmbeddingRequest) (*model.EmbeddingResponse, error) {
	out := make([][]float32, len(req.Input))
	for i := range out {
		out[i] = []float32{1}
	}
	return &model.EmbeddingResponse{Embeddings: out}, nil
}

func newTestREPL(t *testing.T) *REPL {
	t.Helper()
	store := memory.New()
	svc, err := knowledge.NewService(store, store, flatEmbedder{}, knowledge.Config{
		ChunkSize: 200, ChunkOverlap: 40, MatchCutoff: 0.4,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	assistant := agent.New(&fixedProvider{content: "The answer."}, tool.NewRegistry(), session.NewStore(2))
	return New(assistant, svc)
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestNew(t *testing.T) {
	r := newTestREPL(t)
	for _, cmd := range []string{"/help", "/courses", "/clear", "/quit"} {
		if _, ok := r.commands[cmd]; !ok {
			t.Errorf("expected command %q to be registered", cmd)
		}
	}
}

func TestRegister(t *testing.T) {
	r := newTestREPL(t)
	r.Register(Command{
		Name:        "/custom",
		Description: "A custom command",
		Handler:     func(_ string) error { return nil },
	})
	if _, ok := r.commands["/custom"]; !ok {
		t.Error("expected /custom to be registered")
	}
}

func TestSlashHelp(t *testing.T) {
	r := newTestREPL(t)
	output := captureStdout(t, func() {
		if err := r.commands["/help"].Handler(""); err != nil {
			t.Fatalf("/help error: %v", err)
		}
	})
	if !strings.Contains(output, "Available commands") {
		t.Errorf("/help output missing 'Available commands': %q", output)
	}
	if !strings.Contains(output, "/quit") {
		t.Errorf("/help output missing '/quit': %q", output)
	}
}

func TestSlashCoursesEmpty(t *testing.T) {
	r := newTestREPL(t)
	output := captureStdout(t, func() {
		if err := r.commands["/courses"].Handler(""); err != nil {
			t.Fatalf("/courses error: %v", err)
		}
	})
	if !strings.Contains(output, "No courses loaded") {
		t.Errorf("expected 'No courses loaded', got: %q", output)
	}
}

func TestSlashClear(t *testing.T) {
	r := newTestREPL(t)
	r.sessionID = "some-session"
	captureStdout(t, func() {
		r.commands["/clear"].Handler("")
	})
	if r.sessionID != "" {
		t.Errorf("expected session cleared, got %q", r.sessionID)
	}
}

func TestSlashQuit(t *testing.T) {
	r := newTestREPL(t)
	r.commands["/quit"].Handler("")

	select {
	case <-r.ctx.Done():
	default:
		t.Error("expected context to be cancelled after /quit")
	}
}

func TestAskKeepsSession(t *testing.T) {
	r := newTestREPL(t)
	output := captureStdout(t, func() {
		r.ask("what are widgets?")
	})
	if !strings.Contains(output, "The answer.") {
		t.Errorf("answer missing from output: %q", output)
	}
	if r.sessionID == "" {
		t.Error("expected session ID to persist after first question")
	}

	first := r.sessionID
	captureStdout(t, func() {
		r.ask("tell me more")
	})
	if r.sessionID != first {
		t.Errorf("session changed between questions: %q -> %q", first, r.sessionID)
	}
}
