package tool

import (
	"context"
	"errors"
	"testing"
)

type stubTool struct {
	name    string
	result  string
	err     error
	sources []Source
}

func (s *stubTool) Definition() Definition {
	return Definition{Name: s.name, Description: "stub", Parameters: map[string]any{"type": "object"}}
}

func (s *stubTool) Execute(context.Context, map[string]any) (string, error) {
	return s.result, s.err
}

func (s *stubTool) Sources() []Source { return s.sources }
func (s *stubTool) ResetSources()     { s.sources = nil }

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "a", result: "ok"})

	got, err := r.Dispatch(context.Background(), "a", nil)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got != "ok" {
		t.Fatalf("expected 'ok', got %q", got)
	}

	if _, err := r.Dispatch(context.Background(), "missing", nil); !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "a", result: "first"})
	r.Register(&stubTool{name: "a", result: "second"})

	if defs := r.Definitions(); len(defs) != 1 {
		t.Fatalf("expected 1 definition, got %d", len(defs))
	}
	got, err := r.Dispatch(context.Background(), "a", nil)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got != "second" {
		t.Fatalf("expected last registration to win, got %q", got)
	}
}

func TestRegistryDefinitionsSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "zeta"})
	r.Register(&stubTool{name: "alpha"})

	defs := r.Definitions()
	if len(defs) != 2 || defs[0].Name != "alpha" || defs[1].Name != "zeta" {
		t.Fatalf("definitions not sorted: %+v", defs)
	}
}

func TestDrainSources(t *testing.T) {
	r := NewRegistry()
	dup := Source{Label: "Course A - Lesson 1", Link: "https://example.com/1"}
	r.Register(&stubTool{name: "search", sources: []Source{dup, {Label: "Course B"}, dup}})

	sources := r.DrainSources()
	if len(sources) != 2 {
		t.Fatalf("expected 2 deduplicated sources, got %d: %+v", len(sources), sources)
	}
	if sources[0] != dup {
		t.Fatalf("collection order lost: %+v", sources)
	}

	// Drain resets: a second drain with no intervening execution is empty.
	if again := r.DrainSources(); len(again) != 0 {
		t.Fatalf("expected empty second drain, got %+v", again)
	}
}
