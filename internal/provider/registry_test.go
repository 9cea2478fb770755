package provider

import (
	"context"
	"reflect"
	"testing"

	"brain/internal/config"
	"brain/internal/types"
)

type stubClient struct {
	name string
}

func (s *stubClient) Name() string { return s.name }

func (s *stubClient) Generate(ctx context.Context, prompt string, history []types.Message) types.Result {
	return types.Result{Content: "stub", Backend: s.name}
}

func TestRegistry_GetUnknownBackend(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubClient{name: "alpha"})

	if _, err := reg.Get("alpha"); err != nil {
		t.Fatalf("Expected alpha to resolve: %v", err)
	}

	_, err := reg.Get("nope")
	if err == nil {
		t.Fatal("Expected configuration error for unknown backend")
	}
}

func TestRegistry_NamesSorted(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubClient{name: "zeta"})
	reg.Register(&stubClient{name: "alpha"})
	reg.Register(&stubClient{name: "mid"})

	got := reg.Names()
	want := []string{"alpha", "mid", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubClient{name: "alpha"})
	reg.Register(&stubClient{name: "alpha"})

	if reg.Len() != 1 {
		t.Errorf("Expected 1 backend after re-registration, got %d", reg.Len())
	}
}

func TestNewDefaultRegistry_RegistersAllProviders(t *testing.T) {
	cfg := config.Default()
	// No credentials at all: registration must still succeed for every
	// provider; missing keys become failed results at call time.
	reg := NewDefaultRegistry(cfg, config.Credentials{})

	want := []string{"claude", "gemini", "mistral"}
	if got := reg.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}

	c, err := reg.Get("mistral")
	if err != nil {
		t.Fatalf("Get(mistral): %v", err)
	}
	res := c.Generate(context.Background(), "hi", nil)
	if !res.Failed {
		t.Error("Expected failed result from credential-less adapter")
	}
}

func TestNewDefaultRegistry_ModelHintAppliesToDefaultProvider(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultProvider = "claude"
	cfg.DefaultModel = "claude-test-model"

	reg := NewDefaultRegistry(cfg, config.Credentials{Anthropic: "key"})

	c, err := reg.Get("claude")
	if err != nil {
		t.Fatalf("Get(claude): %v", err)
	}
	claude, ok := c.(*ClaudeClient)
	if !ok {
		t.Fatalf("Expected *ClaudeClient, got %T", c)
	}
	if claude.Model() != "claude-test-model" {
		t.Errorf("Expected model hint applied, got %q", claude.Model())
	}
}
