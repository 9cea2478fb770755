package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"brain/internal/types"
)

func TestClaudeClient_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Error("Expected x-api-key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("Expected anthropic-version header")
		}

		var req ClaudeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.MaxTokens == 0 {
			t.Error("Expected max_tokens to be set")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"id": "msg_01",
			"content": [
				{"type": "text", "text": "Part one. "},
				{"type": "thinking", "text": "hidden"},
				{"type": "text", "text": "Part two."}
			],
			"model": "claude-sonnet-4-20250514",
			"usage": {"input_tokens": 8, "output_tokens": 4}
		}`))
	}))
	defer server.Close()

	client := NewClaudeClient("test-key")
	client.baseURL = server.URL

	res := client.Generate(context.Background(), "Hello", nil)
	if res.Failed {
		t.Fatalf("Generate failed: %s", res.ErrorDetail)
	}
	if res.Content != "Part one. Part two." {
		t.Errorf("Expected joined text blocks, got %q", res.Content)
	}
	if res.Usage == nil || res.Usage.TotalTokens != 12 {
		t.Errorf("Expected total tokens 12, got %+v", res.Usage)
	}
}

func TestClaudeClient_Generate_MissingKey(t *testing.T) {
	client := NewClaudeClient("")

	res := client.Generate(context.Background(), "Hello", nil)
	if !res.Failed {
		t.Fatal("Expected failed result for missing API key")
	}
	if res.Backend != "claude" {
		t.Errorf("Expected backend claude, got %q", res.Backend)
	}
}

func TestClaudeClient_Generate_TransportError(t *testing.T) {
	client := NewClaudeClient("test-key")
	// Unroutable address: the request itself must fail.
	client.baseURL = "http://127.0.0.1:1"

	res := client.Generate(context.Background(), "Hello", nil)
	if !res.Failed {
		t.Fatal("Expected failed result for transport error")
	}
	if res.ErrorDetail == "" {
		t.Error("Expected error detail for transport failure")
	}
}

func TestClaudeClient_Generate_ForwardsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ClaudeRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 3 {
			t.Errorf("Expected 3 messages, got %d", len(req.Messages))
		}
		if req.Messages[0].Role != types.RoleUser || req.Messages[1].Role != types.RoleAssistant {
			t.Error("Expected context roles preserved in order")
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"content": [{"type": "text", "text": "ok"}]}`))
	}))
	defer server.Close()

	client := NewClaudeClient("test-key")
	client.baseURL = server.URL

	history := []types.Message{
		{Role: types.RoleUser, Content: "q1"},
		{Role: types.RoleAssistant, Content: "a1", Provider: "claude"},
	}
	res := client.Generate(context.Background(), "q2", history)
	if res.Failed {
		t.Fatalf("Generate failed: %s", res.ErrorDetail)
	}
}
