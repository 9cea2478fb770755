package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"brain/internal/types"
)

func TestMistralClient_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("Expected test-key authorization")
		}

		var req MistralRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if len(req.Messages) != 3 {
			t.Errorf("Expected 3 messages (2 context + prompt), got %d", len(req.Messages))
		}
		if req.Messages[len(req.Messages)-1].Content != "What next?" {
			t.Errorf("Expected prompt as final message, got %q", req.Messages[len(req.Messages)-1].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"id": "chatcmpl-123",
			"model": "mistral-large-latest",
			"choices": [{"message": {"role": "assistant", "content": "Do the thing."}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	client := NewMistralClient("test-key")
	client.baseURL = server.URL

	history := []types.Message{
		{Role: types.RoleUser, Content: "Hello"},
		{Role: types.RoleAssistant, Content: "Hi!", Provider: "mistral"},
	}

	res := client.Generate(context.Background(), "What next?", history)
	if res.Failed {
		t.Fatalf("Generate failed: %s", res.ErrorDetail)
	}
	if res.Content != "Do the thing." {
		t.Errorf("Expected 'Do the thing.', got %q", res.Content)
	}
	if res.Backend != "mistral" {
		t.Errorf("Expected backend mistral, got %q", res.Backend)
	}
	if res.Usage == nil || res.Usage.TotalTokens != 15 {
		t.Errorf("Expected usage total 15, got %+v", res.Usage)
	}
}

func TestMistralClient_Generate_MissingKey(t *testing.T) {
	client := NewMistralClient("")

	res := client.Generate(context.Background(), "Hello", nil)
	if !res.Failed {
		t.Fatal("Expected failed result for missing API key")
	}
	if res.ErrorDetail == "" {
		t.Error("Expected human-readable error detail")
	}
	if res.Content != res.ErrorDetail {
		t.Error("Expected error text mirrored into content")
	}
}

func TestMistralClient_Generate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`upstream exploded`))
	}))
	defer server.Close()

	client := NewMistralClient("test-key")
	client.baseURL = server.URL

	res := client.Generate(context.Background(), "Hello", nil)
	if !res.Failed {
		t.Fatal("Expected failed result for 500 response")
	}
	if res.Backend != "mistral" {
		t.Errorf("Failed result must still carry the backend id, got %q", res.Backend)
	}
}

func TestMistralClient_Generate_APIErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"error": {"message": "model overloaded", "type": "server_error"}}`))
	}))
	defer server.Close()

	client := NewMistralClient("test-key")
	client.baseURL = server.URL

	res := client.Generate(context.Background(), "Hello", nil)
	if !res.Failed {
		t.Fatal("Expected failed result for error body")
	}
}

func TestMistralClient_Generate_SkipsNonConversationRoles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req MistralRequest
		json.NewDecoder(r.Body).Decode(&req)
		// One context turn survives the filter, plus the prompt.
		if len(req.Messages) != 2 {
			t.Errorf("Expected system-role context to be dropped, got %d messages", len(req.Messages))
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	}))
	defer server.Close()

	client := NewMistralClient("test-key")
	client.baseURL = server.URL

	history := []types.Message{
		{Role: "system", Content: "ignored"},
		{Role: types.RoleUser, Content: "kept"},
	}
	res := client.Generate(context.Background(), "Hello", history)
	if res.Failed {
		t.Fatalf("Generate failed: %s", res.ErrorDetail)
	}
}
