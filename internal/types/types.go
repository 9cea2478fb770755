// Package types provides shared value types used across brain packages.
// This package exists to break import cycles between provider, history,
// orchestrator, and session. Types here are plain data with no dependencies.
package types

import "time"

// Message roles. Only user and assistant messages are ever forwarded to a
// backend; anything else in a stored thread is dropped at the adapter boundary.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn within a thread. Messages are
// immutable once appended; ordering is append order.
//
// The persisted form is the thread record format: role, content, optional
// provider (which backend produced an assistant turn), and an RFC3339
// timestamp. Readers tolerate absent optional fields.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Provider  string `json:"provider,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// NewMessage builds a Message stamped with the current UTC time.
func NewMessage(role, content, provider string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Provider:  provider,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Usage reports token accounting for a single completion, when the backend
// returns it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is the uniform outcome of one adapter invocation. Produced exactly
// once per Generate call and never mutated afterwards.
//
// Adapter failures are data, not errors: a transport failure, missing
// credential, or malformed response yields Failed=true with a human-readable
// ErrorDetail. Content carries the error text in that case so downstream
// consumers (display, synthesis, history) can treat every result uniformly.
type Result struct {
	Content     string `json:"content"`
	Backend     string `json:"backend"`
	Model       string `json:"model,omitempty"`
	Usage       *Usage `json:"usage,omitempty"`
	Failed      bool   `json:"failed,omitempty"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

// Failure builds a failed Result for the given backend. The error text is
// mirrored into Content so it survives verbatim into history and synthesis.
func Failure(backend string, err error) Result {
	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}
	return Result{
		Content:     detail,
		Backend:     backend,
		Failed:      true,
		ErrorDetail: detail,
	}
}
