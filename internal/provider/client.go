// Package provider implements the uniform backend adapter contract and the
// HTTP clients for each completion provider.
//
// Every adapter wraps one external service behind Client. Generate never
// returns an error: transport failures, missing credentials, and malformed
// responses are captured as failed Results so a single backend can never
// abort an orchestration.
package provider

import (
	"context"

	"brain/internal/types"
)

// Client defines the uniform contract every backend adapter satisfies.
//
// Implementations are stateless between calls and perform exactly one
// outbound request per Generate invocation. The history slice is the caller's
// context window; adapters forward only user and assistant turns, translated
// into whatever shape their backend expects.
type Client interface {
	// Name returns the backend identifier this adapter is registered under.
	Name() string

	// Generate produces one completion for prompt given the prior turns.
	Generate(ctx context.Context, prompt string, history []types.Message) types.Result
}

// conversationTurns filters a context window down to the turns a backend
// accepts: user and assistant messages, in original order.
func conversationTurns(history []types.Message) []types.Message {
	turns := make([]types.Message, 0, len(history))
	for _, msg := range history {
		if msg.Role == types.RoleUser || msg.Role == types.RoleAssistant {
			turns = append(turns, msg)
		}
	}
	return turns
}
