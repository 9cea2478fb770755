// Package history persists per-thread conversation history.
//
// A thread is a named, ordered sequence of messages. Exactly one durable
// record exists per thread name; threads are created implicitly on first
// append and never destroyed here. The package assumes a single session
// process accesses a given thread at a time.
package history

import (
	"fmt"

	"brain/internal/types"
)

// Store is the durable thread substrate. Two implementations exist: a
// JSON-file-per-thread store (default) and a sqlite-backed store.
type Store interface {
	// Load returns the full ordered message sequence for a thread.
	// An unknown thread is an empty sequence, never an error.
	Load(thread string) ([]types.Message, error)

	// Append performs a read-modify-write of the thread's durable record:
	// load, append, persist atomically as the new full sequence.
	Append(thread string, msg types.Message) error

	// Window returns the last min(max, len) messages in original order.
	Window(thread string, max int) ([]types.Message, error)

	// Threads lists the thread names with at least one stored message.
	Threads() ([]string, error)

	Close() error
}

// lastN slices the most recent max entries of msgs without copying.
func lastN(msgs []types.Message, max int) []types.Message {
	if max <= 0 || len(msgs) <= max {
		return msgs
	}
	return msgs[len(msgs)-max:]
}

// validateThread rejects names that cannot serve as a durable record key.
func validateThread(thread string) error {
	if thread == "" {
		return fmt.Errorf("thread name must not be empty")
	}
	for _, r := range thread {
		switch r {
		case '/', '\\', 0:
			return fmt.Errorf("thread name %q contains invalid character %q", thread, r)
		}
	}
	return nil
}
