// Package ports defines the interfaces (contracts) that adapters must
// implement and the canonical session model they exchange. These are the
// boundaries of the hexagonal architecture: domain logic depends only on
// these interfaces, never on concrete implementations.
package ports

import "context"

// Storage persists the session repository state to a durable slot.
//
// Crash safety: SaveState must be transactional. A crash mid-write must not
// corrupt previously committed data.
type Storage interface {
	// LoadState retrieves the persisted repository state.
	// Returns nil, nil if no state has ever been saved (fresh store).
	LoadState() (*State, error)

	// SaveState persists the full repository state, overwriting any prior
	// blob. The blob is the sole source of truth.
	SaveState(st *State) error

	// LoadLegacySession returns the raw bytes of the pre-multi-session
	// blob (one flat session), or nil, nil if the legacy slot is empty.
	LoadLegacySession() ([]byte, error)

	// ClearLegacySession erases the legacy slot. Idempotent.
	ClearLegacySession() error

	// Close releases the underlying storage handle.
	Close() error
}

// ChatMessage is one turn of a chat exchange with the model.
type ChatMessage struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Health is the result of probing the inference endpoint.
type Health struct {
	OK     bool
	Reason string   // human-readable failure cause, empty when OK
	Models []string // installed model names, populated when OK
}

// ChatClient talks to the local inference endpoint. Implementations own
// their per-call timeout; the caller's context composes with it, and
// whichever fires first aborts the request.
type ChatClient interface {
	// HealthCheck probes the endpoint's model listing. It never returns an
	// error: failures are reported in Health.Reason.
	HealthCheck(ctx context.Context) Health

	// ChatOnce issues a single non-streaming request and returns the full
	// response text.
	ChatOnce(ctx context.Context, messages []ChatMessage) (string, error)

	// ChatStream issues a streaming request. onDelta is invoked once per
	// frame, in order, with each non-empty text delta. Returns the
	// reassembled full text after the endpoint signals completion or the
	// byte stream ends.
	ChatStream(ctx context.Context, messages []ChatMessage, onDelta func(delta string)) (string, error)
}
