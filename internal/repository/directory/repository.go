package directory

import "context"

// State is the cached registration verdict for a phone number.
type State string

const (
	StateUnknown       State = "UNKNOWN"
	StateRegistered    State = "REGISTERED"
	StateNotRegistered State = "NOT_REGISTERED"
)

// Store caches which phone numbers belong to registered messaging users.
// Lookup returns StateUnknown for numbers the directory has never seen.
type Store interface {
	Lookup(ctx context.Context, number string) (State, error)
	Mark(ctx context.Context, number string, registered bool) error
}

// Refresher performs the network round-trip that resolves an unknown number.
// Failures are the caller's to absorb; the engine defaults them to
// not-registered.
type Refresher func(ctx context.Context, number string) (bool, error)
