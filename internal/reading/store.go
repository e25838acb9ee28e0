package reading

import "context"

// Store defines the interface for reading storage backends.
type Store interface {
	// Latest returns the newest reading. Failures are folded into the result.
	Latest(ctx context.Context) Latest

	// Ping verifies that the store is reachable.
	Ping(ctx context.Context) error

	// Name returns the backend name for logging.
	Name() string
}
