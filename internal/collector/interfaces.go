package collector

import (
	"context"
	"time"
)

// Adapter fetches and normalizes one category of keywords from a single
// source. Implementations report failures inside the Result instead of
// returning an error.
type Adapter interface {
	Source() SourceID
	Fetch(ctx context.Context, category string, keywords []string) Result
}

// Pacer blocks between outbound calls.
type Pacer interface {
	Pace(ctx context.Context)
}

// TableStore is the persistence backend contract.
type TableStore interface {
	// Clear empties the table. Clearing a table that does not exist is a no-op.
	Clear(ctx context.Context, table Table) error
	// Append adds rows in order.
	Append(ctx context.Context, table Table, rows []Row) error
	Close() error
}

// ErrorSink records failures. It never fails.
type ErrorSink interface {
	LogError(ctx context.Context, source string, message string)
}

// Publisher pushes run notifications.
type Publisher interface {
	Publish(ctx context.Context, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
