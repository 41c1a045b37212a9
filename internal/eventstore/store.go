package eventstore

import (
	"context"
	"time"
)

// Store persists ledger events.
type Store interface {
	// Append stores ev. Seq and, when zero, At are filled in by the store.
	Append(ctx context.Context, ev Event) error

	// Build returns the events of one build in append order.
	Build(ctx context.Context, buildID string) ([]Event, error)

	// Between returns the events appended in [from, to], in append order.
	Between(ctx context.Context, from, to time.Time) ([]Event, error)

	Close() error
}
