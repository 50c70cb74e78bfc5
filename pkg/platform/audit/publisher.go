package audit

import (
	"context"
	"time"
)

// StorePublisher captures structured audit events synchronously. It is
// append-only and uses the storage layer for persistence so tests can swap
// sinks easily.
type StorePublisher struct {
	store Store
}

func NewPublisher(store Store) *StorePublisher {
	return &StorePublisher{store: store}
}

func (p *StorePublisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return p.store.Append(ctx, event)
}
