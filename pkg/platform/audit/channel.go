package audit

import (
	"context"
	"log/slog"
	"time"
)

// ChannelPublisher hands events to a background worker through a buffered
// channel. Emit never blocks the request path: when the buffer is full the
// event is dropped and the drop is logged.
type ChannelPublisher struct {
	inbox  chan<- Event
	logger *slog.Logger
}

func NewChannelPublisher(inbox chan<- Event, logger *slog.Logger) *ChannelPublisher {
	return &ChannelPublisher{inbox: inbox, logger: logger}
}

func (p *ChannelPublisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit inbox full, dropping event", "action", event.Action)
	}
	return nil
}
