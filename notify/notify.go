package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CreatedEvent announces that an entity was created. Payloads carry the
// minimum a downstream consumer needs to react; anything else it can fetch.
type CreatedEvent struct {
	EntityID   uuid.UUID `json:"entity_id"`
	Email      string    `json:"email,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers creation events. Publishing is best effort by
// convention: callers log a failed publish and move on, so implementations
// should bound their own retries rather than block indefinitely.
type Publisher interface {
	PublishCreated(ctx context.Context, event CreatedEvent) error
	Close() error
}

// Nop is a Publisher that drops every event. It wires services that have no
// broker, tests included.
type Nop struct{}

func (Nop) PublishCreated(context.Context, CreatedEvent) error { return nil }
func (Nop) Close() error                                       { return nil }
