package notify

import (
	"context"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}

	if err := p.PublishCreated(context.Background(), CreatedEvent{}); err != nil {
		t.Errorf("PublishCreated() error = %v, want nil", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func TestCreatedEventPayload(t *testing.T) {
	event := CreatedEvent{
		EntityID:   uuid.Must(uuid.NewV7()),
		Email:      "alice@example.com",
		OccurredAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	payload, err := sonic.Marshal(event)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := sonic.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded["entity_id"] != event.EntityID.String() {
		t.Errorf("entity_id = %v, want %v", decoded["entity_id"], event.EntityID)
	}
	if decoded["email"] != event.Email {
		t.Errorf("email = %v, want %v", decoded["email"], event.Email)
	}
	if _, ok := decoded["occurred_at"]; !ok {
		t.Error("payload missing occurred_at")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Subject != "users.created" {
		t.Errorf("Subject = %q, want users.created", cfg.Subject)
	}
	if cfg.MaxReconnects != -1 {
		t.Errorf("MaxReconnects = %d, want -1 (retry forever)", cfg.MaxReconnects)
	}
	if cfg.PublishAttempts == 0 {
		t.Error("PublishAttempts = 0, want bounded retries")
	}
}
