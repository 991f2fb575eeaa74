package repository

import (
	"testing"
	"time"
)

func TestMetaSoftDeleteLifecycle(t *testing.T) {
	var m Meta

	if m.Deleted() {
		t.Fatal("fresh Meta should not be deleted")
	}

	first := time.Date(2024, 7, 1, 10, 30, 0, 123456789, time.UTC)
	if !m.SoftDelete(first) {
		t.Fatal("SoftDelete() on active Meta should report true")
	}
	if !m.Deleted() {
		t.Fatal("Meta should be deleted after SoftDelete")
	}
	want := first.Truncate(time.Microsecond)
	if !m.DeletedAt.Equal(want) {
		t.Errorf("DeletedAt = %v, want %v", m.DeletedAt, want)
	}
	if !m.UpdatedAt.Equal(want) {
		t.Errorf("UpdatedAt = %v, want %v", m.UpdatedAt, want)
	}

	// A second delete keeps the original timestamp.
	if m.SoftDelete(first.Add(time.Hour)) {
		t.Error("SoftDelete() on deleted Meta should report false")
	}
	if !m.DeletedAt.Equal(want) {
		t.Errorf("second SoftDelete moved DeletedAt to %v", m.DeletedAt)
	}

	later := first.Add(2 * time.Hour)
	if !m.Reinstate(later) {
		t.Fatal("Reinstate() on deleted Meta should report true")
	}
	if m.Deleted() {
		t.Fatal("Meta should be active after Reinstate")
	}
	if !m.UpdatedAt.Equal(later.Truncate(time.Microsecond)) {
		t.Errorf("UpdatedAt after restore = %v", m.UpdatedAt)
	}

	if m.Reinstate(later.Add(time.Hour)) {
		t.Error("Reinstate() on active Meta should report false")
	}
}

func TestMetaModelMeta(t *testing.T) {
	type note struct {
		Meta
		Body string
	}

	n := &note{Body: "hi"}
	meta := n.ModelMeta()
	if meta == nil {
		t.Fatal("ModelMeta() returned nil")
	}

	meta.CreatedAt = time.Now()
	if n.CreatedAt.IsZero() {
		t.Error("ModelMeta() should expose the embedded Meta, not a copy")
	}
}
