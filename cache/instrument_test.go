package cache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrumentCounts(t *testing.T) {
	inner := newMemoryService(t, nil)

	reg := prometheus.NewRegistry()
	store, err := Instrument(inner, reg)
	if err != nil {
		t.Fatalf("Instrument() error = %v", err)
	}

	ctx := context.Background()
	store.Set(ctx, "user:u1", payload{ID: "u1"}, time.Minute)

	var got payload
	store.Get(ctx, "user:u1", &got)
	store.Get(ctx, "user:u2", &got)

	if v := testutil.ToFloat64(store.operations.WithLabelValues("get", "success")); v != 1 {
		t.Errorf("get success count = %v, want 1", v)
	}
	if v := testutil.ToFloat64(store.operations.WithLabelValues("get", "miss")); v != 1 {
		t.Errorf("get miss count = %v, want 1", v)
	}
	if v := testutil.ToFloat64(store.operations.WithLabelValues("set", "success")); v != 1 {
		t.Errorf("set success count = %v, want 1", v)
	}
}

func TestInstrumentDoubleRegistration(t *testing.T) {
	inner := newMemoryService(t, nil)
	reg := prometheus.NewRegistry()

	if _, err := Instrument(inner, reg); err != nil {
		t.Fatalf("Instrument() error = %v", err)
	}
	if _, err := Instrument(inner, reg); err == nil {
		t.Fatal("second Instrument() on same registry succeeded, want error")
	}
}
