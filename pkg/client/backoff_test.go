package client

import (
	"testing"
	"time"
)

func TestBackoffDoublesUpToCap(t *testing.T) {
	b := NewBackoff(500*time.Millisecond, 4*time.Second)

	want := []time.Duration{
		500 * time.Millisecond,
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		4 * time.Second,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Fatalf("attempt %d: got %v, want %v", i, got, w)
		}
	}
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoff(time.Second, time.Minute)
	b.Next()
	b.Next()
	b.Reset()
	if got := b.Next(); got != time.Second {
		t.Fatalf("after reset got %v, want 1s", got)
	}
}

func TestBackoffDefaults(t *testing.T) {
	b := NewBackoff(0, 0)
	if b.Min != 500*time.Millisecond || b.Max != 30*time.Second {
		t.Fatalf("unexpected defaults: min=%v max=%v", b.Min, b.Max)
	}
}
