package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextCarriesIdentifiers(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := &Logger{Logger: zap.New(core)}

	ctx := context.WithValue(context.Background(), RequestIdKey, "req-1")
	ctx = context.WithValue(ctx, RoomIdKey, "room-1")
	l.WithContext(ctx).Info("handled")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-1" {
		t.Fatalf("request_id = %v", fields["request_id"])
	}
	if fields["room_id"] != "room-1" {
		t.Fatalf("room_id = %v", fields["room_id"])
	}
}

func TestWithContextWithoutIdentifiers(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := &Logger{Logger: zap.New(core)}

	l.WithContext(context.Background()).Info("handled")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if n := len(entries[0].Context); n != 0 {
		t.Fatalf("expected no fields, got %d", n)
	}
}
