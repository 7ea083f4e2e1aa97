package logging

import (
	"context"
	"testing"
)

func TestTraceIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := GetTraceID(ctx); got != "" {
		t.Fatalf("expected empty trace id, got %q", got)
	}

	id := NewTraceID()
	if id == "" {
		t.Fatalf("expected non-empty trace id")
	}
	ctx = WithTraceID(ctx, id)
	if got := GetTraceID(ctx); got != id {
		t.Fatalf("got %q, want %q", got, id)
	}

	if NewTraceID() == id {
		t.Fatalf("trace ids must be unique")
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), UserIDKey, "user123")
	ctx = context.WithValue(ctx, RoleKey, "member")

	if got := GetUserID(ctx); got != "user123" {
		t.Fatalf("user id = %q", got)
	}
	if got := GetRole(ctx); got != "member" {
		t.Fatalf("role = %q", got)
	}
}

func TestWithHelpersReturnNewLogger(t *testing.T) {
	log := New("test")
	derived := log.WithField("k", "v").WithError(nil).WithContext(context.Background())
	if derived == log {
		t.Fatalf("expected a derived logger")
	}
}
