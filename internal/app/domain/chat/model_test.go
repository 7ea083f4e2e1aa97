package chat

import "testing"

func TestNewKey(t *testing.T) {
	key, err := NewKey(" user123 ", "org456", "session789")
	if err != nil {
		t.Fatalf("new key: %v", err)
	}
	if key.UserID != "user123" {
		t.Fatalf("user id not trimmed: %q", key.UserID)
	}

	if _, err := NewKey("user123", "", "session789"); err == nil {
		t.Fatalf("expected error for missing orgn id")
	}
	if _, err := NewKey("", "", ""); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestNewMessage(t *testing.T) {
	key, _ := NewKey("u", "o", "s")

	msg, err := NewUserMessage(key, "hello")
	if err != nil {
		t.Fatalf("new user message: %v", err)
	}
	if msg.Role != RoleUser || msg.Content != "hello" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	if _, err := NewMessage(key, Role("tool"), "x"); err == nil {
		t.Fatalf("expected error for invalid role")
	}
	if _, err := NewAssistantMessage(key, "  "); err == nil {
		t.Fatalf("expected error for empty content")
	}
}
