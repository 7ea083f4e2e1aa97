package storage

import (
	"context"
	"testing"
	"time"

	"github.com/fklc-labs/chatbot-service/internal/app/domain/chat"
)

func testKey(t *testing.T) chat.Key {
	t.Helper()
	key, err := chat.NewKey("user123", "org456", "session789")
	if err != nil {
		t.Fatalf("new key: %v", err)
	}
	return key
}

func TestMemoryAppendAndList(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	key := testKey(t)

	userMsg, _ := chat.NewUserMessage(key, "hello")
	aiMsg, _ := chat.NewAssistantMessage(key, "hi there")
	if err := store.AppendMessages(ctx, []chat.Message{userMsg, aiMsg}); err != nil {
		t.Fatalf("append: %v", err)
	}

	msgs, err := store.ListMessages(ctx, key)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != chat.RoleUser || msgs[1].Role != chat.RoleAssistant {
		t.Fatalf("unexpected order: %v %v", msgs[0].Role, msgs[1].Role)
	}
	if msgs[0].ID == 0 || msgs[0].Timestamp.IsZero() {
		t.Fatalf("id/timestamp not assigned: %+v", msgs[0])
	}

	other, _ := chat.NewKey("user123", "org456", "other-session")
	msgs, err = store.ListMessages(ctx, other)
	if err != nil {
		t.Fatalf("list other: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected empty transcript, got %d", len(msgs))
	}
}

func TestMemoryClearHistory(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	key := testKey(t)

	msg, _ := chat.NewUserMessage(key, "hello")
	if err := store.AppendMessages(ctx, []chat.Message{msg}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.ClearHistory(ctx, key); err != nil {
		t.Fatalf("clear: %v", err)
	}

	count, err := store.CountMessages(ctx, key)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 messages, got %d", count)
	}
}

func TestMemoryPurgeOlderThan(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	key := testKey(t)

	old, _ := chat.NewUserMessage(key, "old")
	old.Timestamp = time.Now().UTC().Add(-48 * time.Hour)
	recent, _ := chat.NewUserMessage(key, "recent")
	if err := store.AppendMessages(ctx, []chat.Message{old, recent}); err != nil {
		t.Fatalf("append: %v", err)
	}

	removed, err := store.PurgeOlderThan(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	msgs, _ := store.ListMessages(ctx, key)
	if len(msgs) != 1 || msgs[0].Content != "recent" {
		t.Fatalf("unexpected remaining messages: %+v", msgs)
	}
}
