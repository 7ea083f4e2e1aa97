package retention

import (
	"context"
	"testing"
	"time"

	"github.com/fklc-labs/chatbot-service/internal/app/domain/chat"
	"github.com/fklc-labs/chatbot-service/internal/app/storage"
)

func TestRunOnce(t *testing.T) {
	store := storage.NewMemory()
	ctx := context.Background()
	key, err := chat.NewKey("user123", "org456", "session789")
	if err != nil {
		t.Fatalf("new key: %v", err)
	}

	old, _ := chat.NewUserMessage(key, "stale")
	old.Timestamp = time.Now().UTC().AddDate(0, 0, -40)
	recent, _ := chat.NewUserMessage(key, "fresh")
	if err := store.AppendMessages(ctx, []chat.Message{old, recent}); err != nil {
		t.Fatalf("append: %v", err)
	}

	purger := NewPurger(store, 30, nil)
	removed, err := purger.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	msgs, _ := store.ListMessages(ctx, key)
	if len(msgs) != 1 || msgs[0].Content != "fresh" {
		t.Fatalf("unexpected remaining messages: %+v", msgs)
	}
}

func TestStartDisabledWhenNoRetention(t *testing.T) {
	purger := NewPurger(storage.NewMemory(), 0, nil)
	if err := purger.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := purger.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestStartStop(t *testing.T) {
	purger := NewPurger(storage.NewMemory(), 30, nil)
	if err := purger.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := purger.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	purger := NewPurger(storage.NewMemory(), 30, nil)
	purger.WithSchedule("not a schedule")
	if err := purger.Start(context.Background()); err == nil {
		t.Fatalf("expected error for invalid schedule")
	}
}
