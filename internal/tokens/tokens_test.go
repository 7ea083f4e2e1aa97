package tokens

import "testing"

func TestEstimateCounter(t *testing.T) {
	c := NewEstimateCounter()

	if got := c.Count(""); got != 0 {
		t.Fatalf("empty text = %d tokens", got)
	}
	if got := c.Count("hi"); got != 1 {
		t.Fatalf("short text = %d tokens, want 1", got)
	}
	if got := c.Count("twelve chars"); got != 3 {
		t.Fatalf("got %d tokens, want 3", got)
	}
}

func TestNewCounterUnknownEncodingFallsBack(t *testing.T) {
	c := NewCounter("no-such-encoding")
	if _, ok := c.(estimateCounter); !ok {
		t.Fatalf("expected estimate fallback, got %T", c)
	}
}
