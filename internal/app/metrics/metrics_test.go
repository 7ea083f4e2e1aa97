package metrics

import "testing"

func TestCanonicalPath(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"/", "/"},
		{"", "/"},
		{"/healthz", "/healthz"},
		{"/status", "/status"},
		{"/v1", "/v1"},
		{"/v1/chat", "/v1/chat"},
		{"/v1/chat/stream", "/v1/chat"},
		{"/v1/sessions/u1/o1/s1", "/v1/sessions/:user/:orgn/:session"},
		{"/v1/sessions/u1/o1/s1/messages", "/v1/sessions/:user/:orgn/:session/messages"},
	}
	for _, tc := range tests {
		if got := canonicalPath(tc.raw); got != tc.want {
			t.Errorf("canonicalPath(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
