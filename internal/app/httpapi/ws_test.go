package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/fklc-labs/chatbot-service/internal/llm"
)

func TestChatWebsocket(t *testing.T) {
	completer := &stubCompleter{
		deltas: []string{"a lang", "uage"},
		reply:  llm.Completion{Content: "a language", Model: "gpt-4o-mini"},
	}
	router := newTestRouter(t, completer, nil)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	err = conn.WriteJSON(map[string]string{
		"user_id":    "u1",
		"orgn_id":    "o1",
		"session_id": "s1",
		"message":    "what is Go?",
	})
	if err != nil {
		t.Fatalf("write request: %v", err)
	}

	var deltas []string
	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		switch frame.Type {
		case "delta":
			deltas = append(deltas, frame.Content)
		case "done":
			if frame.Reply == nil || frame.Reply.Content != "a language" {
				t.Fatalf("unexpected reply frame: %+v", frame)
			}
			if len(deltas) != 2 || deltas[0] != "a lang" {
				t.Fatalf("deltas = %v", deltas)
			}
			return
		case "error":
			t.Fatalf("unexpected error frame: %s", frame.Error)
		default:
			t.Fatalf("unknown frame type %q", frame.Type)
		}
	}
}

func TestChatWebsocketRejectsDisallowedOrigin(t *testing.T) {
	router := newTestRouter(t, &stubCompleter{}, nil)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/chat/ws"
	header := http.Header{"Origin": []string{"https://evil.example.net"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		conn.Close()
		t.Fatalf("expected handshake rejection for cross-origin upgrade")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 handshake response, got %+v", resp)
	}
}

func TestChatWebsocketAllowsConfiguredOrigin(t *testing.T) {
	completer := &stubCompleter{reply: llm.Completion{Content: "ok"}}
	router := newTestRouter(t, completer, nil)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/chat/ws"
	header := http.Header{"Origin": []string{"https://app.example.com"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial with allowed origin: %v", err)
	}
	conn.Close()
}

func TestChatWebsocketValidationError(t *testing.T) {
	router := newTestRouter(t, &stubCompleter{}, nil)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"message": "hi"}); err != nil {
		t.Fatalf("write request: %v", err)
	}

	var frame wsFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if frame.Type != "error" || frame.Error == "" {
		t.Fatalf("expected error frame, got %+v", frame)
	}
}
