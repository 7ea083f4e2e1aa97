package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	chatsvc "github.com/fklc-labs/chatbot-service/internal/app/services/chat"
	serviceerrors "github.com/fklc-labs/chatbot-service/internal/errors"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsMaxFrameSize = 64 << 10
)

func newUpgrader(origins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     checkWSOrigin(origins),
	}
}

// checkWSOrigin gates websocket upgrades by the configured allowed origins.
// Browsers do not honor CORS response headers for websockets, so the check
// has to happen at the handshake. Requests without an Origin header
// (non-browser clients) are allowed.
func checkWSOrigin(allowed []string) func(*http.Request) bool {
	allowAll := false
	for _, origin := range allowed {
		if origin == "*" {
			allowAll = true
			break
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// wsFrame is the server-to-client websocket message envelope.
type wsFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`

	Reply *chatsvc.Reply `json:"reply,omitempty"`
}

// chatWS serves interactive chat over a websocket. The client sends one chat
// request per text frame; the server answers with "delta" frames followed by
// a "done" frame carrying the full reply.
func (h *handler) chatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithContext(r.Context()).WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsMaxFrameSize)
	ctx := r.Context()

	for {
		var req chatsvc.Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.WithContext(ctx).WithError(err).Debug("websocket closed unexpectedly")
			}
			return
		}

		reply, err := h.chat.Stream(ctx, req, func(delta string) error {
			return h.writeFrame(conn, wsFrame{Type: "delta", Content: delta})
		})
		if err != nil {
			msg := "internal error"
			if se := serviceerrors.GetServiceError(err); se != nil {
				msg = se.Message
			}
			if werr := h.writeFrame(conn, wsFrame{Type: "error", Error: msg}); werr != nil {
				return
			}
			continue
		}

		if werr := h.writeFrame(conn, wsFrame{Type: "done", Reply: &reply}); werr != nil {
			return
		}
	}
}

func (h *handler) writeFrame(conn *websocket.Conn, frame wsFrame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(frame)
}
