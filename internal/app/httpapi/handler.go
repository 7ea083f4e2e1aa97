// Package httpapi exposes the chatbot REST, SSE and websocket endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/fklc-labs/chatbot-service/internal/app/metrics"
	chatsvc "github.com/fklc-labs/chatbot-service/internal/app/services/chat"
	"github.com/fklc-labs/chatbot-service/internal/app/status"
	serviceerrors "github.com/fklc-labs/chatbot-service/internal/errors"
	"github.com/fklc-labs/chatbot-service/internal/logging"
)

// Pinger reports backend connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// handler bundles the HTTP endpoints for the chat service.
type handler struct {
	chat     *chatsvc.Service
	pinger   Pinger
	upgrader websocket.Upgrader
	log      *logging.Logger
	started  time.Time
}

// NewHandler returns a router exposing the chatbot API. pinger may be nil
// when no database is configured; origins gates websocket upgrades.
func NewHandler(chat *chatsvc.Service, pinger Pinger, origins []string, log *logging.Logger) *mux.Router {
	if log == nil {
		log = logging.NewDefault("httpapi")
	}
	h := &handler{
		chat:     chat,
		pinger:   pinger,
		upgrader: newUpgrader(origins),
		log:      log,
		started:  time.Now().UTC(),
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.HandleFunc("/status", h.status).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/v1/chat", h.ask).Methods(http.MethodPost)
	r.HandleFunc("/v1/chat/stream", h.stream).Methods(http.MethodPost)
	r.HandleFunc("/v1/chat/ws", h.chatWS).Methods(http.MethodGet)
	r.HandleFunc("/v1/sessions/{user}/{orgn}/{session}/messages", h.history).Methods(http.MethodGet)
	r.HandleFunc("/v1/sessions/{user}/{orgn}/{session}", h.clear).Methods(http.MethodDelete)

	return r
}

func (h *handler) ask(w http.ResponseWriter, r *http.Request) {
	var req chatsvc.Request
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	reply, err := h.chat.Ask(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	msgs, err := h.chat.History(r.Context(), vars["user"], vars["orgn"], vars["session"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

func (h *handler) clear(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.chat.ClearHistory(r.Context(), vars["user"], vars["orgn"], vars["session"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	snapshot := status.Collect(r.Context())
	snapshot.StartedAt = h.started
	snapshot.UptimeSeconds = int64(time.Since(h.started).Seconds())
	writeJSON(w, http.StatusOK, snapshot)
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// writeServiceError maps a service error to its HTTP status; unknown errors
// become 500s without leaking internals.
func writeServiceError(w http.ResponseWriter, err error) {
	if se := serviceerrors.GetServiceError(err); se != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(se.HTTPStatus)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": se.Message,
			"code":  se.Code,
		})
		return
	}
	writeError(w, http.StatusInternalServerError, fmt.Errorf("internal error"))
}
