package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	chatsvc "github.com/fklc-labs/chatbot-service/internal/app/services/chat"
)

// stream answers a chat turn over Server-Sent Events: one data event per
// content delta, a final "done" event with the full reply, or an "error"
// event if the pipeline fails mid-stream.
func (h *handler) stream(w http.ResponseWriter, r *http.Request) {
	var req chatsvc.Request
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	wroteEvent := false
	reply, err := h.chat.Stream(r.Context(), req, func(delta string) error {
		payload, merr := json.Marshal(map[string]string{"content": delta})
		if merr != nil {
			return merr
		}
		if _, werr := fmt.Fprintf(w, "data: %s\n\n", payload); werr != nil {
			return werr
		}
		wroteEvent = true
		flusher.Flush()
		return nil
	})
	if err != nil {
		if !wroteEvent {
			writeServiceError(w, err)
			return
		}
		// Headers are gone; signal the failure in-band.
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", sseErrorPayload(err))
		flusher.Flush()
		return
	}

	payload, merr := json.Marshal(reply)
	if merr != nil {
		payload = []byte("{}")
	}
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", payload)
	flusher.Flush()
}

func sseErrorPayload(err error) []byte {
	payload, merr := json.Marshal(map[string]string{"error": err.Error()})
	if merr != nil {
		return []byte(`{"error":"internal error"}`)
	}
	return payload
}
