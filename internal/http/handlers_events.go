package httpx

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SSEEventView is the event name the page listens on for re-rendered frames.
const SSEEventView = "view"

// Events streams a freshly rendered #app fragment whenever the browser's
// client changes (toast expiry, session expiry, background loads).
func (h *UIHandlers) Events(w http.ResponseWriter, r *http.Request) {
	b, ok := h.clients.Lookup(r)
	if !ok {
		// No client yet: nothing to stream. 204 tells the EventSource to stop.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	unsubscribe, changes := b.App.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.WarnContext(r.Context(), "event stream unsupported", "error", err)
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
		case _, open := <-changes:
			if !open {
				return
			}
			fragment, err := h.renderer.Fragment(h.pageData(r, b))
			if err != nil {
				return
			}
			if err := writeSSE(w, SSEEventView, fragment); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// writeSSE writes one event; every line of data gets its own data: field.
func writeSSE(w io.Writer, event, data string) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "event: %s\n", event)
	for _, line := range strings.Split(strings.TrimRight(data, "\n"), "\n") {
		sb.WriteString("data: ")
		sb.WriteString(strings.TrimRight(line, "\r"))
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	_, err := io.WriteString(w, sb.String())
	return err
}
