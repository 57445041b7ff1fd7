package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
)

// IsHTMX reports whether the request was initiated by htmx (Hx-Request: true).
func IsHTMX(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Hx-Request"), "true")
}

// WantsPartial returns true when the handler should return only the #app fragment.
// History restores need the whole document.
func WantsPartial(r *http.Request) bool {
	return IsHTMX(r) && !strings.EqualFold(r.Header.Get("Hx-History-Restore-Request"), "true")
}

// SetHXTrigger triggers a client-side event after swap. The payload is
// encoded as {"<event>": <payload>}; nil sends true.
func SetHXTrigger(w http.ResponseWriter, event string, payload any) {
	var value any = true
	if payload != nil {
		value = payload
	}
	b, err := json.Marshal(map[string]any{event: value})
	if err != nil {
		w.Header().Set("Hx-Trigger", `{"`+event+`":true}`)
		return
	}
	w.Header().Set("Hx-Trigger", string(b))
}
