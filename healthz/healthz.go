// Package healthz serves liveness and readiness probes.
package healthz

import (
	"net/http"
	"sync"
)

type Handler struct {
	mu sync.Mutex
	ok bool
}

// New returns a handler that reports healthy until Set is called.
func New() *Handler {
	return &Handler{ok: true}
}

// Set flips the reported state.  Used for readiness gates.
func (h *Handler) Set(ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ok = ok
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	ok := h.ok
	h.mu.Unlock()

	if !ok {
		http.Error(w, "503 Unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("200 OK"))
}
