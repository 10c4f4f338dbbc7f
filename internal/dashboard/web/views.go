package web

import (
	"net/http"

	"github.com/scholarhub/scholarhub/pkg/httpx"
)

// JSONViews renders guard outcomes as JSON, matching the backend's error
// envelope so the SPA shell handles both uniformly.
type JSONViews struct{}

// Loading tells the client the session is still settling and to retry.
func (JSONViews) Loading(w http.ResponseWriter, r *http.Request) {
	httpx.NoCache(w)
	w.Header().Set("Retry-After", "1")
	httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status": "loading",
	})
}

// Forbidden reports a role mismatch without revealing which role is required.
func (JSONViews) Forbidden(w http.ResponseWriter, r *http.Request) {
	httpx.NoCache(w)
	httpx.WriteError(w, http.StatusForbidden, "forbidden")
}
