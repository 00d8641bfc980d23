package api

import "net/http"

// CacheHandler exposes the index rebuild notifier hook.
type CacheHandler struct {
	deps Dependencies
}

// NewCacheHandler creates a cache handler.
func NewCacheHandler(deps Dependencies) *CacheHandler {
	return &CacheHandler{deps: deps}
}

// HandleInvalidate responds to POST /cache/invalidate. The note index
// rebuilder calls this after every rebuild.
func (h *CacheHandler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	h.deps.InvalidateContextCache(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}
