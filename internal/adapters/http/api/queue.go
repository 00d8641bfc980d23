package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mazdak/triaged/internal/domain/model"
)

// QueueHandler serves queue listings and review actions.
type QueueHandler struct {
	deps Dependencies
}

// NewQueueHandler creates a queue handler.
func NewQueueHandler(deps Dependencies) *QueueHandler {
	return &QueueHandler{deps: deps}
}

// HandleList responds to GET /queue?status=AWAITING_REVIEW.
func (h *QueueHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	status := model.Status(strings.ToUpper(r.URL.Query().Get("status")))
	items, err := h.deps.Items(r.Context(), status)
	if err != nil {
		writeError(w, statusFor(err), "list_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// reviewRequest carries the optional fields of a review action.
type reviewRequest struct {
	Override string `json:"override,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// HandleItem routes /queue/{id} and /queue/{id}/{action}.
func (h *QueueHandler) HandleItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/queue/")
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
			return
		}
		item, err := h.deps.Item(r.Context(), id)
		if err != nil {
			writeError(w, statusFor(err), "get_failed", err)
			return
		}
		writeJSON(w, http.StatusOK, item)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	var req reviewRequest
	if r.Body != nil {
		// The body is optional for review actions.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	var err error
	action := parts[1]
	switch action {
	case "approve":
		err = h.deps.Approve(r.Context(), id, req.Override)
	case "reject":
		err = h.deps.Reject(r.Context(), id, req.Reason)
	case "skip":
		err = h.deps.Skip(r.Context(), id)
	case "reanalyze":
		err = h.deps.Reanalyze(r.Context(), id)
	default:
		writeError(w, http.StatusNotFound, "unknown_action", nil)
		return
	}
	if err != nil {
		writeError(w, statusFor(err), action+"_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "action": action})
}
