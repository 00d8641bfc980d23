package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mazdak/triaged/internal/domain/model"
)

// EventsHandler accepts perceived events from ingestion adapters.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates an events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventRequest mirrors the ingestion handoff shape for POST /events.
type eventRequest struct {
	EventID    string         `json:"event_id"`
	Source     string         `json:"source"`
	Content    string         `json:"content"`
	Entities   []model.Entity `json:"entities"`
	Ephemeral  bool           `json:"ephemeral"`
	HighStakes bool           `json:"high_stakes"`
}

func (e eventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.EventID) == "":
		return errors.New("missing event_id")
	case strings.TrimSpace(e.Source) == "":
		return errors.New("missing source")
	case strings.TrimSpace(e.Content) == "":
		return errors.New("missing content")
	}
	return nil
}

type ackResponse struct {
	Status    string `json:"status"`
	ItemID    string `json:"item_id,omitempty"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostEvent responds to POST /events.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_event", err)
		return
	}

	event := model.NewPerceivedEvent(req.EventID, model.Source(req.Source), req.Content, req.Entities).
		WithFlags(req.Ephemeral, req.HighStakes)
	itemID, dup, err := h.deps.Ingest(r.Context(), event)
	if err != nil {
		writeError(w, statusFor(err), "ingest_failed", err)
		return
	}
	if dup {
		writeJSON(w, http.StatusOK, ackResponse{Status: "accepted", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", ItemID: itemID})
}
