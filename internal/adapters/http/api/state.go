package api

import (
	"net/http"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StateHandler handles state requests.
type StateHandler struct {
	statsProvider StatsProvider
}

// NewStateHandler creates a new state handler.
func NewStateHandler(statsProvider StatsProvider) *StateHandler {
	return &StateHandler{statsProvider: statsProvider}
}

// HandleState handles GET /state requests.
func (h *StateHandler) HandleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.statsProvider.GetStats())
}
