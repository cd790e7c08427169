package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/turnbid/go/internal/auction"
)

// StatsSource reports engine-level counters
type StatsSource interface {
	Stats() auction.Stats
}

// WebSocketHandler exposes the auction socket and its stats endpoint
type WebSocketHandler struct {
	gatekeeper        *Gatekeeper
	connectionManager *ConnectionManager
	stats             StatsSource
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(gk *Gatekeeper, cm *ConnectionManager, stats StatsSource) *WebSocketHandler {
	return &WebSocketHandler{
		gatekeeper:        gk,
		connectionManager: cm,
		stats:             stats,
	}
}

type statsResponse struct {
	ConnectionStats
	Engine auction.Stats `json:"engine"`
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{
		ConnectionStats: h.connectionManager.GetConnectionStats(),
		Engine:          h.stats.Stats(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("failed to write stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/ws/auction", h.gatekeeper)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
