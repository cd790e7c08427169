package outbox

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type HealthStatus struct {
	Healthy       bool       `json:"healthy"`
	NATSConnected bool       `json:"nats_connected"`
	Relay         RelayStats `json:"relay"`
	Errors        []string   `json:"errors"`
}

// ConnectionState reports whether the broker connection is up
type ConnectionState interface {
	Connected() bool
}

// HealthChecker reports on the relay and its broker connection
type HealthChecker struct {
	relay *Relay
	conn  ConnectionState
	// MaxPending above which the relay is reported unhealthy
	maxPending int
}

func NewHealthChecker(relay *Relay, conn ConnectionState, maxPending int) *HealthChecker {
	return &HealthChecker{relay: relay, conn: conn, maxPending: maxPending}
}

func (h *HealthChecker) Check() HealthStatus {
	status := HealthStatus{
		Healthy: true,
		Relay:   h.relay.Stats(),
		Errors:  []string{},
	}

	if h.conn != nil {
		status.NATSConnected = h.conn.Connected()
		if !status.NATSConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	if !status.Relay.Running {
		status.Healthy = false
		status.Errors = append(status.Errors, "relay not running")
	}

	if h.maxPending > 0 && status.Relay.Pending > h.maxPending {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("high pending event count: %d", status.Relay.Pending))
	}

	return status
}

// ServeHTTP writes the health status, 503 when unhealthy
func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check()

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}
