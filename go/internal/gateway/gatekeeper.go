package gateway

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/turnbid/go/internal/identity"
)

// Gatekeeper admits a connection only after its identity claim resolves.
// Refused requests get 401 and are never upgraded.
type Gatekeeper struct {
	provider identity.Provider
	manager  *ConnectionManager
	handler  ConnectionHandler
}

func NewGatekeeper(provider identity.Provider, manager *ConnectionManager, handler ConnectionHandler) *Gatekeeper {
	return &Gatekeeper{provider: provider, manager: manager, handler: handler}
}

// ServeHTTP handles the websocket upgrade request
func (g *Gatekeeper) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := g.provider.Resolve(r)
	if err != nil {
		msg := "unauthorized"
		if errors.Is(err, identity.ErrNoCredentials) {
			msg = "identity required"
		}
		log.Warn().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Msg("connection refused")
		http.Error(w, msg, http.StatusUnauthorized)
		return
	}
	if claims.Identity == "" {
		http.Error(w, "identity required", http.StatusUnauthorized)
		return
	}

	if _, err := g.manager.UpgradeConnection(w, r, claims, g.handler); err != nil {
		// The upgrader has already written the HTTP error.
		log.Error().
			Err(err).
			Str("identity", claims.Identity).
			Msg("failed to upgrade WebSocket connection")
	}
}
