package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/turnbid/go/internal/auction"
	"github.com/mcdev12/turnbid/go/internal/identity"
)

// Service wires the auction engine to WebSocket connections
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	dispatcher        *Dispatcher
	engine            *auction.Engine
}

// Config holds configuration for the auction gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	Auction          auction.Settings
	PublicURL        string
	Invitees         []string
}

// DefaultInvitees are the companies invited when no list is configured
var DefaultInvitees = []string{"OOO Energotorg", "IP Farma", "OOO URRG", "OOO Gazneft"}

// DefaultConfig returns default configuration for the auction gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		Auction:          auction.DefaultSettings(),
		PublicURL:        "http://localhost:3000",
		Invitees:         append([]string(nil), DefaultInvitees...),
	}
}

// NewService creates the connection manager, the engine and the dispatcher
// between them.
func NewService(config Config, provider identity.Provider, opts ...auction.Option) (*Service, error) {
	connectionManager := NewConnectionManager(config.ConnectionConfig)

	engine, err := auction.NewEngine(connectionManager, config.Auction, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create auction engine: %w", err)
	}

	invites := NewInviteBook(config.PublicURL, config.Invitees)
	dispatcher := NewDispatcher(engine, invites, connectionManager)
	gatekeeper := NewGatekeeper(provider, connectionManager, dispatcher)

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(gatekeeper, connectionManager, engine),
		dispatcher:        dispatcher,
		engine:            engine,
	}, nil
}

// Engine returns the auction engine driven by this gateway
func (s *Service) Engine() *auction.Engine { return s.engine }

// Start runs the gateway until ctx is cancelled
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting auction gateway service")

	go s.connectionManager.Start(ctx)

	<-ctx.Done()

	log.Info().Msg("auction gateway service shutting down")
	return s.Stop()
}

// Stop ends every open auction, delivers the resulting AuctionEnded events
// and closes every connection
func (s *Service) Stop() error {
	s.engine.Shutdown()
	s.connectionManager.Flush(s.connectionManager.config.WriteTimeout)
	s.connectionManager.CloseAll()
	log.Info().Msg("auction gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("auction gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
