package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/turnbid/go/internal/admin"
	"github.com/mcdev12/turnbid/go/internal/archive"
	"github.com/mcdev12/turnbid/go/internal/auction"
	"github.com/mcdev12/turnbid/go/internal/gateway"
	"github.com/mcdev12/turnbid/go/internal/identity"
	"github.com/mcdev12/turnbid/go/internal/outbox"
)

type Services struct {
	Gateway *gateway.Service
	Admin   *admin.Service
	Health  http.Handler

	relay    *outbox.Relay
	recorder *archive.Recorder
	consumer *archive.Consumer
	nc       *nats.Conn
	db       *sql.DB

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func setupProvider(config *Config) identity.Provider {
	var chain identity.Chain
	if config.JWTSecret != "" {
		chain = append(chain, identity.NewTokenVerifier(config.JWTSecret, nil))
	}
	if config.AllowQueryIdentity {
		log.Warn().Msg("query parameter identity enabled, connections are not authenticated")
		chain = append(chain, identity.QueryProvider{})
	}
	return chain
}

// setupServices wires the optional event relay and results archive into the
// engine's sink, then builds the gateway and admin services.
//
// With NATS the archive reads AuctionEnded from the stream; without it the
// archive records in-process.
func setupServices(ctx context.Context, config *Config) (*Services, error) {
	s := &Services{Health: okHandler{}}
	var sinks auction.MultiSink
	var results admin.ResultLister

	if config.Database.Enabled {
		db, err := setupDatabase(ctx, config.Database)
		if err != nil {
			return nil, err
		}
		s.db = db
		repo := archive.NewRepository(db)
		results = repo
		s.recorder = archive.NewRecorder(repo, 0)
	}

	if config.NATSURL != "" {
		jsConfig := outbox.DefaultJetStreamConfig()
		jsConfig.URL = config.NATSURL
		nc, err := outbox.Connect(jsConfig)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.nc = nc
		publisher, err := outbox.NewJetStreamPublisher(nc, jsConfig)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create event publisher: %w", err)
		}
		s.relay = outbox.NewRelay(publisher, outbox.DefaultConfig(), nil)
		sinks = append(sinks, s.relay)
		s.Health = outbox.NewHealthChecker(s.relay, publisher, outbox.DefaultConfig().BufferSize/2)

		if s.recorder != nil {
			consumer, err := archive.NewConsumer(ctx, nc, s.recorder, archive.DefaultConsumerConfig())
			if err != nil {
				s.Close()
				return nil, fmt.Errorf("failed to create archive consumer: %w", err)
			}
			s.consumer = consumer
		}
	} else if s.recorder != nil {
		sinks = append(sinks, s.recorder)
	}

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.ConnectionConfig.CheckOrigin = gateway.AllowedOrigins(config.PermittedOrigins)
	gatewayConfig.Auction = config.Auction
	gatewayConfig.PublicURL = config.PublicURL
	gatewayConfig.Invitees = config.Invitees

	var opts []auction.Option
	if len(sinks) > 0 {
		opts = append(opts, auction.WithSink(sinks))
	}
	gw, err := gateway.NewService(gatewayConfig, setupProvider(config), opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Gateway = gw
	s.Admin = admin.NewService(gw.Engine(), results)
	return s, nil
}

// Run starts every background loop; it returns once they are launched
func (s *Services) Run(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	if s.relay != nil {
		if err := s.relay.Start(ctx); err != nil {
			return fmt.Errorf("failed to start event relay: %w", err)
		}
	}
	switch {
	case s.consumer != nil:
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("archive consumer failed")
			}
		}()
	case s.recorder != nil:
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.recorder.Run(ctx)
		}()
	}
	go func() {
		if err := s.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()
	return nil
}

// Close stops the background loops and releases the broker and database.
// The relay drains before the loops are cancelled so events recorded
// during shutdown are still published.
func (s *Services) Close() {
	if s.cancel != nil {
		if s.relay != nil {
			if err := s.relay.Stop(); err != nil {
				log.Warn().Err(err).Msg("event relay stop")
			}
		}
		s.cancel()
		s.wg.Wait()
	}
	if s.nc != nil {
		s.nc.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

type okHandler struct{}

func (okHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		log.Error().Err(err).Msg("failed to write health check response")
	}
}
