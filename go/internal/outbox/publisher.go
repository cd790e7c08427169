package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/turnbid/go/internal/auction/events"
)

// EventPublisher publishes one lifecycle event off-process
type EventPublisher interface {
	Publish(ctx context.Context, ev *events.Envelope) error
}

// JetStreamConfig describes the NATS connection and the event stream the
// relay publishes into.
type JetStreamConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string

	MaxReconnects int // -1 retries forever
	ReconnectWait time.Duration

	// Retention of the stream. Ended auctions are archived by the consumer,
	// so a week of history is plenty.
	MaxAge   time.Duration
	MaxMsgs  int64
	Replicas int

	// DedupWindow bounds how long a retried publish is recognised by its
	// event id.
	DedupWindow time.Duration
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:           nats.DefaultURL,
		StreamName:    "AUCTION_EVENTS",
		SubjectPrefix: "auction.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		MaxAge:        7 * 24 * time.Hour,
		MaxMsgs:       -1,
		Replicas:      1,
		DedupWindow:   2 * time.Hour,
	}
}

// StreamConfig is the JetStream stream that holds every auction event type
func (c JetStreamConfig) StreamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        c.StreamName,
		Description: "Auction lifecycle events",
		Subjects:    []string{c.SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		Storage:     jetstream.FileStorage,
		MaxAge:      c.MaxAge,
		MaxMsgs:     c.MaxMsgs,
		Replicas:    c.Replicas,
		Duplicates:  c.DedupWindow,
	}
}

// Subject returns the subject an event type is published on
func (c JetStreamConfig) Subject(eventType events.EventType) string {
	return fmt.Sprintf("%s.%s", c.SubjectPrefix, eventType)
}

// Connect dials NATS with the reconnect policy from cfg
func Connect(cfg JetStreamConfig) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("turnbid"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// JetStreamPublisher publishes auction events to a JetStream stream
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

// NewJetStreamPublisher creates the stream, or brings an existing one in
// line with cfg, before returning.
func NewJetStreamPublisher(nc *nats.Conn, cfg JetStreamConfig) (*JetStreamPublisher, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	stream, err := js.CreateOrUpdateStream(ctx, cfg.StreamConfig())
	if err != nil {
		return nil, fmt.Errorf("create or update stream %s: %w", cfg.StreamName, err)
	}
	log.Info().
		Str("stream", cfg.StreamName).
		Uint64("messages", stream.CachedInfo().State.Msgs).
		Msg("auction event stream ready")

	return &JetStreamPublisher{nc: nc, js: js, config: cfg}, nil
}

// Message builds the NATS message for an event. Headers let consumers
// filter without decoding the body.
func (c JetStreamConfig) Message(ev *events.Envelope) (*nats.Msg, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", ev.ID, err)
	}
	msg := nats.NewMsg(c.Subject(ev.Type))
	msg.Data = data
	msg.Header.Set("Event-Type", string(ev.Type))
	msg.Header.Set("Auction-ID", ev.AuctionID)
	msg.Header.Set("Event-ID", ev.ID)
	return msg, nil
}

// Publish implements EventPublisher. The event id doubles as the JetStream
// message id so retried publishes are deduplicated.
func (p *JetStreamPublisher) Publish(ctx context.Context, ev *events.Envelope) error {
	msg, err := p.config.Message(ev)
	if err != nil {
		return err
	}

	ack, err := p.js.PublishMsg(ctx, msg,
		jetstream.WithMsgID(ev.ID),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", ev.Type, msg.Subject, err)
	}
	if ack.Duplicate {
		log.Debug().Str("event_id", ev.ID).Msg("event already in stream")
		return nil
	}

	log.Debug().
		Str("subject", msg.Subject).
		Str("event_id", ev.ID).
		Uint64("sequence", ack.Sequence).
		Msg("event published")
	return nil
}

// Connected reports whether the underlying NATS connection is up
func (p *JetStreamPublisher) Connected() bool {
	return p.nc != nil && p.nc.IsConnected()
}

// Close drains pending publishes before closing the connection
func (p *JetStreamPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
