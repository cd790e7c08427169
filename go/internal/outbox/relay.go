package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/turnbid/go/internal/auction/events"
)

type Config struct {
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	// PublishTimeout bounds a single publish attempt
	PublishTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		BufferSize:     1024,
		MaxRetries:     3,
		RetryDelay:     time.Second,
		PublishTimeout: 5 * time.Second,
	}
}

// Relay queues lifecycle events recorded by the engine and publishes them
// in order on its own goroutine. It implements auction.EventSink.
type Relay struct {
	publisher EventPublisher
	config    Config
	clock     clockwork.Clock
	queue     chan *events.Envelope

	mu        sync.Mutex
	running   bool
	stopChan  chan struct{}
	wg        sync.WaitGroup
	published uint64
	failed    uint64
	dropped   uint64
	lastEvent time.Time
}

func NewRelay(publisher EventPublisher, cfg Config, clock clockwork.Clock) *Relay {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	return &Relay{
		publisher: publisher,
		config:    cfg,
		clock:     clock,
		queue:     make(chan *events.Envelope, cfg.BufferSize),
		stopChan:  make(chan struct{}),
	}
}

// Record queues ev for publishing. It never blocks; a full queue drops the
// event.
func (r *Relay) Record(ev *events.Envelope) {
	select {
	case r.queue <- ev:
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
		log.Warn().
			Str("event_id", ev.ID).
			Str("event_type", string(ev.Type)).
			Msg("relay queue full, dropping event")
	}
}

func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("relay already running")
	}
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(ctx)

	log.Info().
		Int("buffer_size", r.config.BufferSize).
		Int("max_retries", r.config.MaxRetries).
		Msg("event relay started")
	return nil
}

// Stop publishes whatever is still queued and waits for the relay to exit
func (r *Relay) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return fmt.Errorf("relay not running")
	}
	r.running = false
	r.mu.Unlock()

	close(r.stopChan)
	r.wg.Wait()

	log.Info().Msg("event relay stopped")
	return nil
}

func (r *Relay) run(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			r.drain(ctx)
			return
		case ev := <-r.queue:
			r.process(ctx, ev)
		}
	}
}

func (r *Relay) drain(ctx context.Context) {
	for {
		select {
		case ev := <-r.queue:
			r.process(ctx, ev)
		default:
			return
		}
	}
}

func (r *Relay) process(ctx context.Context, ev *events.Envelope) {
	err := r.publishWithRetry(ctx, ev)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.failed++
		log.Error().
			Err(err).
			Str("event_id", ev.ID).
			Str("event_type", string(ev.Type)).
			Msg("failed to publish event")
		return
	}
	r.published++
	r.lastEvent = r.clock.Now()
}

func (r *Relay) publishWithRetry(ctx context.Context, ev *events.Envelope) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.clock.After(r.config.RetryDelay * time.Duration(attempt)):
			}
		}

		pctx, cancel := context.WithTimeout(ctx, r.config.PublishTimeout)
		err := r.publisher.Publish(pctx, ev)
		cancel()
		if err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Str("event_id", ev.ID).
				Int("attempt", attempt+1).
				Msg("failed to publish event, retrying")
			continue
		}
		return nil
	}

	return fmt.Errorf("failed after %d attempts: %w", r.config.MaxRetries+1, lastErr)
}

// RelayStats is a snapshot of the relay counters
type RelayStats struct {
	Published uint64    `json:"published"`
	Failed    uint64    `json:"failed"`
	Dropped   uint64    `json:"dropped"`
	Pending   int       `json:"pending"`
	LastEvent time.Time `json:"last_event_time"`
	Running   bool      `json:"running"`
}

func (r *Relay) Stats() RelayStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RelayStats{
		Published: r.published,
		Failed:    r.failed,
		Dropped:   r.dropped,
		Pending:   len(r.queue),
		LastEvent: r.lastEvent,
		Running:   r.running,
	}
}
