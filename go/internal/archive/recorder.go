package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/turnbid/go/internal/auction/events"
)

// Store persists auction results
type Store interface {
	SaveResult(ctx context.Context, res Result) error
}

// terms is the stored JSON shape of a participant's contract terms
type terms struct {
	Availability        string `json:"availability"`
	Term                int    `json:"term"`
	WarrantyObligations int    `json:"warranty_obligations"`
	PaymentTerms        string `json:"payment_terms"`
}

// BuildResult turns an AuctionEnded payload into a result. The leading
// standing is the highest positive bid; ties go to the earlier seat.
func BuildResult(p events.AuctionEndedPayload) (Result, error) {
	res := Result{
		AuctionID:    p.AuctionID,
		OrganizerID:  p.OrganizerID,
		Reason:       p.Reason,
		StartedAt:    p.StartedAt,
		EndedAt:      p.EndedAt,
		Participants: make([]Standing, 0, len(p.Participants)),
	}
	for i, v := range p.Participants {
		raw, err := json.Marshal(terms{
			Availability:        v.Availability,
			Term:                v.Term,
			WarrantyObligations: v.WarrantyObligations,
			PaymentTerms:        v.PaymentTerms,
		})
		if err != nil {
			return Result{}, fmt.Errorf("marshal terms: %w", err)
		}
		res.Participants = append(res.Participants, Standing{
			Seat:     i,
			Identity: v.Identity,
			Bid:      v.CurrentBid,
			Terms:    raw,
		})
	}
	for i := range res.Participants {
		s := &res.Participants[i]
		if s.Bid > 0 && (res.Leading == nil || s.Bid > res.Leading.Bid) {
			res.Leading = s
		}
	}
	if res.Leading != nil {
		leading := *res.Leading
		res.Leading = &leading
	}
	return res, nil
}

// Recorder archives ended auctions in-process. It implements
// auction.EventSink and ignores everything but AuctionEnded.
type Recorder struct {
	store   Store
	queue   chan *events.Envelope
	dropped atomic.Uint64
}

func NewRecorder(store Store, bufferSize int) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Recorder{store: store, queue: make(chan *events.Envelope, bufferSize)}
}

// Record queues AuctionEnded events without blocking
func (r *Recorder) Record(ev *events.Envelope) {
	if ev.Type != events.EventTypeAuctionEnded {
		return
	}
	select {
	case r.queue <- ev:
	default:
		r.dropped.Add(1)
		log.Warn().Str("auction_id", ev.AuctionID).Msg("archive queue full, dropping result")
	}
}

// Dropped reports how many results were dropped on a full queue
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Run stores queued results until ctx is cancelled, then stores whatever
// is still queued within drainTimeout.
func (r *Recorder) Run(ctx context.Context) {
	log.Info().Msg("archive recorder started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("archive recorder shutting down")
			r.drain()
			return
		case ev := <-r.queue:
			r.save(ctx, ev)
		}
	}
}

const drainTimeout = 5 * time.Second

func (r *Recorder) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case ev := <-r.queue:
			r.save(ctx, ev)
		default:
			return
		}
	}
}

func (r *Recorder) save(ctx context.Context, ev *events.Envelope) {
	if err := r.Store(ctx, ev); err != nil {
		log.Error().Err(err).Str("auction_id", ev.AuctionID).Msg("failed to archive auction")
	}
}

// Store decodes an AuctionEnded envelope and saves its result
func (r *Recorder) Store(ctx context.Context, ev *events.Envelope) error {
	if ev.Type != events.EventTypeAuctionEnded {
		return fmt.Errorf("unexpected event type %s", ev.Type)
	}
	var payload events.AuctionEndedPayload
	if err := ev.Decode(&payload); err != nil {
		return err
	}
	res, err := BuildResult(payload)
	if err != nil {
		return err
	}
	if err := r.store.SaveResult(ctx, res); err != nil {
		return err
	}
	log.Info().
		Str("auction_id", res.AuctionID).
		Str("reason", res.Reason).
		Int("participants", len(res.Participants)).
		Msg("auction archived")
	return nil
}
