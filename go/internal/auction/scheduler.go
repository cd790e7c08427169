package auction

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/turnbid/go/internal/auction/events"
)

// Start opens an auction seating the current lobby (up to capacity) and
// gives the first participant the turn.
func (e *Engine) Start(sender, auctionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrAuctionClosed
	}
	if auctionID == "" {
		return ErrAuctionIDEmpty
	}
	if e.organizer == "" || sender != e.organizer {
		return ErrNotOrganizer
	}
	if e.lobby.Len() == 0 {
		return ErrEmptyRoster
	}
	if _, exists := e.registry.Get(auctionID); exists {
		return fmt.Errorf("%w: %s", ErrAuctionExists, auctionID)
	}

	roster := NewRoster()
	for _, p := range e.lobby.Snapshot() {
		p.CurrentBid = 0
		if _, err := roster.Join(p, e.settings.Capacity); err != nil {
			log.Warn().
				Str("auction_id", auctionID).
				Str("connection_id", p.ConnectionID).
				Msg("lobby larger than capacity, bidder left waiting")
			break
		}
	}

	now := e.clock.Now()
	a, err := e.registry.Create(auctionID, sender, roster, now, e.settings.AuctionDuration)
	if err != nil {
		return err
	}
	a.deadline = startDeadlineTimer(e.clock, e.settings.AuctionDuration, func(dt *deadlineTimer) {
		e.onDeadline(auctionID, dt)
	})

	first := e.beginTurnLocked(a, 0)
	ev := e.bc.send(a.ID, events.EventTypeAuctionStarted, startedPayload(a), audience(a)...)
	e.record(ev)
	e.announceTurnLocked(a, first)

	log.Info().
		Str("auction_id", a.ID).
		Str("organizer", sender).
		Int("participants", roster.Len()).
		Time("ends_at", a.EndTime).
		Msg("auction started")
	return nil
}

// PlaceBid records the active participant's bid. Bids never move the turn;
// only the countdown does.
func (e *Engine) PlaceBid(sender, auctionID string, amount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.openAuctionLocked(auctionID)
	if err != nil {
		return err
	}
	p, ok := a.Roster.ByConnection(sender)
	if !ok {
		return ErrNotParticipant
	}
	if !p.Active {
		return ErrNotYourTurn
	}
	if amount < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBid, amount)
	}

	p.CurrentBid = amount
	now := e.clock.Now()

	ev, err := events.New(a.ID, events.EventTypeBidPlaced, now, events.BidPlacedPayload{
		AuctionID:    a.ID,
		ConnectionID: p.ConnectionID,
		Identity:     p.Identity,
		Amount:       amount,
		PlacedAt:     now.UTC(),
	})
	if err == nil {
		e.record(ev)
	}
	e.bc.rosterUpdate(a, nil)

	log.Info().
		Str("auction_id", a.ID).
		Str("connection_id", sender).
		Int64("amount", amount).
		Msg("bid placed")
	return nil
}

// End closes an auction on behalf of its organizer
func (e *Engine) End(sender, auctionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if auctionID == "" {
		return ErrAuctionIDEmpty
	}
	a, ok := e.registry.Get(auctionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrAuctionNotFound, auctionID)
	}
	if sender != a.OrganizerID {
		return ErrNotOrganizer
	}
	e.endLocked(a, EndReasonOrganizer)
	return nil
}

// onTick runs on every countdown tick of a turn clock
func (e *Engine) onTick(auctionID string, tc *turnClock) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.registry.Get(auctionID)
	if !ok || !a.Active || a.turn != tc {
		return
	}
	now := e.clock.Now()
	if a.deadlinePassed(now) {
		e.endLocked(a, EndReasonDeadline)
		return
	}
	p, _, ok := a.Roster.Active()
	if !ok {
		log.Error().Err(ErrNoActiveParticipant).Str("auction_id", a.ID).Msg("tick skipped")
		return
	}

	remaining := remainingTicks(p.TurnEndTime, now, e.settings.TickInterval)
	e.bc.rosterUpdate(a, &remaining)
	log.Debug().Str("auction_id", a.ID).Int("remaining", remaining).Msg("tick")

	if remaining == 0 {
		a.State = StateTurnExpiring
		e.cancelTurnLocked(a)
		if err := e.advanceLocked(a); err != nil {
			log.Error().Err(err).Str("auction_id", a.ID).Msg("failed to advance turn")
		}
	}
}

func (e *Engine) onDeadline(auctionID string, dt *deadlineTimer) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.registry.Get(auctionID)
	if !ok || !a.Active || a.deadline != dt {
		return
	}
	e.endLocked(a, EndReasonDeadline)
}

// remainingTicks is max(0, round((turnEnd-now)/interval)), so a tick
// delivered slightly late still reports its own count.
func remainingTicks(turnEnd, now time.Time, interval time.Duration) int {
	left := turnEnd.Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + interval/2) / interval)
}

// advanceLocked hands the turn to the next participant in join order
func (e *Engine) advanceLocked(a *Auction) error {
	if a.Roster.Len() == 0 {
		e.endLocked(a, EndReasonRosterEmpty)
		return nil
	}
	prev, idx, ok := a.Roster.Active()
	if !ok {
		return ErrNoActiveParticipant
	}
	next := e.beginTurnLocked(a, (idx+1)%a.Roster.Len())
	e.turnChangedLocked(a, prev.ConnectionID, next, "Time is up, the turn passes on")
	return nil
}

// leaveLocked removes a departing connection from an auction's roster
func (e *Engine) leaveLocked(a *Auction, connectionID string) {
	p, idx, ok := a.Roster.Remove(connectionID)
	if !ok {
		return
	}
	log.Info().
		Str("auction_id", a.ID).
		Str("connection_id", connectionID).
		Bool("was_active", p.Active).
		Msg("participant left")

	if a.Roster.Len() == 0 {
		e.endLocked(a, EndReasonRosterEmpty)
		return
	}
	if !p.Active {
		e.bc.rosterUpdate(a, nil)
		return
	}

	// The follower of the departed participant now sits at idx.
	e.cancelTurnLocked(a)
	next := e.beginTurnLocked(a, idx%a.Roster.Len())
	e.turnChangedLocked(a, connectionID, next, "Participant left, the turn passes on")
}

// beginTurnLocked activates position i and arms a fresh countdown,
// cancelling any clock still attached to the auction first.
func (e *Engine) beginTurnLocked(a *Auction, i int) *Participant {
	p := a.Roster.Activate(i)
	p.TurnEndTime = e.clock.Now().Add(e.settings.TurnDuration)

	e.cancelTurnLocked(a)
	id := a.ID
	a.turn = startTurnClock(e.clock, e.settings.TickInterval, func(tc *turnClock) {
		e.onTick(id, tc)
	})
	e.armed[a.ID]++
	if e.armed[a.ID] > 1 {
		log.Error().Str("auction_id", a.ID).Int("armed", e.armed[a.ID]).Msg("more than one turn clock armed")
	}
	a.State = StateTurnActive
	return p
}

func (e *Engine) cancelTurnLocked(a *Auction) {
	if a.turn == nil {
		return
	}
	a.turn.stop()
	a.turn = nil
	e.armed[a.ID]--
}

// turnChangedLocked announces a turn handover to the whole audience
func (e *Engine) turnChangedLocked(a *Auction, previous string, next *Participant, message string) {
	ev := e.bc.send(a.ID, events.EventTypeTurnTimeout, events.TurnTimeoutPayload{
		AuctionID:    a.ID,
		Message:      message,
		PreviousID:   previous,
		ActiveBidder: next.View(),
	}, audience(a)...)
	e.record(ev)
	e.announceTurnLocked(a, next)
}

// announceTurnLocked tells the active participant it is their turn and
// pushes the roster with a full countdown to everyone.
func (e *Engine) announceTurnLocked(a *Auction, p *Participant) {
	e.bc.send(a.ID, events.EventTypeYourTurn, events.YourTurnPayload{
		AuctionID:   a.ID,
		Participant: p.View(),
		Message:     "Your turn to bid",
		TurnEndsAt:  p.TurnEndTime.UTC(),
	}, p.ConnectionID)

	remaining := e.settings.turnTicks()
	e.bc.rosterUpdate(a, &remaining)
}

// endLocked stops every clock of the auction, announces the final roster
// and drops the auction from the registry.
func (e *Engine) endLocked(a *Auction, reason string) {
	e.cancelTurnLocked(a)
	a.deadline.stop()
	a.deadline = nil

	a.Active = false
	a.State = StateEnded
	a.Roster.ClearActive()

	now := e.clock.Now()
	ev := e.bc.send(a.ID, events.EventTypeAuctionEnded, events.AuctionEndedPayload{
		AuctionID:    a.ID,
		OrganizerID:  a.OrganizerID,
		Reason:       reason,
		StartedAt:    a.StartedAt.UTC(),
		EndedAt:      now.UTC(),
		Participants: a.Roster.Views(),
	}, audience(a)...)
	e.record(ev)

	e.registry.Remove(a.ID)
	delete(e.armed, a.ID)

	log.Info().
		Str("auction_id", a.ID).
		Str("reason", reason).
		Int("participants", a.Roster.Len()).
		Msg("auction ended")
}

func (e *Engine) record(ev *events.Envelope) {
	if ev != nil {
		e.sink.Record(ev)
	}
}

func startedPayload(a *Auction) events.AuctionStartedPayload {
	return events.AuctionStartedPayload{
		AuctionID:    a.ID,
		StartedAt:    a.StartedAt.UTC(),
		EndsAt:       a.EndTime.UTC(),
		Participants: a.Roster.Views(),
	}
}
