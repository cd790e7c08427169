package auction

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/mcdev12/turnbid/go/internal/auction/events"
	"github.com/mcdev12/turnbid/go/internal/identity"
)

type delivery struct {
	to string
	ev *events.Envelope
}

// recorder is a Transport and EventSink keeping everything it is handed
type recorder struct {
	mu       sync.Mutex
	sent     []delivery
	recorded []*events.Envelope
}

func (r *recorder) Send(connectionID string, ev *events.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, delivery{to: connectionID, ev: ev})
}

func (r *recorder) Record(ev *events.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorded = append(r.recorded, ev)
}

func (r *recorder) received(to string, eventType events.EventType) []*events.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*events.Envelope
	for _, d := range r.sent {
		if d.to == to && d.ev.Type == eventType {
			out = append(out, d.ev)
		}
	}
	return out
}

func (r *recorder) last(to string, eventType events.EventType) *events.Envelope {
	got := r.received(to, eventType)
	if len(got) == 0 {
		return nil
	}
	return got[len(got)-1]
}

func (r *recorder) count(to string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.sent {
		if d.to == to {
			n++
		}
	}
	return n
}

func (r *recorder) sunk(eventType events.EventType) []*events.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*events.Envelope
	for _, ev := range r.recorded {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

type harness struct {
	engine *Engine
	rec    *recorder
	clock  *clockwork.FakeClock
}

func newHarness(t *testing.T, mutate ...func(*Settings)) *harness {
	t.Helper()
	settings := DefaultSettings()
	settings.AutoJoin = false
	for _, m := range mutate {
		m(&settings)
	}
	rec := &recorder{}
	clock := clockwork.NewFakeClock()
	e, err := NewEngine(rec, settings, WithClock(clock), WithSink(rec))
	assert.NoError(t, err)
	t.Cleanup(e.Shutdown)
	return &harness{engine: e, rec: rec, clock: clock}
}

// seat admits an organizer "org" and the given bidders, then starts id
func (h *harness) seat(t *testing.T, id string, bidders ...string) {
	t.Helper()
	h.engine.Admit("org", "Organizer", identity.RoleOrganizer)
	for _, b := range bidders {
		h.engine.Admit(b, "company-"+b, identity.RoleBidder)
	}
	assert.NoError(t, h.engine.Start("org", id))
}

func (h *harness) activeID(t *testing.T, id string) string {
	t.Helper()
	snap, err := h.engine.Snapshot(id)
	if err != nil {
		return ""
	}
	active := ""
	for _, p := range snap.Participants {
		if p.Active {
			check.Equal(t, "", active)
			active = p.ConnectionID
		}
	}
	return active
}

func (h *harness) withAuction(id string, fn func(a *Auction)) {
	h.engine.mu.Lock()
	defer h.engine.mu.Unlock()
	if a, ok := h.engine.registry.Get(id); ok {
		fn(a)
	}
}

func (h *harness) gone(id string) func() bool {
	return func() bool {
		_, err := h.engine.Snapshot(id)
		return errors.Is(err, ErrAuctionNotFound)
	}
}

func TestNewEngine_Validation(t *testing.T) {
	_, err := NewEngine(nil, DefaultSettings())
	check.Error(t, err)

	s := DefaultSettings()
	s.Capacity = 0
	_, err = NewEngine(&recorder{}, s)
	check.Error(t, err)
}

func TestEngine_StartPreconditions(t *testing.T) {
	h := newHarness(t)

	check.True(t, errors.Is(h.engine.Start("org", "A1"), ErrNotOrganizer))

	h.engine.Admit("org", "Organizer", identity.RoleOrganizer)
	check.True(t, errors.Is(h.engine.Start("org", ""), ErrAuctionIDEmpty))
	check.True(t, errors.Is(h.engine.Start("org", "A1"), ErrEmptyRoster))

	h.engine.Admit("p1", "company-p1", identity.RoleBidder)
	check.True(t, errors.Is(h.engine.Start("p1", "A1"), ErrNotOrganizer))
	assert.NoError(t, h.engine.Start("org", "A1"))
	check.True(t, errors.Is(h.engine.Start("org", "A1"), ErrAuctionExists))
}

func TestEngine_OrganizerReplacedOnAdmission(t *testing.T) {
	h := newHarness(t)
	h.engine.Admit("org-1", "Organizer", identity.RoleOrganizer)
	h.engine.Admit("org-2", "Organizer", identity.RoleOrganizer)
	h.engine.Admit("p1", "company-p1", identity.RoleBidder)

	check.True(t, errors.Is(h.engine.Start("org-1", "A1"), ErrNotOrganizer))
	assert.NoError(t, h.engine.Start("org-2", "A1"))

	snap, err := h.engine.Snapshot("A1")
	assert.NoError(t, err)
	check.Equal(t, "org-2", snap.OrganizerID)
}

func TestEngine_StartAnnouncesFirstTurn(t *testing.T) {
	h := newHarness(t)
	h.seat(t, "A1", "p1", "p2")

	check.Equal(t, "p1", h.activeID(t, "A1"))
	check.Equal(t, 1, h.engine.armedCount("A1"))

	for _, to := range []string{"org", "p1", "p2"} {
		check.Equal(t, 1, len(h.rec.received(to, events.EventTypeAuctionStarted)))
	}
	check.Equal(t, 1, len(h.rec.received("p1", events.EventTypeYourTurn)))
	check.Equal(t, 0, len(h.rec.received("p2", events.EventTypeYourTurn)))

	ev := h.rec.last("p2", events.EventTypeParticipantsUpdated)
	assert.NotNil(t, ev)
	var payload events.ParticipantsUpdatedPayload
	assert.NoError(t, ev.Decode(&payload))
	assert.NotNil(t, payload.RemainingTime)
	check.Equal(t, 30, *payload.RemainingTime)
	check.Equal(t, 2, len(payload.Participants))

	var turn events.YourTurnPayload
	assert.NoError(t, h.rec.last("p1", events.EventTypeYourTurn).Decode(&turn))
	check.True(t, h.clock.Now().Add(30*time.Second).Equal(turn.TurnEndsAt))

	check.Equal(t, 1, len(h.rec.sunk(events.EventTypeAuctionStarted)))
}

func TestEngine_CountdownTicks(t *testing.T) {
	h := newHarness(t)
	h.seat(t, "A1", "p1", "p2")

	h.clock.Advance(time.Second)
	waitFor(t, func() bool {
		ev := h.rec.last("org", events.EventTypeParticipantsUpdated)
		var payload events.ParticipantsUpdatedPayload
		return ev != nil && ev.Decode(&payload) == nil &&
			payload.RemainingTime != nil && *payload.RemainingTime == 29
	})
	check.Equal(t, "p1", h.activeID(t, "A1"))
}

// remainingSeen lists every countdown value pushed to a connection
func (r *recorder) remainingSeen(to string) []int {
	var out []int
	for _, ev := range r.received(to, events.EventTypeParticipantsUpdated) {
		var payload events.ParticipantsUpdatedPayload
		if ev.Decode(&payload) == nil && payload.RemainingTime != nil {
			out = append(out, *payload.RemainingTime)
		}
	}
	return out
}

func TestEngine_LateTicksKeepFullTurn(t *testing.T) {
	h := newHarness(t, func(s *Settings) {
		s.TurnDuration = 5 * time.Second
	})
	h.seat(t, "A1", "p1", "p2")

	// Every tick lands a few milliseconds after its nominal time.
	h.clock.Advance(5 * time.Millisecond)
	for k := 1; k <= 4; k++ {
		h.clock.Advance(time.Second)
		want := 1 + k
		waitFor(t, func() bool { return len(h.rec.remainingSeen("org")) == want })
		check.Equal(t, "p1", h.activeID(t, "A1"))
	}

	h.clock.Advance(time.Second)
	waitFor(t, func() bool { return h.activeID(t, "A1") == "p2" })
	waitFor(t, func() bool { return len(h.rec.remainingSeen("org")) == 7 })
	check.Equal(t, []int{5, 4, 3, 2, 1, 0, 5}, h.rec.remainingSeen("org"))
	check.Equal(t, 1, h.engine.armedCount("A1"))
}

func TestEngine_RotationOnTimeout(t *testing.T) {
	h := newHarness(t)
	h.seat(t, "A1", "a", "b", "c")

	for _, want := range []string{"b", "c", "a", "b"} {
		h.clock.Advance(30 * time.Second)
		waitFor(t, func() bool { return h.activeID(t, "A1") == want })
		check.Equal(t, 1, h.engine.armedCount("A1"))
	}

	check.Equal(t, 2, len(h.rec.received("b", events.EventTypeYourTurn)))

	var timeout events.TurnTimeoutPayload
	assert.NoError(t, h.rec.last("org", events.EventTypeTurnTimeout).Decode(&timeout))
	check.Equal(t, "a", timeout.PreviousID)
	check.Equal(t, "b", timeout.ActiveBidder.ConnectionID)
	check.True(t, timeout.ActiveBidder.Active)
}

func TestEngine_SingleParticipantKeepsTheTurn(t *testing.T) {
	h := newHarness(t)
	h.seat(t, "A1", "p1")

	h.clock.Advance(30 * time.Second)
	waitFor(t, func() bool { return len(h.rec.received("p1", events.EventTypeYourTurn)) == 2 })
	check.Equal(t, "p1", h.activeID(t, "A1"))
	check.Equal(t, 1, h.engine.armedCount("A1"))
}

func TestEngine_PlaceBid(t *testing.T) {
	h := newHarness(t)
	h.seat(t, "A1", "p1", "p2")
	h.engine.Admit("late", "company-late", identity.RoleBidder)

	assert.NoError(t, h.engine.PlaceBid("p1", "A1", 500))

	snap, err := h.engine.Snapshot("A1")
	assert.NoError(t, err)
	check.Equal(t, int64(500), snap.Participants[0].CurrentBid)
	check.Equal(t, "p1", h.activeID(t, "A1"))
	check.Equal(t, 1, len(h.rec.sunk(events.EventTypeBidPlaced)))

	tests := []struct {
		name   string
		sender string
		id     string
		amount int64
		err    error
	}{
		{"not your turn", "p2", "A1", 600, ErrNotYourTurn},
		{"not seated", "late", "A1", 600, ErrNotParticipant},
		{"unknown auction", "p1", "A9", 600, ErrAuctionNotFound},
		{"negative", "p1", "A1", -5, ErrInvalidBid},
		{"no id", "p1", "", 600, ErrAuctionIDEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.engine.PlaceBid(tt.sender, tt.id, tt.amount)
			check.True(t, errors.Is(err, tt.err))
		})
	}

	snap, err = h.engine.Snapshot("A1")
	assert.NoError(t, err)
	check.Equal(t, int64(500), snap.Participants[0].CurrentBid)
	check.Equal(t, int64(0), snap.Participants[1].CurrentBid)
}

func TestEngine_BidDoesNotResetCountdown(t *testing.T) {
	h := newHarness(t)
	h.seat(t, "A1", "p1", "p2")

	h.clock.Advance(10 * time.Second)
	assert.NoError(t, h.engine.PlaceBid("p1", "A1", 100))
	h.clock.Advance(20 * time.Second)

	waitFor(t, func() bool { return h.activeID(t, "A1") == "p2" })
}

func TestEngine_DepartureOfActiveParticipant(t *testing.T) {
	h := newHarness(t)
	h.seat(t, "A1", "p1", "p2", "p3")

	h.engine.Disconnect("p1")

	check.Equal(t, "p2", h.activeID(t, "A1"))
	check.Equal(t, 1, h.engine.armedCount("A1"))
	check.Equal(t, 1, len(h.rec.received("p2", events.EventTypeYourTurn)))

	var timeout events.TurnTimeoutPayload
	assert.NoError(t, h.rec.last("p3", events.EventTypeTurnTimeout).Decode(&timeout))
	check.Equal(t, "p1", timeout.PreviousID)
	check.Equal(t, "p2", timeout.ActiveBidder.ConnectionID)

	t.Run("last in order wraps to first", func(t *testing.T) {
		h.clock.Advance(30 * time.Second)
		waitFor(t, func() bool { return h.activeID(t, "A1") == "p3" })
		h.engine.Disconnect("p3")
		check.Equal(t, "p2", h.activeID(t, "A1"))
		check.Equal(t, 1, h.engine.armedCount("A1"))
	})
}

func TestEngine_DepartureOfWaitingParticipant(t *testing.T) {
	h := newHarness(t)
	h.seat(t, "A1", "p1", "p2", "p3")

	h.engine.Disconnect("p2")

	snap, err := h.engine.Snapshot("A1")
	assert.NoError(t, err)
	check.Equal(t, 2, len(snap.Participants))
	check.Equal(t, "p1", h.activeID(t, "A1"))
	check.Equal(t, 1, len(h.rec.received("p1", events.EventTypeYourTurn)))

	h.clock.Advance(30 * time.Second)
	waitFor(t, func() bool { return h.activeID(t, "A1") == "p3" })
}

func TestEngine_SoleParticipantLeaves(t *testing.T) {
	h := newHarness(t)
	h.seat(t, "A1", "p1")

	h.engine.Disconnect("p1")

	check.True(t, h.gone("A1")())
	check.Equal(t, 0, h.engine.armedCount("A1"))

	var ended events.AuctionEndedPayload
	assert.NoError(t, h.rec.last("org", events.EventTypeAuctionEnded).Decode(&ended))
	check.Equal(t, EndReasonRosterEmpty, ended.Reason)
}

func TestEngine_JoinIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.seat(t, "A1", "p1")
	h.engine.Admit("p2", "company-p2", identity.RoleBidder)

	assert.NoError(t, h.engine.Join("p2", "A1"))
	assert.NoError(t, h.engine.Join("p2", "A1"))
	assert.NoError(t, h.engine.Join("p1", "A1"))

	snap, err := h.engine.Snapshot("A1")
	assert.NoError(t, err)
	check.Equal(t, 2, len(snap.Participants))
	check.Equal(t, 1, len(h.rec.received("p2", events.EventTypeAuctionStarted)))

	check.True(t, errors.Is(h.engine.Join("org", "A1"), ErrNotBidder))
	check.True(t, errors.Is(h.engine.Join("ghost", "A1"), ErrUnknownSender))
	check.True(t, errors.Is(h.engine.Join("p2", "A9"), ErrAuctionNotFound))
}

func TestEngine_CapacityLimit(t *testing.T) {
	h := newHarness(t)
	bidders := []string{"b1", "b2", "b3", "b4", "b5", "b6", "b7"}
	h.seat(t, "A1", bidders...)

	snap, err := h.engine.Snapshot("A1")
	assert.NoError(t, err)
	check.Equal(t, 6, len(snap.Participants))

	err = h.engine.Join("b7", "A1")
	check.True(t, errors.Is(err, ErrRosterFull))

	snap, err = h.engine.Snapshot("A1")
	assert.NoError(t, err)
	check.Equal(t, 6, len(snap.Participants))
}

func TestEngine_AutoJoinLateBidder(t *testing.T) {
	h := newHarness(t, func(s *Settings) { s.AutoJoin = true })
	h.seat(t, "A1", "p1")

	h.engine.Admit("p2", "company-p2", identity.RoleBidder)

	snap, err := h.engine.Snapshot("A1")
	assert.NoError(t, err)
	assert.Equal(t, 2, len(snap.Participants))
	check.Equal(t, "p2", snap.Participants[1].ConnectionID)
	check.Equal(t, 1, len(h.rec.received("p2", events.EventTypeAuctionStarted)))

	h.clock.Advance(30 * time.Second)
	waitFor(t, func() bool { return h.activeID(t, "A1") == "p2" })
}

func TestEngine_LobbyBroadcast(t *testing.T) {
	h := newHarness(t)
	h.engine.Admit("org", "Organizer", identity.RoleOrganizer)
	h.engine.Admit("p1", "company-p1", identity.RoleBidder)
	h.engine.Admit("p2", "company-p2", identity.RoleBidder)

	var lobby events.ParticipantsUpdatedPayload
	assert.NoError(t, h.rec.last("org", events.EventTypeParticipantsUpdated).Decode(&lobby))
	check.Equal(t, 2, len(lobby.Participants))
	check.Equal(t, "", lobby.AuctionID)

	h.engine.Disconnect("p1")
	assert.NoError(t, h.rec.last("p2", events.EventTypeParticipantsUpdated).Decode(&lobby))
	check.Equal(t, 1, len(lobby.Participants))
	check.Equal(t, 1, h.engine.Stats().Lobby)
}

func TestEngine_DeadlineOnBid(t *testing.T) {
	h := newHarness(t)
	h.seat(t, "A1", "p1", "p2")
	h.withAuction("A1", func(a *Auction) { a.EndTime = h.clock.Now() })

	err := h.engine.PlaceBid("p1", "A1", 500)
	check.True(t, errors.Is(err, ErrAuctionClosed))
	check.True(t, h.gone("A1")())

	var ended events.AuctionEndedPayload
	assert.NoError(t, h.rec.last("p2", events.EventTypeAuctionEnded).Decode(&ended))
	check.Equal(t, EndReasonDeadline, ended.Reason)
	check.Equal(t, int64(0), ended.Participants[0].CurrentBid)
}

func TestEngine_DeadlineOnTick(t *testing.T) {
	h := newHarness(t)
	h.seat(t, "A1", "p1", "p2")
	h.withAuction("A1", func(a *Auction) { a.EndTime = h.clock.Now().Add(500 * time.Millisecond) })

	h.clock.Advance(time.Second)
	waitFor(t, h.gone("A1"))

	check.Equal(t, 0, len(h.rec.received("p2", events.EventTypeTurnTimeout)))
	check.Equal(t, 1, len(h.rec.received("org", events.EventTypeAuctionEnded)))
}

func TestEngine_DeadlineTimer(t *testing.T) {
	h := newHarness(t, func(s *Settings) { s.AuctionDuration = 2 * time.Minute })
	h.seat(t, "A1", "p1", "p2")

	h.clock.Advance(2 * time.Minute)
	waitFor(t, h.gone("A1"))

	var ended events.AuctionEndedPayload
	assert.NoError(t, h.rec.last("org", events.EventTypeAuctionEnded).Decode(&ended))
	check.Equal(t, EndReasonDeadline, ended.Reason)
}

func TestEngine_End(t *testing.T) {
	h := newHarness(t)
	h.seat(t, "A1", "p1", "p2")

	check.True(t, errors.Is(h.engine.End("p1", "A1"), ErrNotOrganizer))
	assert.NoError(t, h.engine.End("org", "A1"))
	check.True(t, h.gone("A1")())
	check.Equal(t, 0, h.engine.armedCount("A1"))
	check.True(t, errors.Is(h.engine.End("org", "A1"), ErrAuctionNotFound))
	check.True(t, errors.Is(h.engine.PlaceBid("p1", "A1", 1), ErrAuctionNotFound))

	// No clock survives the end.
	before := h.rec.count("p1")
	h.clock.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	check.Equal(t, before, h.rec.count("p1"))
	check.Equal(t, 1, len(h.rec.sunk(events.EventTypeAuctionEnded)))
}

func TestEngine_OrganizerDisconnectEndsAuction(t *testing.T) {
	h := newHarness(t)
	h.seat(t, "A1", "p1")

	h.engine.Disconnect("org")

	check.True(t, h.gone("A1")())
	var ended events.AuctionEndedPayload
	assert.NoError(t, h.rec.last("p1", events.EventTypeAuctionEnded).Decode(&ended))
	check.Equal(t, EndReasonOrganizerDisconnected, ended.Reason)
	check.False(t, h.engine.Stats().Organizer)
}

func TestEngine_NoDuplicateClocks(t *testing.T) {
	h := newHarness(t, func(s *Settings) { s.AutoJoin = true })
	h.seat(t, "A1", "p1", "p2", "p3", "p4")

	h.engine.Disconnect("p1")
	check.Equal(t, 1, h.engine.armedCount("A1"))

	h.clock.Advance(30 * time.Second)
	waitFor(t, func() bool { return h.activeID(t, "A1") == "p3" })
	check.Equal(t, 1, h.engine.armedCount("A1"))

	h.engine.Admit("p5", "company-p5", identity.RoleBidder)
	h.engine.Disconnect("p3")
	check.Equal(t, "p4", h.activeID(t, "A1"))
	check.Equal(t, 1, h.engine.armedCount("A1"))

	h.clock.Advance(30 * time.Second)
	waitFor(t, func() bool { return h.activeID(t, "A1") == "p5" })
	check.Equal(t, 1, h.engine.armedCount("A1"))

	// Exactly one YourTurn per turn start, no duplicates from stale clocks.
	h.clock.Advance(29 * time.Second)
	time.Sleep(20 * time.Millisecond)
	check.Equal(t, 1, len(h.rec.received("p5", events.EventTypeYourTurn)))
}

func TestEngine_EndToEnd(t *testing.T) {
	h := newHarness(t)
	started := h.clock.Now()
	h.seat(t, "A1", "p1", "p2")

	var turn events.YourTurnPayload
	assert.NoError(t, h.rec.last("p1", events.EventTypeYourTurn).Decode(&turn))
	check.Equal(t, "p1", turn.Participant.ConnectionID)
	check.True(t, turn.TurnEndsAt.Equal(started.Add(30*time.Second)))

	h.clock.Advance(30 * time.Second)
	waitFor(t, func() bool { return h.activeID(t, "A1") == "p2" })

	var timeout events.TurnTimeoutPayload
	assert.NoError(t, h.rec.last("org", events.EventTypeTurnTimeout).Decode(&timeout))
	check.Equal(t, "p1", timeout.PreviousID)
	check.Equal(t, "p2", timeout.ActiveBidder.ConnectionID)
	assert.NotNil(t, h.rec.last("p2", events.EventTypeYourTurn))

	assert.NoError(t, h.engine.PlaceBid("p2", "A1", 500))

	for _, to := range []string{"org", "p1", "p2"} {
		var update events.ParticipantsUpdatedPayload
		ev := h.rec.last(to, events.EventTypeParticipantsUpdated)
		assert.NotNil(t, ev)
		assert.NoError(t, ev.Decode(&update))
		check.Equal(t, "A1", update.AuctionID)
		assert.Equal(t, 2, len(update.Participants))
		check.Equal(t, int64(0), update.Participants[0].CurrentBid)
		check.Equal(t, "p2", update.Participants[1].ConnectionID)
		check.Equal(t, int64(500), update.Participants[1].CurrentBid)
		check.True(t, update.Participants[1].Active)
	}

	assert.NoError(t, h.engine.End("org", "A1"))
	_, err := h.engine.Snapshot("A1")
	check.True(t, errors.Is(err, ErrAuctionNotFound))
	check.Equal(t, 0, h.engine.armedCount("A1"))

	for _, to := range []string{"org", "p1", "p2"} {
		var ended events.AuctionEndedPayload
		ev := h.rec.last(to, events.EventTypeAuctionEnded)
		assert.NotNil(t, ev)
		assert.NoError(t, ev.Decode(&ended))
		check.Equal(t, EndReasonOrganizer, ended.Reason)
		check.Equal(t, int64(500), ended.Participants[1].CurrentBid)
	}
}

func TestEngine_ListAndStats(t *testing.T) {
	h := newHarness(t)
	h.seat(t, "A1", "p1")
	assert.NoError(t, h.engine.Start("org", "A2"))

	list := h.engine.List()
	assert.Equal(t, 2, len(list))
	check.Equal(t, "A1", list[0].ID)
	check.Equal(t, "A2", list[1].ID)

	stats := h.engine.Stats()
	check.Equal(t, 2, stats.Connections)
	check.Equal(t, 1, stats.Lobby)
	check.Equal(t, 2, stats.OpenAuctions)
	check.True(t, stats.Organizer)

	h.engine.Shutdown()
	check.Equal(t, 0, len(h.engine.List()))
	check.True(t, errors.Is(h.engine.Start("org", "A3"), ErrAuctionClosed))
}
