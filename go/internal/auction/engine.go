package auction

import (
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/turnbid/go/internal/auction/events"
	"github.com/mcdev12/turnbid/go/internal/identity"
)

// member is an admitted connection
type member struct {
	connectionID string
	identity     string
	role         identity.Role
}

// Engine owns every live auction, the lobby and the clocks driving them.
// One mutex serializes all transitions, including the ones triggered by
// clock goroutines.
type Engine struct {
	mu sync.Mutex

	clock    clockwork.Clock
	settings Settings
	sink     EventSink
	bc       *broadcaster

	registry  *Registry
	members   map[string]member
	lobby     *Roster
	organizer string

	// armed counts live turn clocks per auction; never more than one.
	armed  map[string]int
	closed bool
}

// Option configures an Engine
type Option func(*Engine)

// WithClock replaces the real clock, mostly for tests
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithSink sets where lifecycle events are recorded
func WithSink(s EventSink) Option {
	return func(e *Engine) { e.sink = s }
}

// NewEngine creates an engine delivering events through transport
func NewEngine(transport Transport, settings Settings, opts ...Option) (*Engine, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid auction settings: %w", err)
	}
	e := &Engine{
		clock:    clockwork.NewRealClock(),
		settings: settings,
		sink:     noopSink{},
		registry: NewRegistry(),
		members:  make(map[string]member),
		lobby:    NewRoster(),
		armed:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.bc = &broadcaster{transport: transport, clock: e.clock}
	return e, nil
}

// Settings returns the engine's auction parameters
func (e *Engine) Settings() Settings { return e.settings }

// Admit registers an authenticated connection. An organizer replaces the
// current organizer reference; a bidder enters the lobby and, with
// auto-join on, the oldest open auction.
func (e *Engine) Admit(connectionID, ident string, role identity.Role) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m := member{connectionID: connectionID, identity: ident, role: role}
	e.members[connectionID] = m

	if role == identity.RoleOrganizer {
		if e.organizer != "" && e.organizer != connectionID {
			log.Info().
				Str("previous", e.organizer).
				Str("connection_id", connectionID).
				Msg("organizer reference replaced")
		}
		e.organizer = connectionID
		e.bc.lobbyUpdate(e.lobby, e.organizer)
		return
	}

	if _, err := e.lobby.Join(e.newParticipant(m), 0); err != nil {
		log.Error().Err(err).Str("connection_id", connectionID).Msg("failed to add bidder to lobby")
	}
	e.bc.lobbyUpdate(e.lobby, e.organizer)

	if !e.settings.AutoJoin {
		return
	}
	open := e.registry.Open()
	if len(open) == 0 {
		return
	}
	a := open[0]
	if err := e.joinLocked(a, m); err != nil {
		log.Info().Err(err).
			Str("auction_id", a.ID).
			Str("connection_id", connectionID).
			Msg("late bidder not auto-joined")
	}
}

// Disconnect removes a connection from the lobby and every roster it sits
// in. An organizer leaving ends the auctions it runs.
func (e *Engine) Disconnect(connectionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.members[connectionID]
	if !ok {
		return
	}
	delete(e.members, connectionID)

	if _, _, removed := e.lobby.Remove(connectionID); removed {
		e.bc.lobbyUpdate(e.lobby, e.organizer)
	}

	for _, a := range e.registry.Open() {
		if m.role == identity.RoleOrganizer && a.OrganizerID == connectionID {
			e.endLocked(a, EndReasonOrganizerDisconnected)
			continue
		}
		e.leaveLocked(a, connectionID)
	}

	if e.organizer == connectionID {
		e.organizer = ""
	}

	log.Debug().
		Str("connection_id", connectionID).
		Str("role", string(m.role)).
		Msg("connection left")
}

// Join seats an admitted bidder in an open auction. Joining twice is a no-op.
func (e *Engine) Join(sender, auctionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.members[sender]
	if !ok {
		return ErrUnknownSender
	}
	if m.role != identity.RoleBidder {
		return ErrNotBidder
	}
	a, err := e.openAuctionLocked(auctionID)
	if err != nil {
		return err
	}
	return e.joinLocked(a, m)
}

func (e *Engine) joinLocked(a *Auction, m member) error {
	joined, err := a.Roster.Join(e.newParticipant(m), e.settings.Capacity)
	if err != nil {
		return err
	}
	if !joined {
		return nil
	}

	e.bc.send(a.ID, events.EventTypeAuctionStarted, startedPayload(a), m.connectionID)
	e.bc.rosterUpdate(a, nil)

	log.Info().
		Str("auction_id", a.ID).
		Str("connection_id", m.connectionID).
		Int("participants", a.Roster.Len()).
		Msg("participant joined")
	return nil
}

// openAuctionLocked looks up an auction that still accepts commands,
// ending it first if its deadline has passed.
func (e *Engine) openAuctionLocked(auctionID string) (*Auction, error) {
	if auctionID == "" {
		return nil, ErrAuctionIDEmpty
	}
	a, ok := e.registry.Get(auctionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAuctionNotFound, auctionID)
	}
	if !a.Active {
		return nil, ErrAuctionClosed
	}
	if a.deadlinePassed(e.clock.Now()) {
		e.endLocked(a, EndReasonDeadline)
		return nil, ErrAuctionClosed
	}
	return a, nil
}

func (e *Engine) newParticipant(m member) Participant {
	return Participant{
		ConnectionID: m.connectionID,
		Identity:     m.identity,
		Terms:        e.settings.DefaultTerms,
	}
}

// Snapshot returns a copy of one auction's state
func (e *Engine) Snapshot(auctionID string) (AuctionSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.registry.Get(auctionID)
	if !ok {
		return AuctionSnapshot{}, fmt.Errorf("%w: %s", ErrAuctionNotFound, auctionID)
	}
	return a.snapshot(), nil
}

// List returns every live auction, oldest first
func (e *Engine) List() []AuctionSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	open := e.registry.Open()
	out := make([]AuctionSnapshot, 0, len(open))
	for _, a := range open {
		out = append(out, a.snapshot())
	}
	return out
}

// Stats is a point-in-time summary of the engine
type Stats struct {
	Connections  int  `json:"connections"`
	Lobby        int  `json:"lobby"`
	OpenAuctions int  `json:"open_auctions"`
	Organizer    bool `json:"organizer_connected"`
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Stats{
		Connections:  len(e.members),
		Lobby:        e.lobby.Len(),
		OpenAuctions: e.registry.Len(),
		Organizer:    e.organizer != "",
	}
}

// Shutdown ends every open auction and stops all clocks
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	for _, a := range e.registry.Open() {
		e.endLocked(a, EndReasonShutdown)
	}
	log.Info().Msg("auction engine stopped")
}

// armedCount reports how many turn clocks are live for an auction
func (e *Engine) armedCount(auctionID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.armed[auctionID]
}
