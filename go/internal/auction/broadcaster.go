package auction

import (
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/turnbid/go/internal/auction/events"
)

// Transport delivers an event to one connection. Implementations must not
// block; the engine calls Send while holding its lock.
type Transport interface {
	Send(connectionID string, ev *events.Envelope)
}

// broadcaster fans events out over the transport
type broadcaster struct {
	transport Transport
	clock     clockwork.Clock
}

// send builds the envelope once and delivers it to every recipient,
// skipping empty ids.
func (b *broadcaster) send(auctionID string, eventType events.EventType, payload interface{}, recipients ...string) *events.Envelope {
	ev, err := events.New(auctionID, eventType, b.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("auction_id", auctionID).Msg("failed to build event")
		return nil
	}
	for _, id := range recipients {
		if id == "" {
			continue
		}
		b.transport.Send(id, ev)
	}
	return ev
}

// audience is every participant of the auction plus its organizer
func audience(a *Auction) []string {
	return append(a.Roster.ConnectionIDs(), a.OrganizerID)
}

// rosterUpdate pushes a roster snapshot to the auction's audience. A nil
// remaining omits the countdown.
func (b *broadcaster) rosterUpdate(a *Auction, remaining *int) {
	payload := events.ParticipantsUpdatedPayload{
		AuctionID:     a.ID,
		Participants:  a.Roster.Views(),
		RemainingTime: remaining,
	}
	b.send(a.ID, events.EventTypeParticipantsUpdated, payload, audience(a)...)
}

// lobbyUpdate pushes the waiting pool to its members and the organizer
func (b *broadcaster) lobbyUpdate(lobby *Roster, organizer string) {
	payload := events.ParticipantsUpdatedPayload{Participants: lobby.Views()}
	b.send("", events.EventTypeParticipantsUpdated, payload, append(lobby.ConnectionIDs(), organizer)...)
}
