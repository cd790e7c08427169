package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope is the base structure for every event pushed to a connection
// or relayed to the event stream.
type Envelope struct {
	ID        string          `json:"id"`                   // Event UUID
	AuctionID string          `json:"auction_id,omitempty"` // Empty for lobby-wide events
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType represents the type of auction event
type EventType string

const (
	EventTypeAuctionStarted      EventType = "AuctionStarted"
	EventTypeYourTurn            EventType = "YourTurn"
	EventTypeParticipantsUpdated EventType = "ParticipantsUpdated"
	EventTypeTurnTimeout         EventType = "TurnTimeout"
	EventTypeBidPlaced           EventType = "BidPlaced"
	EventTypeAuctionEnded        EventType = "AuctionEnded"
	EventTypeError               EventType = "Error"
	EventTypeInviteLinks         EventType = "InviteLinks"
)

// New builds an envelope. The payload is marshaled immediately so the
// envelope is an immutable snapshot that can be shared between recipients.
func New(auctionID string, eventType EventType, at time.Time, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &Envelope{
		ID:        uuid.New().String(),
		AuctionID: auctionID,
		Type:      eventType,
		Timestamp: at.UTC(),
		Data:      data,
	}, nil
}

// Decode unmarshals the envelope data into out
func (e *Envelope) Decode(out interface{}) error {
	if err := json.Unmarshal(e.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", e.Type, err)
	}
	return nil
}

// ParticipantView is the wire shape of one roster entry
type ParticipantView struct {
	ConnectionID        string     `json:"connection_id"`
	Identity            string     `json:"identity"`
	CurrentBid          int64      `json:"current_bid"`
	TurnEndTime         *time.Time `json:"turn_end_time,omitempty"`
	Active              bool       `json:"active"`
	Availability        string     `json:"availability"`
	Term                int        `json:"term"`
	WarrantyObligations int        `json:"warranty_obligations"`
	PaymentTerms        string     `json:"payment_terms"`
}

// AuctionStartedPayload is the payload for an AuctionStarted event
type AuctionStartedPayload struct {
	AuctionID    string            `json:"auction_id"`
	StartedAt    time.Time         `json:"started_at"`
	EndsAt       time.Time         `json:"ends_at"`
	Participants []ParticipantView `json:"participants"`
}

// YourTurnPayload is sent only to the participant whose turn just began
type YourTurnPayload struct {
	AuctionID   string          `json:"auction_id"`
	Participant ParticipantView `json:"participant"`
	Message     string          `json:"message"`
	TurnEndsAt  time.Time       `json:"turn_ends_at"`
}

// ParticipantsUpdatedPayload carries a roster snapshot. RemainingTime is
// set on countdown ticks and turn starts.
type ParticipantsUpdatedPayload struct {
	AuctionID     string            `json:"auction_id,omitempty"`
	Participants  []ParticipantView `json:"participants"`
	RemainingTime *int              `json:"remaining_time,omitempty"`
}

// TurnTimeoutPayload announces that the turn moved on
type TurnTimeoutPayload struct {
	AuctionID    string          `json:"auction_id"`
	Message      string          `json:"message"`
	PreviousID   string          `json:"previous_connection_id"`
	ActiveBidder ParticipantView `json:"current_bidder"`
}

// BidPlacedPayload is the payload for a BidPlaced event
type BidPlacedPayload struct {
	AuctionID    string    `json:"auction_id"`
	ConnectionID string    `json:"connection_id"`
	Identity     string    `json:"identity"`
	Amount       int64     `json:"amount"`
	PlacedAt     time.Time `json:"placed_at"`
}

// AuctionEndedPayload is the payload for an AuctionEnded event
type AuctionEndedPayload struct {
	AuctionID    string            `json:"auction_id"`
	OrganizerID  string            `json:"organizer_id"`
	Reason       string            `json:"reason"`
	StartedAt    time.Time         `json:"started_at"`
	EndedAt      time.Time         `json:"ended_at"`
	Participants []ParticipantView `json:"participants"`
}

// ErrorPayload is sent to the offending connection only
type ErrorPayload struct {
	Message string `json:"message"`
}

// InviteLinksPayload lists the join links the organizer hands out
type InviteLinksPayload struct {
	Links []string `json:"links"`
}
