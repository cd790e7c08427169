package auction

import (
	"time"

	"github.com/mcdev12/turnbid/go/internal/auction/events"
)

// State is the lifecycle state of an auction
type State string

const (
	StateIdle         State = "IDLE"
	StateTurnActive   State = "TURN_ACTIVE"
	StateTurnExpiring State = "TURN_EXPIRING"
	StateEnded        State = "ENDED"
)

// End reasons reported in AuctionEnded
const (
	EndReasonOrganizer             = "organizer"
	EndReasonDeadline              = "deadline"
	EndReasonRosterEmpty           = "roster_empty"
	EndReasonOrganizerDisconnected = "organizer_disconnected"
	EndReasonShutdown              = "shutdown"
)

// Auction is one live session. All fields are guarded by the engine lock.
type Auction struct {
	ID          string
	OrganizerID string
	Roster      *Roster
	Active      bool
	State       State
	StartedAt   time.Time
	EndTime     time.Time

	turn     *turnClock
	deadline *deadlineTimer
}

// deadlinePassed reports whether now is at or after the hard end time
func (a *Auction) deadlinePassed(now time.Time) bool {
	return !now.Before(a.EndTime)
}

// AuctionSnapshot is a deep copy of an auction's observable state
type AuctionSnapshot struct {
	ID           string                   `json:"id"`
	OrganizerID  string                   `json:"organizer_id"`
	Active       bool                     `json:"active"`
	State        State                    `json:"state"`
	StartedAt    time.Time                `json:"started_at"`
	EndTime      time.Time                `json:"end_time"`
	Participants []events.ParticipantView `json:"participants"`
}

func (a *Auction) snapshot() AuctionSnapshot {
	return AuctionSnapshot{
		ID:           a.ID,
		OrganizerID:  a.OrganizerID,
		Active:       a.Active,
		State:        a.State,
		StartedAt:    a.StartedAt,
		EndTime:      a.EndTime,
		Participants: a.Roster.Views(),
	}
}
