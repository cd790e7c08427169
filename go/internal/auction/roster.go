package auction

import (
	"fmt"
	"time"

	"github.com/mcdev12/turnbid/go/internal/auction/events"
)

// Roster is the ordered list of participants. Join order is turn order.
// A Roster is not safe for concurrent use; the engine lock guards it.
type Roster struct {
	participants []*Participant
}

// NewRoster builds a roster from the given participants, in order
func NewRoster(ps ...Participant) *Roster {
	r := &Roster{participants: make([]*Participant, 0, len(ps))}
	for i := range ps {
		p := ps[i]
		r.participants = append(r.participants, &p)
	}
	return r
}

// Len returns the number of seated participants
func (r *Roster) Len() int { return len(r.participants) }

// At returns the participant at position i
func (r *Roster) At(i int) *Participant { return r.participants[i] }

// Join appends p unless a participant with the same identity is already
// seated. A capacity <= 0 means unlimited.
func (r *Roster) Join(p Participant, capacity int) (bool, error) {
	if r.HasIdentity(p.Identity) {
		return false, nil
	}
	if capacity > 0 && len(r.participants) >= capacity {
		return false, fmt.Errorf("%w: capacity %d", ErrRosterFull, capacity)
	}
	p.Active = false
	p.TurnEndTime = time.Time{}
	r.participants = append(r.participants, &p)
	return true, nil
}

// Remove drops the participant on connectionID, preserving order. It
// returns the removed participant and its former index.
func (r *Roster) Remove(connectionID string) (*Participant, int, bool) {
	i := r.IndexOf(connectionID)
	if i < 0 {
		return nil, -1, false
	}
	p := r.participants[i]
	r.participants = append(r.participants[:i], r.participants[i+1:]...)
	return p, i, true
}

// IndexOf returns the position of connectionID or -1
func (r *Roster) IndexOf(connectionID string) int {
	for i, p := range r.participants {
		if p.ConnectionID == connectionID {
			return i
		}
	}
	return -1
}

// ByConnection returns the participant on connectionID
func (r *Roster) ByConnection(connectionID string) (*Participant, bool) {
	if i := r.IndexOf(connectionID); i >= 0 {
		return r.participants[i], true
	}
	return nil, false
}

func (r *Roster) HasIdentity(identity string) bool {
	for _, p := range r.participants {
		if p.Identity == identity {
			return true
		}
	}
	return false
}

// Active returns the active participant and its index
func (r *Roster) Active() (*Participant, int, bool) {
	for i, p := range r.participants {
		if p.Active {
			return p, i, true
		}
	}
	return nil, -1, false
}

// ActiveCount is used to check the single-active invariant
func (r *Roster) ActiveCount() int {
	n := 0
	for _, p := range r.participants {
		if p.Active {
			n++
		}
	}
	return n
}

// Activate clears every active flag and marks position i active
func (r *Roster) Activate(i int) *Participant {
	r.ClearActive()
	p := r.participants[i]
	p.Active = true
	return p
}

// ClearActive drops every active flag and turn end time
func (r *Roster) ClearActive() {
	for _, p := range r.participants {
		p.Active = false
		p.TurnEndTime = time.Time{}
	}
}

// ConnectionIDs lists the connections seated in the roster
func (r *Roster) ConnectionIDs() []string {
	ids := make([]string, 0, len(r.participants))
	for _, p := range r.participants {
		ids = append(ids, p.ConnectionID)
	}
	return ids
}

// Snapshot returns a deep copy of the participants
func (r *Roster) Snapshot() []Participant {
	out := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, *p)
	}
	return out
}

// Views returns the wire shape of every participant
func (r *Roster) Views() []events.ParticipantView {
	out := make([]events.ParticipantView, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, p.View())
	}
	return out
}
