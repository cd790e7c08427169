package auction

import (
	"fmt"
	"time"
)

// Registry maps auction ids to live auctions and remembers creation order
// so the oldest open auction can be found for late joiners.
type Registry struct {
	auctions map[string]*Auction
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{auctions: make(map[string]*Auction)}
}

// Create registers a new active auction ending d after now
func (r *Registry) Create(id, organizerID string, roster *Roster, now time.Time, d time.Duration) (*Auction, error) {
	if _, exists := r.auctions[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrAuctionExists, id)
	}
	a := &Auction{
		ID:          id,
		OrganizerID: organizerID,
		Roster:      roster,
		Active:      true,
		State:       StateIdle,
		StartedAt:   now,
		EndTime:     now.Add(d),
	}
	r.auctions[id] = a
	r.order = append(r.order, id)
	return a, nil
}

func (r *Registry) Get(id string) (*Auction, bool) {
	a, ok := r.auctions[id]
	return a, ok
}

// Remove deletes an auction; removing an unknown id is a no-op
func (r *Registry) Remove(id string) {
	if _, ok := r.auctions[id]; !ok {
		return
	}
	delete(r.auctions, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Open returns the active auctions, oldest first
func (r *Registry) Open() []*Auction {
	out := make([]*Auction, 0, len(r.order))
	for _, id := range r.order {
		if a := r.auctions[id]; a.Active {
			out = append(out, a)
		}
	}
	return out
}

func (r *Registry) Len() int { return len(r.auctions) }
