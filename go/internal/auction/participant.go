package auction

import (
	"time"

	"github.com/mcdev12/turnbid/go/internal/auction/events"
)

// ContractTerms are the commercial terms a participant bids under. They are
// copied at join time and never change afterwards.
type ContractTerms struct {
	Availability        string `yaml:"availability"`
	Term                int    `yaml:"term"`
	WarrantyObligations int    `yaml:"warranty_obligations"`
	PaymentTerms        string `yaml:"payment_terms"`
}

// Participant is one bidder seated in an auction
type Participant struct {
	ConnectionID string
	Identity     string
	CurrentBid   int64
	TurnEndTime  time.Time
	Active       bool
	Terms        ContractTerms
}

// View converts the participant to its wire shape
func (p Participant) View() events.ParticipantView {
	v := events.ParticipantView{
		ConnectionID:        p.ConnectionID,
		Identity:            p.Identity,
		CurrentBid:          p.CurrentBid,
		Active:              p.Active,
		Availability:        p.Terms.Availability,
		Term:                p.Terms.Term,
		WarrantyObligations: p.Terms.WarrantyObligations,
		PaymentTerms:        p.Terms.PaymentTerms,
	}
	if !p.TurnEndTime.IsZero() {
		t := p.TurnEndTime.UTC()
		v.TurnEndTime = &t
	}
	return v
}
