package auction

import (
	"fmt"
	"time"
)

// Settings holds the engine's fixed auction parameters
type Settings struct {
	// TurnDuration is how long each participant holds the turn.
	TurnDuration time.Duration
	// TickInterval is the countdown period; remaining time is reported in these units.
	TickInterval time.Duration
	// AuctionDuration is the hard deadline measured from start.
	AuctionDuration time.Duration
	// Capacity is the maximum roster size.
	Capacity int
	// AutoJoin adds newly admitted bidders to the oldest open auction.
	AutoJoin bool
	// DefaultTerms are stamped onto every participant at join time.
	DefaultTerms ContractTerms
}

// DefaultSettings returns the production defaults: 30s turns counted down
// every second, a 15 minute auction and six seats.
func DefaultSettings() Settings {
	return Settings{
		TurnDuration:    30 * time.Second,
		TickInterval:    time.Second,
		AuctionDuration: 15 * time.Minute,
		Capacity:        6,
		AutoJoin:        true,
		DefaultTerms: ContractTerms{
			Availability:        "-",
			Term:                80,
			WarrantyObligations: 24,
			PaymentTerms:        "30%",
		},
	}
}

// Validate checks that the settings can drive a countdown
func (s Settings) Validate() error {
	if s.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", s.TickInterval)
	}
	if s.TurnDuration < s.TickInterval {
		return fmt.Errorf("turn duration %s is shorter than tick interval %s", s.TurnDuration, s.TickInterval)
	}
	if s.AuctionDuration <= 0 {
		return fmt.Errorf("auction duration must be positive, got %s", s.AuctionDuration)
	}
	if s.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1, got %d", s.Capacity)
	}
	return nil
}

// turnTicks is the remaining-time value announced when a turn begins
func (s Settings) turnTicks() int {
	return int(s.TurnDuration / s.TickInterval)
}
