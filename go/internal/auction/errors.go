package auction

import "errors"

var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrAuctionExists   = errors.New("auction already exists")
	ErrAuctionIDEmpty  = errors.New("auction id is required")
	ErrAuctionClosed   = errors.New("auction is closed")
	ErrRosterFull      = errors.New("maximum number of participants reached")
	ErrEmptyRoster     = errors.New("no participants to start the auction with")
	ErrNotOrganizer    = errors.New("only the organizer can do this")
	ErrNotBidder       = errors.New("only bidders can join an auction")
	ErrNotParticipant  = errors.New("not a participant of this auction")
	ErrNotYourTurn     = errors.New("it is not your turn")
	ErrInvalidBid      = errors.New("bid must be a non-negative whole number")
	ErrUnknownSender   = errors.New("unknown connection")

	// ErrNoActiveParticipant signals a broken single-active invariant; the
	// transition that hit it is aborted.
	ErrNoActiveParticipant = errors.New("auction has no active participant")
)
