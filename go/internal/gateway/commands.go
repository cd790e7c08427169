package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/turnbid/go/internal/auction"
	"github.com/mcdev12/turnbid/go/internal/auction/events"
	"github.com/mcdev12/turnbid/go/internal/identity"
)

// CommandType is the type of an inbound client message
type CommandType string

const (
	CommandStartAuction CommandType = "StartAuction"
	CommandJoinAuction  CommandType = "JoinAuction"
	CommandPlaceBid     CommandType = "PlaceBid"
	CommandEndAuction   CommandType = "EndAuction"
	CommandAddInvitees  CommandType = "AddInvitees"
)

var (
	ErrMalformedCommand = errors.New("malformed command")
	ErrUnknownCommand   = errors.New("unknown command type")
)

// Command is an inbound client message
type Command struct {
	Type      CommandType `json:"type"`
	AuctionID string      `json:"auction_id"`
	// Amount is a JSON number or a numeric string
	Amount   interface{} `json:"amount,omitempty"`
	Invitees []string    `json:"-"`
}

// ParseCommand decodes a client message. `invitees` may be a comma
// separated string or an array of names.
func ParseCommand(raw []byte) (Command, error) {
	var wire struct {
		Type      CommandType     `json:"type"`
		AuctionID string          `json:"auction_id"`
		Amount    interface{}     `json:"amount"`
		Invitees  json.RawMessage `json:"invitees"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&wire); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	if wire.Type == "" {
		return Command{}, fmt.Errorf("%w: type is required", ErrMalformedCommand)
	}

	cmd := Command{
		Type:      wire.Type,
		AuctionID: strings.TrimSpace(wire.AuctionID),
		Amount:    wire.Amount,
	}
	if len(wire.Invitees) > 0 && string(wire.Invitees) != "null" {
		var csv string
		if err := json.Unmarshal(wire.Invitees, &csv); err == nil {
			cmd.Invitees = strings.Split(csv, ",")
		} else if err := json.Unmarshal(wire.Invitees, &cmd.Invitees); err != nil {
			return Command{}, fmt.Errorf("%w: invitees must be a string or a list", ErrMalformedCommand)
		}
	}
	return cmd, nil
}

// Engine is the part of the auction engine the gateway drives
type Engine interface {
	Admit(connectionID, ident string, role identity.Role)
	Disconnect(connectionID string)
	Start(sender, auctionID string) error
	Join(sender, auctionID string) error
	PlaceBid(sender, auctionID string, amount int64) error
	End(sender, auctionID string) error
}

// Dispatcher routes connection lifecycle and client commands to the engine.
// Command failures go back to the sender as Error events.
type Dispatcher struct {
	engine    Engine
	invites   *InviteBook
	transport auction.Transport
}

func NewDispatcher(engine Engine, invites *InviteBook, transport auction.Transport) *Dispatcher {
	return &Dispatcher{engine: engine, invites: invites, transport: transport}
}

// HandleConnect implements ConnectionHandler
func (d *Dispatcher) HandleConnect(c *Connection) {
	d.engine.Admit(c.ID, c.Claims.Identity, c.Claims.Role)
	if c.Claims.Role == identity.RoleOrganizer {
		d.sendInvites(c.ID)
	}
}

// HandleDisconnect implements ConnectionHandler
func (d *Dispatcher) HandleDisconnect(c *Connection) {
	d.engine.Disconnect(c.ID)
}

// HandleMessage implements ConnectionHandler
func (d *Dispatcher) HandleMessage(c *Connection, message []byte) {
	if err := d.dispatch(c, message); err != nil {
		log.Debug().
			Err(err).
			Str("connection_id", c.ID).
			Msg("command rejected")
		d.sendError(c.ID, err)
	}
}

func (d *Dispatcher) dispatch(c *Connection, message []byte) error {
	cmd, err := ParseCommand(message)
	if err != nil {
		return err
	}

	switch cmd.Type {
	case CommandStartAuction:
		return d.engine.Start(c.ID, cmd.AuctionID)
	case CommandJoinAuction:
		return d.engine.Join(c.ID, cmd.AuctionID)
	case CommandPlaceBid:
		amount, err := auction.ParseBidAmount(cmd.Amount)
		if err != nil {
			return err
		}
		return d.engine.PlaceBid(c.ID, cmd.AuctionID, amount)
	case CommandEndAuction:
		return d.engine.End(c.ID, cmd.AuctionID)
	case CommandAddInvitees:
		if c.Claims.Role != identity.RoleOrganizer {
			return auction.ErrNotOrganizer
		}
		added := d.invites.Add(cmd.Invitees...)
		log.Info().Int("added", added).Str("connection_id", c.ID).Msg("invitees added")
		d.sendInvites(c.ID)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Type)
	}
}

func (d *Dispatcher) sendInvites(connectionID string) {
	d.send(connectionID, events.EventTypeInviteLinks, events.InviteLinksPayload{Links: d.invites.Links()})
}

func (d *Dispatcher) sendError(connectionID string, err error) {
	d.send(connectionID, events.EventTypeError, events.ErrorPayload{Message: err.Error()})
}

func (d *Dispatcher) send(connectionID string, eventType events.EventType, payload interface{}) {
	ev, err := events.New("", eventType, time.Now(), payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to build event")
		return
	}
	d.transport.Send(connectionID, ev)
}
