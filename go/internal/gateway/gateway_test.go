package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/mcdev12/turnbid/go/internal/auction/events"
	"github.com/mcdev12/turnbid/go/internal/identity"
)

func newRequest(origin string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/ws/auction", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

type testServer struct {
	srv     *httptest.Server
	service *Service
	issuer  *identity.Issuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	config := DefaultConfig()
	config.PublicURL = "https://auction.example.com"
	config.Invitees = []string{"Acme"}

	provider := identity.Chain{identity.NewTokenVerifier("secret", nil), identity.QueryProvider{}}
	service, err := NewService(config, provider)
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go service.connectionManager.Start(ctx)

	mux := http.NewServeMux()
	service.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		srv.Close()
		cancel()
		service.Stop()
	})
	return &testServer{srv: srv, service: service, issuer: identity.NewIssuer("secret", nil, time.Hour)}
}

func (s *testServer) wsURL(query string) string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws/auction?" + query
}

func (s *testServer) dial(t *testing.T, query string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(s.wsURL(query), header)
	assert.NoError(t, err)
	check.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads envelopes until one of the wanted type arrives
func readUntil(t *testing.T, conn *websocket.Conn, eventType events.EventType) *events.Envelope {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		var ev events.Envelope
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("waiting for %s: %v", eventType, err)
		}
		if ev.Type == eventType {
			return &ev
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]interface{}) {
	t.Helper()
	assert.NoError(t, conn.WriteJSON(msg))
}

func TestGatekeeper_RefusesWithoutIdentity(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		query  string
		header http.Header
	}{
		{"nothing", "", nil},
		{"name without role", "nameCompany=Acme", nil},
		{"bad token", "", http.Header{"Authorization": []string{"Bearer nope"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(s.wsURL(tt.query), tt.header)
			check.Error(t, err)
			assert.NotNil(t, resp)
			check.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
	check.Equal(t, 0, s.service.GetStats().TotalConnections)
}

func TestGateway_AuctionRoundTrip(t *testing.T) {
	s := newTestServer(t)

	token, err := s.issuer.Issue("u-1", "board@example.com", identity.RoleOrganizer)
	assert.NoError(t, err)
	org := s.dial(t, "", http.Header{"Authorization": []string{"Bearer " + token}})

	var invites events.InviteLinksPayload
	assert.NoError(t, readUntil(t, org, events.EventTypeInviteLinks).Decode(&invites))
	assert.Equal(t, 1, len(invites.Links))
	check.True(t, strings.Contains(invites.Links[0], "nameCompany=Acme"))

	// Admission order is turn order; wait for each lobby update before the next dial.
	p1 := s.dial(t, "role=user&nameCompany="+url.QueryEscape("OOO Energotorg"), nil)
	readUntil(t, p1, events.EventTypeParticipantsUpdated)
	p2 := s.dial(t, "role=user&nameCompany=Acme", nil)
	readUntil(t, p2, events.EventTypeParticipantsUpdated)

	send(t, org, map[string]interface{}{"type": "StartAuction", "auction_id": "A1"})

	var started events.AuctionStartedPayload
	assert.NoError(t, readUntil(t, p2, events.EventTypeAuctionStarted).Decode(&started))
	assert.Equal(t, 2, len(started.Participants))
	check.Equal(t, "OOO Energotorg", started.Participants[0].Identity)

	var turn events.YourTurnPayload
	assert.NoError(t, readUntil(t, p1, events.EventTypeYourTurn).Decode(&turn))
	check.Equal(t, "OOO Energotorg", turn.Participant.Identity)

	t.Run("out of turn bid is an error for the sender", func(t *testing.T) {
		send(t, p2, map[string]interface{}{"type": "PlaceBid", "auction_id": "A1", "amount": 100})
		var payload events.ErrorPayload
		assert.NoError(t, readUntil(t, p2, events.EventTypeError).Decode(&payload))
		check.True(t, strings.Contains(payload.Message, "not your turn"))
	})

	t.Run("bidders cannot start auctions", func(t *testing.T) {
		send(t, p2, map[string]interface{}{"type": "StartAuction", "auction_id": "A2"})
		var payload events.ErrorPayload
		assert.NoError(t, readUntil(t, p2, events.EventTypeError).Decode(&payload))
		check.True(t, strings.Contains(payload.Message, "organizer"))
	})

	send(t, p1, map[string]interface{}{"type": "PlaceBid", "auction_id": "A1", "amount": "500"})
	assert.True(t, waitForBid(s, "A1", 500))

	send(t, org, map[string]interface{}{"type": "AddInvitees", "invitees": "Globex, Acme"})
	assert.NoError(t, readUntil(t, org, events.EventTypeInviteLinks).Decode(&invites))
	check.Equal(t, 2, len(invites.Links))

	send(t, org, map[string]interface{}{"type": "EndAuction", "auction_id": "A1"})
	for _, conn := range []*websocket.Conn{org, p1, p2} {
		var ended events.AuctionEndedPayload
		assert.NoError(t, readUntil(t, conn, events.EventTypeAuctionEnded).Decode(&ended))
		check.Equal(t, "organizer", ended.Reason)
		check.Equal(t, int64(500), ended.Participants[0].CurrentBid)
	}

	_, err = s.service.Engine().Snapshot("A1")
	check.Error(t, err)
}

func TestGateway_DisconnectLeavesAuction(t *testing.T) {
	s := newTestServer(t)

	org := s.dial(t, "role=organizer&nameCompany=Board", nil)
	readUntil(t, org, events.EventTypeInviteLinks)
	p1 := s.dial(t, "role=user&nameCompany=Alpha", nil)
	readUntil(t, p1, events.EventTypeParticipantsUpdated)
	p2 := s.dial(t, "role=user&nameCompany=Beta", nil)
	readUntil(t, p2, events.EventTypeParticipantsUpdated)

	send(t, org, map[string]interface{}{"type": "StartAuction", "auction_id": "A1"})
	readUntil(t, p1, events.EventTypeYourTurn)

	p1.Close()

	var turn events.YourTurnPayload
	assert.NoError(t, readUntil(t, p2, events.EventTypeYourTurn).Decode(&turn))
	check.Equal(t, "Beta", turn.Participant.Identity)
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t)
	org := s.dial(t, "role=organizer&nameCompany=Board", nil)
	readUntil(t, org, events.EventTypeInviteLinks)

	resp, err := http.Get(s.srv.URL + "/ws/stats")
	assert.NoError(t, err)
	defer resp.Body.Close()

	var body statsResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	check.Equal(t, 1, body.TotalConnections)
	check.Equal(t, 1, body.Organizers)
	check.Equal(t, 0, body.Bidders)
	check.True(t, body.Engine.Organizer)
}

func waitForBid(s *testServer, auctionID string, amount int64) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := s.service.Engine().Snapshot(auctionID)
		if err == nil && len(snap.Participants) > 0 && snap.Participants[0].CurrentBid == amount {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestService_StopDeliversFinalRoster(t *testing.T) {
	s := newTestServer(t)

	org := s.dial(t, "role=organizer&nameCompany=Board", nil)
	readUntil(t, org, events.EventTypeInviteLinks)
	p1 := s.dial(t, "role=user&nameCompany=Alpha", nil)
	readUntil(t, p1, events.EventTypeParticipantsUpdated)

	send(t, org, map[string]interface{}{"type": "StartAuction", "auction_id": "A1"})
	readUntil(t, p1, events.EventTypeYourTurn)
	send(t, p1, map[string]interface{}{"type": "PlaceBid", "auction_id": "A1", "amount": 250})
	assert.True(t, waitForBid(s, "A1", 250))

	assert.NoError(t, s.service.Stop())

	for _, conn := range []*websocket.Conn{org, p1} {
		var ended events.AuctionEndedPayload
		assert.NoError(t, readUntil(t, conn, events.EventTypeAuctionEnded).Decode(&ended))
		check.Equal(t, "shutdown", ended.Reason)
		check.Equal(t, int64(250), ended.Participants[0].CurrentBid)

		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		var err error
		for err == nil {
			_, _, err = conn.ReadMessage()
		}
		check.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
	}
	check.Equal(t, 0, s.service.GetStats().TotalConnections)
}
