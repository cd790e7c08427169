package identity

import (
	"errors"
	"net/http"
	"strings"
)

// Role is the part a connection plays in an auction
type Role string

const (
	RoleOrganizer Role = "organizer"
	RoleBidder    Role = "bidder"
)

// ParseRole maps a claimed role onto a Role. Anything that is not the
// organizer role is a bidder ("user" and "participant" included).
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleOrganizer)) {
		return RoleOrganizer
	}
	return RoleBidder
}

var (
	// ErrNoCredentials means the request carried nothing this provider understands.
	ErrNoCredentials = errors.New("identity: no credentials presented")
	// ErrUnauthorized means credentials were presented but rejected.
	ErrUnauthorized = errors.New("identity: unauthorized")
)

// Claims is the resolved identity of a connecting party
type Claims struct {
	UserID string
	Email  string
	Role   Role
	// Identity is the stable business identity used to dedupe roster entries
	// (email for token logins, company name for query logins).
	Identity string
}

// Provider resolves the identity claim carried by an incoming connection request.
type Provider interface {
	Resolve(r *http.Request) (Claims, error)
}

// Chain tries each provider in order. A provider answering ErrNoCredentials
// passes the request on; any other error stops the chain.
type Chain []Provider

// Resolve implements Provider
func (c Chain) Resolve(r *http.Request) (Claims, error) {
	for _, p := range c {
		claims, err := p.Resolve(r)
		if errors.Is(err, ErrNoCredentials) {
			continue
		}
		return claims, err
	}
	return Claims{}, ErrNoCredentials
}

// QueryProvider accepts plain `role` + `nameCompany` (or `groupName`) query
// parameters. Only meant for deployments without token verification.
type QueryProvider struct{}

// Resolve implements Provider
func (QueryProvider) Resolve(r *http.Request) (Claims, error) {
	q := r.URL.Query()
	role := q.Get("role")
	name := q.Get("nameCompany")
	if name == "" {
		name = q.Get("groupName")
	}
	if role == "" || strings.TrimSpace(name) == "" {
		return Claims{}, ErrNoCredentials
	}
	name = strings.TrimSpace(name)
	return Claims{
		UserID:   name,
		Role:     ParseRole(role),
		Identity: name,
	}, nil
}
