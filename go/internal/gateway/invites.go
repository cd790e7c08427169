package gateway

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type invitee struct {
	name  string
	token string
}

// InviteBook keeps the companies invited to bid and renders their join links
type InviteBook struct {
	mu       sync.Mutex
	baseURL  string
	invitees []invitee
}

// NewInviteBook creates a book seeded with names
func NewInviteBook(publicURL string, names []string) *InviteBook {
	b := &InviteBook{baseURL: strings.TrimRight(publicURL, "/")}
	b.add(names)
	return b
}

// Add appends new names, skipping blanks and names already invited. It
// returns how many were added.
func (b *InviteBook) Add(names ...string) int {
	return b.add(names)
}

func (b *InviteBook) add(names []string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	added := 0
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || b.hasLocked(name) {
			continue
		}
		b.invitees = append(b.invitees, invitee{name: name, token: uuid.New().String()})
		added++
	}
	return added
}

func (b *InviteBook) hasLocked(name string) bool {
	for _, inv := range b.invitees {
		if strings.EqualFold(inv.name, name) {
			return true
		}
	}
	return false
}

// Links renders one join link per invitee, in invitation order
func (b *InviteBook) Links() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	links := make([]string, 0, len(b.invitees))
	for _, inv := range b.invitees {
		links = append(links, fmt.Sprintf("%s/auction?id=%s&nameCompany=%s&role=user",
			b.baseURL, url.QueryEscape(inv.token), url.QueryEscape(inv.name)))
	}
	return links
}
