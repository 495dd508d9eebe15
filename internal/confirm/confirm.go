// Package confirm
package confirm

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/amirphl/futures-order-bot/internal/order"
)

// Pending is a validated order waiting for the user's explicit go-ahead.
type Pending struct {
	ID        string
	Order     order.Validated
	CreatedAt time.Time
}

// Gate holds at most one pending confirmation per session. A new order for
// a session silently supersedes whatever was pending: latest intent wins.
// Entries live in memory only; a restart clears them and the user submits
// again. With a zero TTL entries never expire; otherwise expiry is checked
// lazily on access, so the gate stays a synchronous store with no timers.
type Gate struct {
	mu      sync.Mutex
	pending map[string]Pending

	ttl   time.Duration
	now   func() time.Time
	newID func() string
}

func NewGate(ttl time.Duration) *Gate {
	return &Gate{
		pending: make(map[string]Pending),
		ttl:     ttl,
		now:     time.Now,
		newID:   newToken,
	}
}

func newToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("confirm: token generation failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// Put stores a new pending entry for the session, discarding any previous
// one without error.
func (g *Gate) Put(session string, v order.Validated) Pending {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := Pending{
		ID:        g.newID(),
		Order:     v,
		CreatedAt: g.now(),
	}
	g.pending[session] = p
	return p
}

// Confirm releases the session's pending order for submission. The id must
// match the current pending entry; a stale or wrong id fails with
// ErrNoMatchingPending and leaves the entry untouched. A matching id on an
// expired entry fails with ErrConfirmationExpired.
func (g *Gate) Confirm(session, id string) (order.Validated, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.pending[session]
	if !ok || p.ID != id {
		return order.Validated{}, fmt.Errorf("%w: id %q", order.ErrNoMatchingPending, id)
	}
	if g.expired(p) {
		return order.Validated{}, fmt.Errorf("%w: id %q", order.ErrConfirmationExpired, id)
	}
	delete(g.pending, session)
	return p.Order, nil
}

// Cancel discards the session's pending order. An empty id cancels
// whatever is pending; a non-empty id must match.
func (g *Gate) Cancel(session, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.pending[session]
	if !ok || (id != "" && p.ID != id) {
		return fmt.Errorf("%w: nothing to cancel", order.ErrNoMatchingPending)
	}
	delete(g.pending, session)
	return nil
}

// CurrentID returns the stored entry's id even when it has expired, so a
// bare confirm resolves to the entry and Confirm reports the expiry.
func (g *Gate) CurrentID(session string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.pending[session]
	if !ok {
		return "", false
	}
	return p.ID, true
}

// Get returns the session's live pending entry, if any. Expired entries
// report as absent but are kept so a late confirm gets
// ErrConfirmationExpired rather than ErrNoMatchingPending.
func (g *Gate) Get(session string) (Pending, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.pending[session]
	if !ok || g.expired(p) {
		return Pending{}, false
	}
	return p, true
}

func (g *Gate) expired(p Pending) bool {
	return g.ttl > 0 && g.now().Sub(p.CreatedAt) > g.ttl
}
