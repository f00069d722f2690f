// Package session implements the guard that every data operation passes
// before touching the remote backend.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fintrack-app/backend/internal/remote"
)

// ErrNoSession is returned when the caller has no valid session and none
// could be obtained by refreshing.
var ErrNoSession = errors.New("not authenticated")

const (
	// Verified sessions are trusted for this long before the provider is
	// asked again.
	cacheTTL = 30 * time.Second

	// Auth calls are the only remote calls with a timeout.
	authTimeout = 10 * time.Second
)

// Guard verifies and refreshes the session before data operations. A
// successful check is cached for a short TTL so bursts of operations do not
// each round-trip to the auth provider.
type Guard struct {
	mu sync.Mutex

	auth  remote.Auth
	clock func() time.Time

	session   *remote.Session
	checkedAt time.Time
}

// NewGuard returns a guard over the auth provider. A nil clock uses time.Now.
func NewGuard(auth remote.Auth, clock func() time.Time) *Guard {
	if clock == nil {
		clock = time.Now
	}

	return &Guard{
		auth:  auth,
		clock: clock,
	}
}

// Verify ensures the caller holds a valid session. An expired session is
// refreshed exactly once; when that fails the cache is cleared and
// ErrNoSession is returned.
func (g *Guard) Verify(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock()
	if g.session != nil && now.Sub(g.checkedAt) < cacheTTL && !g.session.Expired(now) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	session, err := g.auth.Session(ctx)
	if err != nil {
		g.clear()
		return err
	}
	if session == nil {
		g.clear()
		return ErrNoSession
	}

	if session.Expired(now) {
		refreshed, err := g.auth.Refresh(ctx, session.RefreshToken)
		if err != nil {
			g.clear()
			return err
		}
		if refreshed == nil {
			log.Warn().Msg("session expired and refresh yielded no session")
			g.clear()
			return ErrNoSession
		}

		session = refreshed
	}

	g.session = session
	g.checkedAt = now
	return nil
}

// Session returns the last verified session, or nil.
func (g *Guard) Session() *remote.Session {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.session
}

// Invalidate drops the cached session so the next Verify hits the provider.
func (g *Guard) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.clear()
}

func (g *Guard) clear() {
	g.session = nil
	g.checkedAt = time.Time{}
}
