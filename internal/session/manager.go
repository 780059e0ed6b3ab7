// Package session owns the bearer credential's lifecycle: hydration
// from persisted storage, identity verification and invalidation.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/brickfolio/brickfolio/internal/api"
	"github.com/brickfolio/brickfolio/internal/models"
	"github.com/brickfolio/brickfolio/internal/store"
)

// State is the session's position in its lifecycle.
type State int

const (
	// Uninitialized means persisted storage has not been read yet.
	Uninitialized State = iota
	// Hydrating means the first storage read is in progress.
	Hydrating
	// Anonymous means no token is held.
	Anonymous
	// Authenticating means a token is held and its identity fetch is
	// in flight.
	Authenticating
	// Authenticated means the held token has been verified.
	Authenticated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Hydrating:
		return "hydrating"
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// ErrNotHydrated is returned when a token write is attempted before
// the first storage read completed. Writing earlier could clobber a
// real stored token with a blank initial value.
var ErrNotHydrated = errors.New("session: storage not hydrated yet")

// Manager is the single owned session value injected into every
// consumer. All methods are safe for concurrent use.
type Manager struct {
	api   *api.Client
	store store.Store
	log   *zap.Logger

	mu       sync.Mutex
	state    State
	token    string
	identity *models.Identity
	hydrated bool
	lastErr  error

	// fetchSeq orders identity fetches: only the last-initiated fetch
	// may apply its result.
	fetchSeq int
}

// NewManager builds a Manager over the given API client and persisted
// store. log may be nil.
func NewManager(apiClient *api.Client, st store.Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		api:   apiClient,
		store: st,
		log:   log,
		state: Uninitialized,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Token returns the held bearer token, or "".
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Identity returns the verified identity, or nil while anonymous,
// authenticating, or when verification has not succeeded.
func (m *Manager) Identity() *models.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// Hydrated reports whether the first storage read has completed.
func (m *Manager) Hydrated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hydrated
}

// LastError returns the most recent identity-fetch failure, cleared on
// the next successful transition.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Hydrate performs the one-time read of persisted storage and, when a
// token is found, verifies it. No network call is made when storage
// holds no token. Hydrate is a no-op after the first call.
func (m *Manager) Hydrate(ctx context.Context) error {
	m.mu.Lock()
	if m.state != Uninitialized {
		m.mu.Unlock()
		return nil
	}
	m.state = Hydrating
	m.mu.Unlock()

	token, err := m.store.Token(ctx)
	if err != nil {
		// Unreadable storage hydrates as anonymous: the session must
		// still come up.
		m.log.Warn("reading persisted token failed", zap.Error(err))
		token = ""
	}

	m.mu.Lock()
	m.hydrated = true
	m.token = token
	if token == "" {
		m.state = Anonymous
		m.mu.Unlock()
		return nil
	}
	m.state = Authenticating
	m.fetchSeq++
	seq := m.fetchSeq
	m.mu.Unlock()

	m.fetchIdentity(ctx, token, seq)
	return nil
}

// SetToken replaces the held token. The identity cache is cleared
// first so a stale identity is never shown under a new token. An empty
// token is equivalent to Logout. Fails with ErrNotHydrated before
// hydration.
func (m *Manager) SetToken(ctx context.Context, token string) error {
	m.mu.Lock()
	if !m.hydrated {
		m.mu.Unlock()
		return ErrNotHydrated
	}
	m.identity = nil
	m.token = token
	m.fetchSeq++
	seq := m.fetchSeq
	if token == "" {
		m.state = Anonymous
	} else {
		m.state = Authenticating
	}
	m.mu.Unlock()

	if err := m.store.SetToken(ctx, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if token == "" {
		return nil
	}

	m.fetchIdentity(ctx, token, seq)
	return nil
}

// SignIn exchanges credentials for a token and installs it.
func (m *Manager) SignIn(ctx context.Context, username, password string) error {
	token, err := m.api.Login(ctx, username, password)
	if err != nil {
		return err
	}
	return m.SetToken(ctx, token)
}

// Logout clears the token and the persisted entry.
func (m *Manager) Logout(ctx context.Context) error {
	return m.SetToken(ctx, "")
}

// fetchIdentity verifies token against /users/me. Only the
// last-initiated fetch may apply its outcome; anything older is
// discarded, which is the sole ordering guarantee.
func (m *Manager) fetchIdentity(ctx context.Context, token string, seq int) {
	var ident models.Identity
	err := m.api.DoInto(ctx, "/users/me", api.Options{Token: token}, &ident)

	unauthorized := api.IsStatus(err, http.StatusUnauthorized) || api.IsStatus(err, http.StatusForbidden)

	m.mu.Lock()
	if seq != m.fetchSeq {
		m.mu.Unlock()
		return
	}

	switch {
	case err == nil:
		m.identity = &ident
		m.state = Authenticated
		m.lastErr = nil
		m.mu.Unlock()

	case unauthorized:
		// The token is dead: forced logout, storage updated to match.
		m.identity = nil
		m.token = ""
		m.state = Anonymous
		m.lastErr = err
		m.mu.Unlock()

		if perr := m.store.SetToken(ctx, ""); perr != nil {
			m.log.Warn("clearing persisted token failed", zap.Error(perr))
		}
		m.log.Info("session invalidated", zap.Error(err))

	default:
		// Transient failure: the token stays, the identity stays
		// unverified. Consumers see Authenticated with a nil identity
		// rather than being logged out by a network blip.
		m.identity = nil
		m.state = Authenticated
		m.lastErr = err
		m.mu.Unlock()

		m.log.Warn("identity fetch failed", zap.Error(err))
	}
}
