package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/repositories"
)

var (
	// ErrSessionUnverified is returned by AwaitResolved when no verification
	// has been started and no login has happened
	ErrSessionUnverified = errors.New("session has not been verified")
	// ErrMissingCredentials rejects an empty email or password before any backend call
	ErrMissingCredentials = errors.New("email and password are required")
	// ErrEmptyToken rejects a login without a token
	ErrEmptyToken = errors.New("token cannot be empty")
)

// Manager owns the authentication token and the verified identity. The token
// and the user always change together.
type Manager struct {
	backend repositories.InventoryBackend
	store   repositories.KeyValueStore
	log     *logrus.Entry

	verifyGroup singleflight.Group

	mu      sync.RWMutex
	session entities.Session
	state   entities.SessionState
	epoch   uint64
	waiting chan struct{}
}

// NewManager creates a manager in the Unverified state
func NewManager(backend repositories.InventoryBackend, store repositories.KeyValueStore, log *logrus.Entry) *Manager {
	return &Manager{
		backend: backend,
		store:   store,
		log:     log,
		state:   entities.SessionUnverified,
	}
}

// VerifyStoredSession checks the persisted token against the backend. A
// missing token resolves immediately to an empty session. Any failure
// discards the stored token and resolves unauthenticated. Concurrent callers
// share a single backend call.
func (m *Manager) VerifyStoredSession(ctx context.Context) entities.Session {
	result, _, _ := m.verifyGroup.Do("verify", func() (interface{}, error) {
		return m.verify(ctx), nil
	})
	return result.(entities.Session)
}

func (m *Manager) verify(ctx context.Context) entities.Session {
	m.mu.Lock()
	epoch := m.epoch
	m.state = entities.SessionVerifying
	if m.waiting == nil {
		m.waiting = make(chan struct{})
	}
	m.mu.Unlock()

	raw, err := m.store.Get(ctx, repositories.TokenKey)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			m.log.WithError(err).Warn("stored token unreadable")
		}
		return m.finishVerify(ctx, epoch, entities.Session{}, false)
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		return m.finishVerify(ctx, epoch, entities.Session{}, true)
	}

	user, err := m.backend.Profile(ctx, token)
	if err != nil {
		m.log.WithError(err).Warn("stored token rejected, session downgraded")
		return m.finishVerify(ctx, epoch, entities.Session{}, true)
	}
	if user == nil || user.ID <= 0 {
		m.log.Warn("profile response does not identify a user, session downgraded")
		return m.finishVerify(ctx, epoch, entities.Session{}, true)
	}

	return m.finishVerify(ctx, epoch, entities.NewAuthenticatedSession(token, *user, true), false)
}

// finishVerify applies a verification result unless a login, logout or
// invalidation happened while it was in flight
func (m *Manager) finishVerify(ctx context.Context, epoch uint64, next entities.Session, discardToken bool) entities.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		return m.session
	}

	if discardToken {
		if err := m.store.Delete(context.WithoutCancel(ctx), repositories.TokenKey); err != nil {
			m.log.WithError(err).Warn("failed to discard stored token")
		}
	}

	m.setLocked(next)
	if next.Authenticated() {
		m.log.WithFields(logrus.Fields{"user_id": next.User.ID, "email": next.User.Email}).Info("session verified")
	} else {
		m.log.Debug("no authenticated session")
	}
	return next
}

// setLocked replaces the session, derives the state and wakes waiters
func (m *Manager) setLocked(next entities.Session) {
	m.session = next
	if next.Authenticated() {
		m.state = entities.SessionAuthenticated
	} else {
		m.state = entities.SessionUnauthenticated
	}
	if m.waiting != nil {
		close(m.waiting)
		m.waiting = nil
	}
}

// Authenticate exchanges credentials for a token and logs in with the result
func (m *Manager) Authenticate(ctx context.Context, email, password string) (*entities.UserProfile, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	result, err := m.backend.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if result == nil || result.Token == "" {
		return nil, &repositories.BackendError{Kind: repositories.KindValidation, Message: "login response carried no token"}
	}

	if err := m.Login(ctx, result.User, result.Token); err != nil {
		return nil, err
	}
	user := result.User
	return &user, nil
}

// Login persists token and installs the session. If the token cannot be
// persisted the session is left unchanged.
func (m *Manager) Login(ctx context.Context, user entities.UserProfile, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Set(ctx, repositories.TokenKey, []byte(token)); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}

	m.epoch++
	m.setLocked(entities.NewAuthenticatedSession(token, user, true))
	m.log.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email}).Info("logged in")
	return nil
}

// Logout tells the backend on a best-effort basis, then always clears the
// in-memory session and the stored token. Only a store failure is returned.
func (m *Manager) Logout(ctx context.Context) error {
	token := m.Token()
	if token != "" {
		if err := m.backend.Logout(ctx, token); err != nil {
			m.log.WithError(err).Warn("backend logout failed, clearing local session anyway")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.epoch++
	m.setLocked(entities.Session{})
	m.log.Info("logged out")

	if err := m.store.Delete(context.WithoutCancel(ctx), repositories.TokenKey); err != nil {
		return fmt.Errorf("failed to remove stored token: %w", err)
	}
	return nil
}

// Invalidate downgrades the session locally after a protected call was
// refused. No backend call is made.
func (m *Manager) Invalidate(ctx context.Context, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.session.Authenticated() && m.state == entities.SessionUnauthenticated {
		return
	}

	m.epoch++
	m.setLocked(entities.Session{})
	m.log.WithField("reason", reason).Warn("session invalidated")

	if err := m.store.Delete(context.WithoutCancel(ctx), repositories.TokenKey); err != nil {
		m.log.WithError(err).Warn("failed to discard stored token")
	}
}

// AwaitResolved blocks while a verification is in flight and returns the
// resolved session
func (m *Manager) AwaitResolved(ctx context.Context) (entities.Session, error) {
	m.mu.RLock()
	state, waiting := m.state, m.waiting
	m.mu.RUnlock()

	if state == entities.SessionUnverified {
		return entities.Session{}, ErrSessionUnverified
	}
	if waiting != nil {
		select {
		case <-waiting:
		case <-ctx.Done():
			return entities.Session{}, ctx.Err()
		}
	}
	return m.Session(), nil
}

// Session returns a copy of the current session
func (m *Manager) Session() entities.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.session
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// State returns the current verification state
func (m *Manager) State() entities.SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Authenticated reports whether both a token and a user are held
func (m *Manager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Authenticated()
}

// Token returns the held token, or an empty string
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Token
}

// User returns a copy of the verified user, or nil
func (m *Manager) User() *entities.UserProfile {
	return m.Session().User
}
