// Package store holds the client-side session and task state and keeps it in
// step with the backend.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"todoctl/internal/service"
)

// SessionState is what views render: the current identity and the last error.
// Error is empty when the last operation succeeded.
type SessionState struct {
	User  service.Session
	Error string
}

// SessionStore owns the current identity and the bearer token lifecycle.
// The token installed on the client always matches the authenticated session.
type SessionStore struct {
	client service.Client
	keeper service.SessionKeeper
	log    logrus.FieldLogger
	now    func() time.Time

	mu    sync.RWMutex
	user  service.Session
	token string
	err   string
}

// NewSessionStore returns an anonymous session bound to client.
// keeper may be nil, in which case nothing is persisted.
func NewSessionStore(client service.Client, keeper service.SessionKeeper, log logrus.FieldLogger) *SessionStore {
	return &SessionStore{
		client: client,
		keeper: keeper,
		log:    log,
		now:    time.Now,
	}
}

// State returns a copy of the current session state.
func (s *SessionStore) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionState{User: s.user, Error: s.err}
}

// Login authenticates against POST /auth/login.
// On failure the session is left as it was and ErrLoginFailed is recorded.
func (s *SessionStore) Login(ctx context.Context, username, password string) error {
	return s.authenticate(ctx, service.PathLogin, username, password, ErrLoginFailed)
}

// Register creates an account through POST /auth/register and signs in as it.
// On failure the session is left as it was and ErrRegistrationFailed is recorded.
func (s *SessionStore) Register(ctx context.Context, username, password string) error {
	return s.authenticate(ctx, service.PathRegister, username, password, ErrRegistrationFailed)
}

func (s *SessionStore) authenticate(ctx context.Context, path, username, password string, kind error) error {
	var resp service.AuthResponse
	err := s.client.Post(ctx, path, service.Credentials{Username: username, Password: password}, &resp)
	if err == nil && resp.Token == "" {
		err = errors.New("response carried no token")
	}
	if err != nil {
		s.log.WithError(err).WithField("username", username).Warn(kind.Error())
		s.fail(kind)
		return opError(kind, err)
	}

	s.mu.Lock()
	s.user = service.Session{Username: resp.Username, IsAuthenticated: true}
	s.token = resp.Token
	s.err = ""
	s.client.SetAuthToken(resp.Token)
	s.mu.Unlock()

	s.log.WithField("username", resp.Username).Info("signed in")
	s.persist(service.SavedSession{Username: resp.Username, Token: resp.Token})
	return nil
}

// fail records kind. A session that was not authenticated must not keep a
// credential on the client, so any leftover token is cleared.
func (s *SessionStore) fail(kind error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = kind.Error()
	if !s.user.IsAuthenticated {
		s.token = ""
		s.client.SetAuthToken("")
	}
}

// Logout resets to the anonymous session and clears the credential.
// It always succeeds; a failure to remove the saved session is only logged.
func (s *SessionStore) Logout() {
	s.mu.Lock()
	s.user = service.Anonymous
	s.token = ""
	s.err = ""
	s.client.SetAuthToken("")
	s.mu.Unlock()

	if s.keeper != nil {
		if err := s.keeper.RemoveSession(); err != nil {
			s.log.WithError(err).Warn("remove saved session")
		}
	}
	s.log.Info("signed out")
}

// Resume restores a session saved by an earlier run. It reports whether a
// session was restored. Tokens that are JWTs with an expired exp claim are
// discarded together with the saved file.
func (s *SessionStore) Resume() bool {
	if s.keeper == nil {
		return false
	}
	saved, err := s.keeper.LoadSession()
	if err != nil {
		return false
	}
	if expired(saved.Token, s.now()) {
		s.log.WithField("username", saved.Username).Info("saved session expired")
		if err := s.keeper.RemoveSession(); err != nil {
			s.log.WithError(err).Warn("remove saved session")
		}
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = service.Session{Username: saved.Username, IsAuthenticated: true}
	s.token = saved.Token
	s.err = ""
	s.client.SetAuthToken(saved.Token)
	return true
}

func (s *SessionStore) persist(saved service.SavedSession) {
	if s.keeper == nil {
		return
	}
	if err := s.keeper.SaveSession(saved); err != nil {
		s.log.WithError(err).Warn("save session")
	}
}

// expired reports whether token is a JWT whose exp lies before now.
// Opaque tokens and JWTs without exp never expire on the client.
func expired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(now)
}
