// Package session holds the authenticated-user lifecycle: login, hydration
// from a persisted token, logout and the reaction to 401 responses.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/raphaelgruber/girs/internal/client"
	"github.com/raphaelgruber/girs/internal/models"
)

// Phase is the state of the session machine.
type Phase string

const (
	PhaseAnonymous      Phase = "anonymous"
	PhaseAuthenticating Phase = "authenticating"
	PhaseAuthenticated  Phase = "authenticated"
	PhaseHydrating      Phase = "hydrating"
)

// ErrSuperseded is returned by Login when a newer session operation (another
// login, a logout, a 401) finished while it was in flight. Its result was
// discarded.
var ErrSuperseded = errors.New("superseded by a newer session change")

// State is an immutable snapshot of the session.
type State struct {
	Phase Phase
	User  *models.User
	// Loading is true while authenticating, hydrating or registering.
	Loading bool
}

// Authenticated reports whether a user is signed in.
func (s State) Authenticated() bool {
	return s.User != nil
}

// AuthAPI is the subset of the HTTP client the session needs.
type AuthAPI interface {
	Login(ctx context.Context, input models.LoginInput) (*client.LoginResult, error)
	Profile(ctx context.Context) (*models.User, error)
	Register(ctx context.Context, input models.RegisterInput) error
	Logout(ctx context.Context) error
}

// Store is the session state machine. Create one per process with New and
// release it with Close.
type Store struct {
	api      AuthAPI
	storage  Storage
	logger   *slog.Logger
	redirect func()
	signal   *client.Signal

	mu          sync.Mutex
	phase       Phase
	user        *models.User
	registering int
	// generation increments on every login, hydration and logout. An async
	// result is applied only if the generation it started under is current.
	generation  uint64
	subscribers map[int]func(State)
	nextSub     int
	unsubscribe func()
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithRedirect sets the hook that sends the user back to the login entry
// point after a failed hydration or a 401.
func WithRedirect(fn func()) Option {
	return func(s *Store) { s.redirect = fn }
}

// WithUnauthorizedSignal makes the store log out whenever sig is raised.
func WithUnauthorizedSignal(sig *client.Signal) Option {
	return func(s *Store) { s.signal = sig }
}

// New creates a session store in the anonymous phase.
func New(api AuthAPI, storage Storage, opts ...Option) *Store {
	s := &Store{
		api:         api,
		storage:     storage,
		logger:      slog.Default(),
		phase:       PhaseAnonymous,
		subscribers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.signal != nil {
		s.unsubscribe = s.signal.Subscribe(s.HandleUnauthorized)
	}
	return s
}

// Close detaches the store from the unauthorized signal and drops subscribers.
func (s *Store) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.subscribers = make(map[int]func(State))
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to be called with every new state. The returned
// function removes it.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Login validates input, authenticates and resolves the profile. On failure
// the store returns to anonymous and no token written during the attempt
// survives.
func (s *Store) Login(ctx context.Context, input models.LoginInput) error {
	if err := models.Validate(input); err != nil {
		return err
	}

	gen := s.begin(PhaseAuthenticating)
	s.logger.Info("logging in", "email", input.Email)

	res, err := s.api.Login(ctx, input)
	if err != nil {
		s.abort(gen, "")
		return err
	}

	// Saved before the profile fetch so the request carries the bearer token.
	if err := s.storage.Save(res.Token); err != nil {
		s.abort(gen, "")
		return fmt.Errorf("persist session: %w", err)
	}

	user := res.User
	if user == nil {
		user, err = s.api.Profile(ctx)
		if err != nil {
			s.abort(gen, res.Token)
			return err
		}
	}

	if !s.commit(gen, user) {
		s.abort(gen, res.Token)
		return ErrSuperseded
	}
	s.logger.Info("logged in", "user_id", user.ID)
	return nil
}

// Register validates input and creates an account. It does not sign in.
func (s *Store) Register(ctx context.Context, input models.RegisterInput) error {
	if err := models.Validate(input); err != nil {
		return err
	}

	s.mu.Lock()
	s.registering++
	s.mu.Unlock()
	s.publish()

	defer func() {
		s.mu.Lock()
		s.registering--
		s.mu.Unlock()
		s.publish()
	}()

	return s.api.Register(ctx, input)
}

// Hydrate restores the session from a persisted token. Failures are not
// returned: the store ends anonymous with storage cleared and the redirect
// hook invoked.
func (s *Store) Hydrate(ctx context.Context) {
	token, err := s.storage.Token()
	if err != nil {
		s.logger.Warn("failed to read persisted session", "error", err)
	}
	if token == "" {
		return
	}

	gen := s.begin(PhaseHydrating)
	user, err := s.api.Profile(ctx)
	if err != nil {
		s.logger.Warn("session hydration failed", "error", err)
		if s.abort(gen, "") {
			s.clearStorage()
			s.redirectToLogin()
		}
		return
	}

	if !s.commit(gen, user) {
		s.logger.Debug("discarding stale hydration result")
	}
}

// Logout ends the session. Local teardown always happens, whatever the
// remote call returns.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()

	defer s.teardown()

	token, err := s.storage.Token()
	if err != nil || token == "" {
		return
	}
	if err := s.api.Logout(ctx); err != nil {
		s.logger.Warn("remote logout failed", "error", err)
	}
}

// HandleUnauthorized tears the session down locally after a 401. It is safe
// to call concurrently; only the first call on a live session has an effect.
// The remote logout endpoint is not called since the token is already
// rejected. A 401 while authenticating is a rejected login and is left to
// Login.
func (s *Store) HandleUnauthorized() {
	s.mu.Lock()
	if s.phase != PhaseAuthenticated && s.phase != PhaseHydrating {
		s.mu.Unlock()
		return
	}
	s.generation++
	s.phase = PhaseAnonymous
	s.user = nil
	s.mu.Unlock()

	s.logger.Warn("session rejected by server, logging out")
	s.clearStorage()
	s.publish()
	s.redirectToLogin()
}

// begin enters phase under a new generation and returns it.
func (s *Store) begin(phase Phase) uint64 {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.phase = phase
	s.user = nil
	s.mu.Unlock()

	s.publish()
	return gen
}

// commit applies a successful result of generation gen. It reports false
// when gen is stale.
func (s *Store) commit(gen uint64, user *models.User) bool {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return false
	}
	s.phase = PhaseAuthenticated
	s.user = user
	s.mu.Unlock()

	s.publish()
	return true
}

// abort returns to anonymous if gen is current and removes token from storage
// if it is still the persisted one. It reports whether gen was current.
func (s *Store) abort(gen uint64, token string) bool {
	s.mu.Lock()
	current := gen == s.generation
	if current {
		s.phase = PhaseAnonymous
		s.user = nil
	}
	if token != "" {
		if stored, _ := s.storage.Token(); stored == token {
			if err := s.storage.Clear(); err != nil {
				s.logger.Error("failed to clear session", "error", err)
			}
		}
	}
	s.mu.Unlock()

	if current {
		s.publish()
	}
	return current
}

func (s *Store) teardown() {
	s.mu.Lock()
	s.phase = PhaseAnonymous
	s.user = nil
	s.mu.Unlock()

	s.clearStorage()
	s.publish()
	s.logger.Info("logged out")
}

func (s *Store) clearStorage() {
	if err := s.storage.Clear(); err != nil {
		s.logger.Error("failed to clear session", "error", err)
	}
}

func (s *Store) redirectToLogin() {
	if s.redirect != nil {
		s.redirect()
	}
}

func (s *Store) snapshotLocked() State {
	return State{
		Phase:   s.phase,
		User:    s.user,
		Loading: s.phase == PhaseAuthenticating || s.phase == PhaseHydrating || s.registering > 0,
	}
}

// publish sends the current state to every subscriber outside the lock.
func (s *Store) publish() {
	s.mu.Lock()
	state := s.snapshotLocked()
	subs := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}
