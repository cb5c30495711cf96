// Package session owns the signed-in user. It is the only writer of session
// state; readers take copies through Current or Subscribe.
package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/campusdesk/portal/internal/token"
	apperrors "github.com/campusdesk/portal/pkg/errors"
	"go.uber.org/zap"
)

// Store is the persistence the session needs. *tokenstore.Store satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
	Clear(ctx context.Context, keys ...string)
}

// Identity is the user derived from access token claims
type Identity struct {
	UserID    int    `json:"user_id"`
	UserType  string `json:"user_type"`
	IsFaculty bool   `json:"is_faculty"`
	FacultyID *int   `json:"faculty_id,omitempty"`
	StudentID *int   `json:"student_id,omitempty"`
}

// IdentityFromClaims derives the identity carried by claims
func IdentityFromClaims(c *token.Claims) *Identity {
	return &Identity{
		UserID:    c.UserID,
		UserType:  c.UserType,
		IsFaculty: c.IsFaculty(),
		FacultyID: copyInt(c.FacultyID),
		StudentID: copyInt(c.StudentID),
	}
}

func (i *Identity) clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	c.FacultyID = copyInt(i.FacultyID)
	c.StudentID = copyInt(i.StudentID)
	return &c
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Listener is called with a copy of the identity after every transition;
// nil means the session became anonymous.
type Listener func(*Identity)

// Session tracks ANONYMOUS (user == nil) or AUTHENTICATED(user)
type Session struct {
	store   Store
	decoder *token.Decoder
	logger  *zap.Logger
	onReset func()

	mu        sync.RWMutex
	user      *Identity
	listeners map[int]Listener
	nextID    int
}

// Option configures a Session
type Option func(*Session)

// WithDecoder overrides the claims decoder
func WithDecoder(d *token.Decoder) Option {
	return func(s *Session) { s.decoder = d }
}

// WithLogger sets the session logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithOnReset registers the hook run after Reset, e.g. to send the user back
// to the login prompt.
func WithOnReset(fn func()) Option {
	return func(s *Session) { s.onReset = fn }
}

// New creates an anonymous session backed by store
func New(store Store, opts ...Option) *Session {
	s := &Session{
		store:     store,
		decoder:   token.NewDecoder(),
		logger:    zap.NewNop(),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("session")
	return s
}

// Login decodes pair.Access, persists both tokens and the derived identity,
// and notifies listeners. A token that does not decode leaves the session
// unchanged, clears storage and returns an INVALID_TOKEN error.
func (s *Session) Login(ctx context.Context, pair token.Pair) (*Identity, error) {
	claims, err := s.decoder.Decode(pair.Access)
	if err != nil {
		s.store.Clear(ctx, token.AllKeys...)
		s.logger.Warn("login rejected: access token did not decode", zap.Error(err))
		return nil, apperrors.InvalidToken(err)
	}

	user := IdentityFromClaims(claims)

	s.store.Set(ctx, token.KeyAccess, pair.Access)
	s.store.Set(ctx, token.KeyRefresh, pair.Refresh)
	if raw, err := json.Marshal(user); err == nil {
		s.store.Set(ctx, token.KeyUser, string(raw))
	}

	s.transition(user)
	s.logger.Info("logged in",
		zap.Int("user_id", user.UserID),
		zap.String("user_type", user.UserType),
	)
	return user.clone(), nil
}

// Logout clears state and every persisted key. It cannot fail and may be
// called any number of times.
func (s *Session) Logout(ctx context.Context) {
	s.store.Clear(ctx, token.AllKeys...)
	if s.transition(nil) {
		s.logger.Info("logged out")
	}
}

// Reset is called when authentication cannot be recovered: it logs out and
// runs the OnReset hook.
func (s *Session) Reset(ctx context.Context) {
	s.Logout(ctx)
	if s.onReset != nil {
		s.onReset()
	}
}

// Rehydrate restores the session from the persisted access token. An absent
// token leaves the session anonymous; an invalid or expired one is cleared.
func (s *Session) Rehydrate(ctx context.Context) *Identity {
	access, ok := s.store.Get(ctx, token.KeyAccess)
	if !ok {
		s.transition(nil)
		return nil
	}

	claims, err := s.decoder.Decode(access)
	if err != nil {
		s.logger.Info("stored access token rejected, clearing session", zap.Error(err))
		s.store.Clear(ctx, token.AllKeys...)
		s.transition(nil)
		return nil
	}

	user := IdentityFromClaims(claims)
	s.transition(user)
	return user.clone()
}

// Current returns a copy of the signed-in identity, or nil when anonymous
func (s *Session) Current() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.clone()
}

// Authenticated reports whether a user is signed in
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// Subscribe registers fn for every future transition. The returned func
// removes it.
func (s *Session) Subscribe(fn Listener) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// transition swaps the user and notifies listeners outside the lock. It
// reports whether anything changed.
func (s *Session) transition(user *Identity) bool {
	s.mu.Lock()
	if s.user == nil && user == nil {
		s.mu.Unlock()
		return false
	}
	s.user = user
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(user.clone())
	}
	return true
}
