package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/medibook-client/internal/api"
	"github.com/wolfman30/medibook-client/pkg/logging"
)

// ErrMissingToken is returned when the identity provider answers without a session token.
var ErrMissingToken = errors.New("session: identity provider returned no token")

// ErrInvalidInput wraps validation failures caught before any network call.
var ErrInvalidInput = errors.New("session: invalid input")

// IdentityProvider is the subset of the API the session consumes.
type IdentityProvider interface {
	Login(ctx context.Context, creds api.Credentials) (*api.User, error)
	Register(ctx context.Context, reg api.Registration) (*api.User, error)
	RegisterDoctor(ctx context.Context, reg api.DoctorRegistration) (*api.User, error)
	Me(ctx context.Context) (*api.User, error)
}

// Session holds the authenticated identity for the lifetime of the process.
// Construct one per application and pass it to whatever needs it.
type Session struct {
	provider IdentityProvider
	store    TokenStore
	logger   *logging.Logger
	validate *validator.Validate
	now      func() time.Time

	mu   sync.RWMutex
	user *api.User
}

// New creates an anonymous session. Call Restore to pick up a persisted token.
func New(provider IdentityProvider, store TokenStore, logger *logging.Logger) *Session {
	if provider == nil || store == nil {
		panic("session: identity provider and token store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Session{
		provider: provider,
		store:    store,
		logger:   logger,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Restore loads the persisted token and resolves it to an identity.
// A token that is expired or rejected is removed and the session stays anonymous;
// only token store failures are returned.
func (s *Session) Restore(ctx context.Context) error {
	token, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}
	if tokenExpired(token, s.now()) {
		s.logger.Info("session token expired, clearing")
		return s.store.Clear(ctx)
	}

	user, err := s.provider.Me(ctx)
	if err != nil {
		s.logger.Error("failed to load user", "error", err)
		return s.store.Clear(ctx)
	}
	s.setUser(user)
	s.logger.Debug("session restored", "user_id", user.ID, "role", user.Role)
	return nil
}

// Login authenticates with email and password.
func (s *Session) Login(ctx context.Context, creds api.Credentials) (*api.User, error) {
	if err := s.validate.Struct(creds); err != nil {
		return nil, fmt.Errorf("%w: credentials: %w", ErrInvalidInput, err)
	}
	user, err := s.provider.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, user)
}

// Register signs up a patient.
func (s *Session) Register(ctx context.Context, reg api.Registration) (*api.User, error) {
	reg.Role = api.RolePatient
	if err := s.validate.Struct(reg); err != nil {
		return nil, fmt.Errorf("%w: registration: %w", ErrInvalidInput, err)
	}
	user, err := s.provider.Register(ctx, reg)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, user)
}

// RegisterDoctor signs up a doctor. A placeholder avatar is assigned when none is given.
func (s *Session) RegisterDoctor(ctx context.Context, reg api.DoctorRegistration) (*api.User, error) {
	reg.Role = api.RoleDoctor
	if err := s.validate.Struct(reg); err != nil {
		return nil, fmt.Errorf("%w: doctor registration: %w", ErrInvalidInput, err)
	}
	if !reg.Fee.IsPositive() {
		return nil, fmt.Errorf("%w: doctor registration: fee must be positive", ErrInvalidInput)
	}
	if reg.Image == "" {
		reg.Image = fmt.Sprintf("/images/doctor%d.png", rand.IntN(3)+1)
	}
	user, err := s.provider.RegisterDoctor(ctx, reg)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, user)
}

// Logout forgets the token and the identity.
func (s *Session) Logout(ctx context.Context) error {
	s.setUser(nil)
	return s.store.Clear(ctx)
}

// User returns a copy of the current identity, or nil when anonymous.
func (s *Session) User() *api.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated reports whether an identity is held.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

func (s *Session) establish(ctx context.Context, user *api.User) (*api.User, error) {
	if user == nil || user.Token == "" {
		return nil, ErrMissingToken
	}
	if err := s.store.Save(ctx, user.Token); err != nil {
		return nil, err
	}
	s.setUser(user)
	s.logger.Info("session established", "user_id", user.ID, "role", user.Role)
	return s.User(), nil
}

func (s *Session) setUser(user *api.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user == nil {
		s.user = nil
		return
	}
	u := *user
	u.Token = ""
	s.user = &u
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Opaque or unparsable tokens are left for the server to judge.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.Time.After(now)
}
