// Package session keeps the signed-in identity and its token pair.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"goflare.io/storefront/models"
	"goflare.io/storefront/storage"
)

var ErrAuthentication = errors.New("authentication failed")

// State is Loading until Hydrate has run once.
type State int

const (
	StateLoading State = iota
	StateReady
)

// Backend is the slice of the API the session store talks to.
type Backend interface {
	Login(ctx context.Context, email, password string) (*models.LoginResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Register(ctx context.Context, reg *models.Registration) (*models.Identity, error)
}

type Store struct {
	backend Backend
	storage storage.Storage
	now     func() time.Time

	mu       sync.RWMutex
	state    State
	identity *models.Identity

	logger *zap.Logger
}

func NewStore(backend Backend, s storage.Storage, logger *zap.Logger) *Store {
	return &Store{
		backend: backend,
		storage: s,
		now:     time.Now,
		state:   StateLoading,
		logger:  logger,
	}
}

// Snapshot returns the state and identity together, so callers never see a torn pair.
func (s *Store) Snapshot() (State, *models.Identity) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.identity
}

func (s *Store) Identity() *models.Identity {
	_, id := s.Snapshot()
	return id
}

func (s *Store) IsAuthenticated() bool {
	return s.Identity() != nil
}

// Hydrate restores the identity cached by a previous Login without asking the server. Any
// stale token is caught later by the first API call that comes back 401 (see Invalidate).
func (s *Store) Hydrate(ctx context.Context) error {
	defer s.ready()

	token, err := s.storage.Get(ctx, storage.KeyAccessToken)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read access token: %w", err)
	}
	raw, err := s.storage.Get(ctx, storage.KeyUserInfo)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read user info: %w", err)
	}

	var identity *models.Identity
	if err = json.Unmarshal([]byte(raw), &identity); err != nil {
		s.logger.Warn("Failed to parse stored user info, clearing session", zap.Error(err))
		return s.wipe(ctx)
	}
	if identity == nil {
		s.logger.Warn("Stored user info is empty, clearing session")
		return s.wipe(ctx)
	}
	if expired(token, s.now()) {
		s.logger.Info("Stored access token has expired, clearing session", zap.String("email", identity.Email))
		return s.wipe(ctx)
	}

	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()

	s.logger.Info("Session restored", zap.String("email", identity.Email), zap.Bool("is_superuser", identity.IsSuperuser))
	return nil
}

// Login authenticates against the backend and persists the token pair and identity in a
// single storage write. On any failure nothing is committed.
func (s *Store) Login(ctx context.Context, email, password string) (*models.Identity, error) {
	resp, err := s.backend.Login(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login failed", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}

	identity := resp.User
	identity.IsSuperuser = resp.IsSuperuser

	userInfo, err := json.Marshal(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user info: %w", err)
	}
	err = s.storage.Set(ctx,
		storage.Entry{Key: storage.KeyAccessToken, Value: resp.AccessToken},
		storage.Entry{Key: storage.KeyRefreshToken, Value: resp.RefreshToken},
		storage.Entry{Key: storage.KeyUserInfo, Value: string(userInfo)},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	s.mu.Lock()
	s.identity = &identity
	s.state = StateReady
	s.mu.Unlock()

	s.logger.Info("Logged in", zap.String("email", identity.Email), zap.Bool("is_superuser", identity.IsSuperuser))
	return &identity, nil
}

// Logout tells the backend to drop the refresh token, then clears local state whether or not
// that call worked.
func (s *Store) Logout(ctx context.Context) error {
	refresh, err := s.storage.Get(ctx, storage.KeyRefreshToken)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("Failed to read refresh token", zap.Error(err))
	}
	if err = s.backend.Logout(ctx, refresh); err != nil {
		s.logger.Warn("Logout notification failed", zap.Error(err))
	}

	return s.wipe(context.WithoutCancel(ctx))
}

// Register creates an account. It does not sign the new user in.
func (s *Store) Register(ctx context.Context, reg *models.Registration) (*models.Identity, error) {
	identity, err := s.backend.Register(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register: %w", err)
	}
	return identity, nil
}

// Invalidate downgrades to signed-out after the backend rejected the access token.
func (s *Store) Invalidate(ctx context.Context) {
	if !s.IsAuthenticated() {
		return
	}
	s.logger.Info("Access token rejected by backend, signing out")
	if err := s.wipe(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error("Failed to clear session", zap.Error(err))
	}
}

func (s *Store) wipe(ctx context.Context) error {
	s.mu.Lock()
	s.identity = nil
	s.mu.Unlock()

	if err := s.storage.Remove(ctx, storage.SessionKeys...); err != nil {
		return fmt.Errorf("failed to clear session storage: %w", err)
	}
	return nil
}

func (s *Store) ready() {
	s.mu.Lock()
	s.state = StateReady
	s.mu.Unlock()
}
