package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"goflare.io/storefront/models"
	"goflare.io/storefront/storage"
)

type fakeBackend struct {
	loginResp *models.LoginResponse
	loginErr  error
	logoutErr error

	loggedOut []string
}

func (f *fakeBackend) Login(_ context.Context, _, _ string) (*models.LoginResponse, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeBackend) Logout(_ context.Context, refreshToken string) error {
	f.loggedOut = append(f.loggedOut, refreshToken)
	return f.logoutErr
}

func (f *fakeBackend) Register(_ context.Context, reg *models.Registration) (*models.Identity, error) {
	return &models.Identity{Email: reg.Email, Username: reg.Username}, nil
}

func newTestStore(t *testing.T, backend *fakeBackend) (*Store, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	return NewStore(backend, mem, zap.NewNop()), mem
}

func assertEmpty(t *testing.T, s storage.Storage) {
	t.Helper()
	for _, k := range storage.SessionKeys {
		_, err := s.Get(context.Background(), k)
		assert.ErrorIs(t, err, storage.ErrNotFound, k)
	}
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestHydrate_UnparseableUserInfo(t *testing.T) {
	s, mem := newTestStore(t, &fakeBackend{})
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx,
		storage.Entry{Key: storage.KeyAccessToken, Value: "tok"},
		storage.Entry{Key: storage.KeyRefreshToken, Value: "ref"},
		storage.Entry{Key: storage.KeyUserInfo, Value: "{broken"},
	))

	require.NoError(t, s.Hydrate(ctx))

	state, identity := s.Snapshot()
	assert.Equal(t, StateReady, state)
	assert.Nil(t, identity)
	assertEmpty(t, mem)
}

func TestHydrate_NullUserInfo(t *testing.T) {
	s, mem := newTestStore(t, &fakeBackend{})
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx,
		storage.Entry{Key: storage.KeyAccessToken, Value: "opaque"},
		storage.Entry{Key: storage.KeyRefreshToken, Value: "ref"},
		storage.Entry{Key: storage.KeyUserInfo, Value: "null"},
	))

	require.NoError(t, s.Hydrate(ctx))

	state, identity := s.Snapshot()
	assert.Equal(t, StateReady, state)
	assert.Nil(t, identity)
	assert.False(t, s.IsAuthenticated())
	assertEmpty(t, mem)
}

func TestHydrate_RestoresWithoutServer(t *testing.T) {
	backend := &fakeBackend{loginErr: errors.New("must not be called")}
	s, mem := newTestStore(t, backend)
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx,
		storage.Entry{Key: storage.KeyAccessToken, Value: "opaque-token"},
		storage.Entry{Key: storage.KeyUserInfo, Value: `{"id":3,"email":"t@x.io","is_superuser":true}`},
	))

	state, _ := s.Snapshot()
	assert.Equal(t, StateLoading, state)

	require.NoError(t, s.Hydrate(ctx))

	identity := s.Identity()
	require.NotNil(t, identity)
	assert.Equal(t, "t@x.io", identity.Email)
	assert.True(t, identity.IsSuperuser)
}

func TestHydrate_MissingUserInfo(t *testing.T) {
	s, mem := newTestStore(t, &fakeBackend{})
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, storage.Entry{Key: storage.KeyAccessToken, Value: "tok"}))

	require.NoError(t, s.Hydrate(ctx))
	assert.False(t, s.IsAuthenticated())

	state, _ := s.Snapshot()
	assert.Equal(t, StateReady, state)
}

func TestHydrate_ExpiredJWT(t *testing.T) {
	s, mem := newTestStore(t, &fakeBackend{})
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx,
		storage.Entry{Key: storage.KeyAccessToken, Value: signed(t, time.Now().Add(-time.Minute))},
		storage.Entry{Key: storage.KeyUserInfo, Value: `{"id":3,"email":"t@x.io"}`},
	))

	require.NoError(t, s.Hydrate(ctx))

	assert.False(t, s.IsAuthenticated())
	assertEmpty(t, mem)
}

func TestHydrate_LiveJWT(t *testing.T) {
	s, mem := newTestStore(t, &fakeBackend{})
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx,
		storage.Entry{Key: storage.KeyAccessToken, Value: signed(t, time.Now().Add(time.Hour))},
		storage.Entry{Key: storage.KeyUserInfo, Value: `{"id":3,"email":"t@x.io"}`},
	))

	require.NoError(t, s.Hydrate(ctx))
	assert.True(t, s.IsAuthenticated())
}

func TestLogin(t *testing.T) {
	backend := &fakeBackend{loginResp: &models.LoginResponse{
		AccessToken:  "at",
		RefreshToken: "rt",
		IsSuperuser:  true,
		User:         models.Identity{ID: 1, Email: "admin@x.io", Username: "admin"},
	}}
	s, mem := newTestStore(t, backend)
	ctx := context.Background()

	identity, err := s.Login(ctx, "admin@x.io", "pw")
	require.NoError(t, err)
	assert.True(t, identity.IsSuperuser)
	assert.Equal(t, identity, s.Identity())

	at, _ := mem.Get(ctx, storage.KeyAccessToken)
	rt, _ := mem.Get(ctx, storage.KeyRefreshToken)
	raw, _ := mem.Get(ctx, storage.KeyUserInfo)
	assert.Equal(t, "at", at)
	assert.Equal(t, "rt", rt)

	var stored models.Identity
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, "admin@x.io", stored.Email)
	assert.True(t, stored.IsSuperuser)

	token, err := StorageTokens(mem)(ctx)
	require.NoError(t, err)
	assert.Equal(t, "at", token)
}

func TestLogin_FailureCommitsNothing(t *testing.T) {
	s, mem := newTestStore(t, &fakeBackend{loginErr: errors.New("400 bad credentials")})

	_, err := s.Login(context.Background(), "a@b.c", "nope")
	require.ErrorIs(t, err, ErrAuthentication)
	assert.False(t, s.IsAuthenticated())
	assertEmpty(t, mem)
}

func TestLogin_CanceledAfterResponse(t *testing.T) {
	backend := &fakeBackend{loginResp: &models.LoginResponse{AccessToken: "at", User: models.Identity{ID: 1}}}
	s, mem := newTestStore(t, backend)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Login(ctx, "a@b.c", "pw")
	require.ErrorIs(t, err, context.Canceled)
	assertEmpty(t, mem)
}

func TestLogout_SwallowsServerFailure(t *testing.T) {
	backend := &fakeBackend{
		loginResp: &models.LoginResponse{AccessToken: "at", RefreshToken: "rt", User: models.Identity{ID: 1}},
		logoutErr: errors.New("connection refused"),
	}
	s, mem := newTestStore(t, backend)
	ctx := context.Background()
	_, err := s.Login(ctx, "a@b.c", "pw")
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx))

	assert.Equal(t, []string{"rt"}, backend.loggedOut)
	assert.False(t, s.IsAuthenticated())
	assertEmpty(t, mem)
}

func TestInvalidate(t *testing.T) {
	backend := &fakeBackend{loginResp: &models.LoginResponse{AccessToken: "at", RefreshToken: "rt", User: models.Identity{ID: 1}}}
	s, mem := newTestStore(t, backend)
	ctx := context.Background()
	_, err := s.Login(ctx, "a@b.c", "pw")
	require.NoError(t, err)

	s.Invalidate(ctx)

	assert.False(t, s.IsAuthenticated())
	assertEmpty(t, mem)
}

func TestRegister(t *testing.T) {
	s, _ := newTestStore(t, &fakeBackend{})

	identity, err := s.Register(context.Background(), &models.Registration{Email: "n@x.io", Username: "n", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "n@x.io", identity.Email)
	assert.False(t, s.IsAuthenticated())
}

func TestExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, expired("not-a-jwt", now))
	assert.True(t, expired(signed(t, now.Add(-time.Second)), now))
	assert.False(t, expired(signed(t, now.Add(time.Minute)), now))
}
