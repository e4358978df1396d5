package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"goflare.io/storefront/models"
	"goflare.io/storefront/models/enum"
	"goflare.io/storefront/session"
	"goflare.io/storefront/storage"
)

func TestDecide(t *testing.T) {
	trader := &models.Identity{ID: 1}
	admin := &models.Identity{ID: 2, IsSuperuser: true}

	tests := []struct {
		name     string
		state    session.State
		identity *models.Identity
		access   enum.Access
		want     Decision
	}{
		{"public while loading", session.StateLoading, nil, enum.AccessPublic, Decision{Outcome: Render}},
		{"protected while loading", session.StateLoading, nil, enum.AccessTrader, Decision{Outcome: Loading}},
		{"anonymous trader route", session.StateReady, nil, enum.AccessTrader, Decision{Outcome: Redirect, Target: "/login"}},
		{"anonymous admin route", session.StateReady, nil, enum.AccessAdmin, Decision{Outcome: Redirect, Target: "/login"}},
		{"trader on trader route", session.StateReady, trader, enum.AccessTrader, Decision{Outcome: Render}},
		{"trader on admin route", session.StateReady, trader, enum.AccessAdmin, Decision{Outcome: Redirect, Target: "/"}},
		{"admin on trader route", session.StateReady, admin, enum.AccessTrader, Decision{Outcome: Redirect, Target: "/dashboard"}},
		{"admin on admin route", session.StateReady, admin, enum.AccessAdmin, Decision{Outcome: Render}},
		{"admin on public route", session.StateReady, admin, enum.AccessPublic, Decision{Outcome: Render}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.state, tt.identity, tt.access))
		})
	}
}

func TestAccessFor(t *testing.T) {
	assert.Equal(t, enum.AccessPublic, AccessFor("/"))
	assert.Equal(t, enum.AccessPublic, AccessFor("/products"))
	assert.Equal(t, enum.AccessAdmin, AccessFor("/dashboard"))
	assert.Equal(t, enum.AccessAdmin, AccessFor("/dashboard/stock"))
	assert.Equal(t, enum.AccessTrader, AccessFor("/orders/12/cancel"))
	assert.Equal(t, enum.AccessTrader, AccessFor("/cart"))
	assert.Equal(t, enum.AccessPublic, AccessFor("/cartography"))
	assert.Equal(t, enum.AccessPublic, AccessFor("/unknown"))
}

type loginBackend struct {
	superuser bool
}

func (b loginBackend) Login(context.Context, string, string) (*models.LoginResponse, error) {
	return &models.LoginResponse{AccessToken: "at", RefreshToken: "rt", IsSuperuser: b.superuser, User: models.Identity{ID: 1}}, nil
}

func (loginBackend) Logout(context.Context, string) error { return nil }

func (loginBackend) Register(context.Context, *models.Registration) (*models.Identity, error) {
	return nil, nil
}

func TestProtect(t *testing.T) {
	s := session.NewStore(loginBackend{}, storage.NewMemory(), zap.NewNop())
	ok := func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
	}
	h := Middleware(s, enum.AccessTrader, ok)

	serve := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/cart", nil), nil)
		return rec
	}

	rec := serve()
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	require.NoError(t, s.Hydrate(context.Background()))
	rec = serve()
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	_, err := s.Login(context.Background(), "t@x.io", "pw")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, serve().Code)
}
