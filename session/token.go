package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"goflare.io/storefront/api"
	"goflare.io/storefront/storage"
)

// expired reports whether token is a JWT whose exp claim is in the past. The signature is
// not checked; only the backend can do that. Opaque tokens are never considered expired.
func expired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}

// StorageTokens reads the bearer token for the API client straight from storage, so the
// client and the session store never disagree about which token is current.
func StorageTokens(s storage.Storage) api.TokenSource {
	return func(ctx context.Context) (string, error) {
		token, err := s.Get(ctx, storage.KeyAccessToken)
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil
		}
		return token, err
	}
}
