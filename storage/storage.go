// Package storage persists the session's token pair and cached identity between runs.
package storage

import (
	"context"
	"errors"
)

// Keys used by the session store.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUserInfo     = "user_info"
)

// SessionKeys lists every key a session owns, for wholesale removal.
var SessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUserInfo}

var ErrNotFound = errors.New("storage: key not found")

// Entry is one key/value pair written by Set.
type Entry struct {
	Key   string
	Value string
}

// Storage is durable client-side key/value storage. Set and Remove apply all of their
// arguments or none of them.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, entries ...Entry) error
	Remove(ctx context.Context, keys ...string) error
}
