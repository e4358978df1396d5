// Package guard decides whether a navigation target may be shown to the current session.
package guard

import (
	"strings"

	"goflare.io/storefront/models"
	"goflare.io/storefront/models/enum"
	"goflare.io/storefront/session"
)

const (
	LoginPath     = "/login"
	HomePath      = "/"
	DashboardPath = "/dashboard"
)

type Outcome int

const (
	Render Outcome = iota
	Loading
	Redirect
)

// Decision is the guard's verdict; Target is set for Redirect only.
type Decision struct {
	Outcome Outcome
	Target  string
}

// Decide gates a route with access class access. Admin and trader areas are disjoint: an
// elevated identity is sent to the dashboard from trader pages and vice versa.
func Decide(state session.State, identity *models.Identity, access enum.Access) Decision {
	if access == enum.AccessPublic {
		return Decision{Outcome: Render}
	}
	if state == session.StateLoading {
		return Decision{Outcome: Loading}
	}
	if identity == nil {
		return Decision{Outcome: Redirect, Target: LoginPath}
	}
	if access == enum.AccessAdmin && !identity.IsSuperuser {
		return Decision{Outcome: Redirect, Target: HomePath}
	}
	if access == enum.AccessTrader && identity.IsSuperuser {
		return Decision{Outcome: Redirect, Target: DashboardPath}
	}
	return Decision{Outcome: Render}
}

// Routes maps path prefixes to access classes. Longest prefix wins; unknown paths are public.
var Routes = map[string]enum.Access{
	"/":          enum.AccessPublic,
	"/login":     enum.AccessPublic,
	"/register":  enum.AccessPublic,
	"/products":  enum.AccessPublic,
	"/dashboard": enum.AccessAdmin,
	"/orders":    enum.AccessTrader,
	"/cart":      enum.AccessTrader,
	"/checkout":  enum.AccessTrader,
	"/profile":   enum.AccessTrader,
}

// AccessFor resolves the access class of path against Routes.
func AccessFor(path string) enum.Access {
	best := ""
	access := enum.AccessPublic
	for prefix, a := range Routes {
		if !matches(path, prefix) {
			continue
		}
		if len(prefix) > len(best) {
			best = prefix
			access = a
		}
	}
	return access
}

func matches(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
