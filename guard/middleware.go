package guard

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"goflare.io/storefront/models/enum"
	"goflare.io/storefront/session"
)

// Middleware wraps next so it only runs when Decide says Render for access.
func Middleware(s *session.Store, access enum.Access, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		state, identity := s.Snapshot()
		d := Decide(state, identity, access)

		switch d.Outcome {
		case Loading:
			w.Header().Set("Retry-After", "1")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"loading"}`))
		case Redirect:
			http.Redirect(w, r, d.Target, http.StatusSeeOther)
		default:
			next(w, r, ps)
		}
	}
}
