package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"goflare.io/storefront/api"
	"goflare.io/storefront/checkout"
	"goflare.io/storefront/order"
	"goflare.io/storefront/session"
	"goflare.io/storefront/stock"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// writeError renders err as an error banner, keeping the upstream status when there is one.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	if code := api.StatusCode(err); code != 0 {
		return code
	}

	var stageErr *checkout.StageError
	switch {
	case errors.Is(err, checkout.ErrEmptyCart), errors.Is(err, stock.ErrInvalidProduct), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrNotCancelable), errors.Is(err, order.ErrNotRetryable):
		return http.StatusConflict
	case errors.Is(err, session.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, checkout.ErrNotSucceeded):
		return http.StatusPaymentRequired
	case errors.Is(err, checkout.ErrUnknownCheckout), errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &stageErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
