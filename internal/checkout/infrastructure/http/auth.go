package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yourbarrio/checkout-service/pkg/sessions"
)

// SessionStore resolves a bearer token to the authenticated customer id.
type SessionStore interface {
	Customer(ctx context.Context, token string) (string, error)
}

type ctxKey int

const customerKey ctxKey = iota

// CustomerID returns the authenticated customer id stored by the auth
// middleware, or "".
func CustomerID(ctx context.Context) string {
	id, _ := ctx.Value(customerKey).(string)
	return id
}

// RequireSession rejects requests without a resolvable session with 401.
// The customer id travels as an explicit context value; nothing downstream
// reads the session again.
func RequireSession(log *slog.Logger, store SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			customerID, err := store.Customer(r.Context(), token)
			if err != nil {
				if !errors.Is(err, sessions.ErrNoSession) {
					log.Error("session lookup failed", "err", err)
				}
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			ctx := context.WithValue(r.Context(), customerKey, customerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, prefix))
}
