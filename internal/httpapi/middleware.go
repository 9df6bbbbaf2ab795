package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/agamenonmacondo/avashop-sub000/internal/identity"
)

type contextKey string

const (
	userKey      contextKey = "user"
	requestIDKey contextKey = "request_id"
)

// AuthMiddleware resolves the caller's identity and stores it in the
// request context. Requests without an identity still pass through;
// handlers that require one reject them individually, because the
// webhook and health endpoints are unauthenticated.
func AuthMiddleware(provider identity.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := provider.CurrentUser(r)
			if err != nil && !errors.Is(err, identity.ErrUnauthenticated) {
				respondError(w, http.StatusUnauthorized, "unauthorized", "could not resolve identity")
				return
			}
			if user != nil {
				ctx := context.WithValue(r.Context(), userKey, user)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) *identity.User {
	if user, ok := ctx.Value(userKey).(*identity.User); ok {
		return user
	}
	return nil
}
