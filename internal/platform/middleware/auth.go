package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// TokenValidator resolves an opaque bearer token into a caller identity.
// It fails closed: any error means no identity.
type TokenValidator interface {
	ValidateToken(tokenString string) (*CallerClaims, error)
}

// CallerClaims is the identity attached to authenticated requests.
type CallerClaims struct {
	UserID   string
	Username string
	Role     string
}

type contextKeyUserID struct{}
type contextKeyUsername struct{}
type contextKeyRole struct{}

// GetUserID retrieves the authenticated caller's user ID from the context.
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(contextKeyUserID{}).(string); ok {
		return v
	}
	return ""
}

// GetRole retrieves the authenticated caller's role from the context.
func GetRole(ctx context.Context) string {
	if v, ok := ctx.Value(contextKeyRole{}).(string); ok {
		return v
	}
	return ""
}

// WithCaller injects caller identity; useful for handler tests.
func WithCaller(ctx context.Context, userID, username, role string) context.Context {
	ctx = context.WithValue(ctx, contextKeyUserID{}, userID)
	ctx = context.WithValue(ctx, contextKeyUsername{}, username)
	return context.WithValue(ctx, contextKeyRole{}, role)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// resolved caller identity in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				unauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				unauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(ctx, claims.UserID, claims.Username, claims.Role)))
		})
	}
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
