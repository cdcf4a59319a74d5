package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gartstein/jobboard/internal/jobboard/models"
	"go.uber.org/zap"
)

type contextKey string

const (
	actorContextKey contextKey = "actor"
)

// Verifier resolves a bearer token to an actor.
type Verifier interface {
	Verify(token string) (models.Actor, error)
}

// HTTPMiddleware attaches the actor of a valid bearer token to the request
// context. Requests without an Authorization header pass through anonymously
// and the handlers decide whether that is acceptable; a header carrying a bad
// token is rejected with 401.
func HTTPMiddleware(next http.Handler, verifier Verifier, logger *zap.Logger) http.Handler {
	logger = logger.Named("auth")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, err := extractTokenFromHeader(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		actor, err := verifier.Verify(tokenString)
		if err != nil {
			logger.Debug("Rejected token", zap.Error(err), zap.String("path", r.URL.Path))
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// ActorFromContext returns the authenticated actor, if any.
func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(models.Actor)
	return actor, ok
}

func extractTokenFromHeader(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("authorization header required")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", fmt.Errorf("invalid authorization format: missing Bearer prefix")
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if tokenString == "" {
		return "", fmt.Errorf("invalid authorization format: empty token")
	}
	return tokenString, nil
}
