// Package middleware provides HTTP middleware for the assessment API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/scoutsec/cmmc-scout/pkg/auth"
	"github.com/scoutsec/cmmc-scout/pkg/config"
	"github.com/scoutsec/cmmc-scout/pkg/logger"
)

// devUserID is the identity assigned to all requests when auth runs in
// dev mode.
const devUserID = "dev-user"

// Auth returns a middleware that validates Auth0 JWT bearer tokens and
// places the authenticated user ID on the request context.
func Auth(cfg config.AuthConfig, log *logger.Logger) func(next http.Handler) http.Handler {
	var verifier *auth.Verifier
	if !cfg.DevMode && cfg.Domain != "" {
		verifier = auth.NewVerifier(cfg.Domain, cfg.Audience)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if cfg.DevMode || verifier == nil {
				log.Debug("auth running in dev mode")
				ctx = logger.SetContextValue(ctx, logger.UserIDKey, devUserID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error": "missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				http.Error(w, `{"error": "invalid authorization header format"}`, http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(ctx, parts[1])
			if err != nil {
				log.Warn("JWT verification failed", "error", err)
				http.Error(w, `{"error": "invalid or expired token"}`, http.StatusUnauthorized)
				return
			}

			ctx = logger.SetContextValue(ctx, logger.UserIDKey, claims.Subject)
			log.Debug("authenticated request", "user_id", claims.Subject)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
