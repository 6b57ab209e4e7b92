/**
 * @description
 * This file contains custom middleware for the HTTP router: bearer-token
 * authentication, role-based authorization, and Redis-backed rate limiting.
 *
 * @dependencies
 * - context, net/http, strings: Standard Go libraries.
 * - internal/app: Token verification and the rate limiter.
 */

package api

import (
	"context"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/collectra/collections-service/internal/app"
	"github.com/collectra/collections-service/internal/domain"
)

// authUserContextKey is a custom type for the context key to avoid collisions.
type authUserContextKey string

const authUserKey authUserContextKey = "authUser"

// GetAuthUser retrieves the authenticated user from the request context.
func GetAuthUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(authUserKey).(*domain.User)
	return user, ok
}

// AuthMiddleware validates the bearer token and loads the user behind it into
// the request context. Inactive users are rejected here, before any handler.
func AuthMiddleware(service *app.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				writeError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			user, err := service.AuthenticateToken(r.Context(), tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), authUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole restricts a route to the named roles. Must run after
// AuthMiddleware.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetAuthUser(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !allowed[user.Role] {
				writeError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit meters requests per subject within a fixed window. Authenticated
// requests are metered per user; anonymous ones per client IP. Limiter errors
// fail open.
func RateLimit(limiter app.RateLimiter, scope string, limit int64, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := clientIP(r)
			if user, ok := GetAuthUser(r.Context()); ok {
				subject = strconv.FormatInt(user.ID, 10)
			}

			result, err := limiter.Allow(r.Context(), scope, subject, limit, window)
			if err != nil {
				log.Printf("level=warn component=api middleware=rate_limit scope=%s msg=\"limiter unavailable; allowing request\" err=%v", scope, err)
				next.ServeHTTP(w, r)
				return
			}
			if !result.Allowed {
				if result.RetryAfter > 0 {
					seconds := int(result.RetryAfter.Seconds())
					if seconds < 1 {
						seconds = 1
					}
					w.Header().Set("Retry-After", strconv.Itoa(seconds))
				}
				writeError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
