package middleware

import (
	"net/http"
	"strings"

	"clinic/pkg/auth"
	"clinic/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

// Authenticate resolves the current user from a Bearer token and stores it in
// the request context. Token issuance belongs to the authentication service;
// this middleware only verifies.
func Authenticate(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				rejectUnauthorized(w, "Authorization header required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				rejectUnauthorized(w, "Invalid authorization header format")
				return
			}

			claims, err := auth.ValidateToken(parts[1], secret)
			if err != nil {
				requestID := ""
				if rid := r.Context().Value(RequestIDKey); rid != nil {
					if id, ok := rid.(string); ok {
						requestID = id
					}
				}
				log.Warn("Token validation failed",
					"request_id", requestID,
					"path", r.URL.Path,
					"error", err,
				)
				rejectUnauthorized(w, "Invalid token")
				return
			}

			ctx := auth.WithUser(r.Context(), auth.User{ID: claims.UserID, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a single route on the authenticated user's role.
func RequireRole(next httprouter.Handle, roles ...auth.Role) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		user, ok := auth.FromContext(r.Context())
		if !ok {
			rejectUnauthorized(w, "Authentication required")
			return
		}

		for _, role := range roles {
			if user.Role == role {
				next(w, r, ps)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"You do not have permission to access this resource"}`))
	}
}

func rejectUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
