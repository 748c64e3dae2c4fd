// Package auth resolves the current user for a request. The scheduling core
// never trusts a caller-supplied identity on write paths: patient and doctor
// ids are always taken from the authenticated user in the request context.
package auth

import "context"

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// User is the identity the session collaborator resolved for this request.
type User struct {
	ID   string
	Role Role
}

type contextKey string

const userKey contextKey = "current_user"

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// FromContext returns the authenticated user, if any.
func FromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey).(User)
	return u, ok
}
