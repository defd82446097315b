// internal/common/auth/identity.go
package auth

import "context"

// Role is the platform role carried by an authenticated session.
type Role string

const (
	RoleTalent   Role = "talent"
	RoleEmployer Role = "employer"
	RoleAdmin    Role = "admin"
)

// Identity is the authenticated caller, threaded into every core operation
// through the request context rather than ambient state.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

type contextKey struct{}

// WithIdentity returns a context carrying the given identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFrom extracts the identity from ctx. The second return value is
// false when no identity is present (unauthenticated request).
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	if !ok || id == nil {
		return nil, false
	}
	return id, true
}
