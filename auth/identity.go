// Package auth carries the authenticated identity through a request.
//
// Authentication happens upstream (the API Gateway authorizer); this
// package only transports the resulting claims. There is no ambient
// session state: every service call that needs to know who is calling
// takes the identity from the request context explicitly.
package auth

import "context"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is the resolved caller of one request.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

func (id Identity) IsAdmin() bool { return id.Role == RoleAdmin }

type ctxKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity on ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// FromClaims builds an identity from authorizer claims. The role comes
// from "custom:role" when present, then "role", and defaults to user:
// nobody becomes an admin by omission.
func FromClaims(claims map[string]interface{}) (Identity, bool) {
	str := func(key string) string {
		v, _ := claims[key].(string)
		return v
	}
	id := Identity{
		UserID: str("sub"),
		Email:  str("email"),
		Role:   str("custom:role"),
	}
	if id.Role == "" {
		id.Role = str("role")
	}
	if id.Role == "" {
		id.Role = RoleUser
	}
	return id, id.UserID != ""
}
