// Package claims carries the caller identity the checkout operations act
// for. The API decides authorization; these claims only gate requests the
// caller could never be allowed to send.
package claims

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

var (
	ErrMissing   = errors.New("claim value missing from context")
	ErrForbidden = errors.New("role not allowed")
	ErrBadRole   = errors.New("unknown role")
)

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleUser:
		return r, nil
	}
	return "", fmt.Errorf("role %q: %w", s, ErrBadRole)
}

// Claims identifies who is driving the checkout calls.
type Claims struct {
	UserID string
	Role   Role
}

type ctxKey int

const claimsKey ctxKey = 1

func Set(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func Get(ctx context.Context) (Claims, error) {
	v, ok := ctx.Value(claimsKey).(Claims)
	if !ok {
		return Claims{}, ErrMissing
	}
	return v, nil
}

// Require fails unless the caller in ctx holds role.
func Require(ctx context.Context, role Role) error {
	c, err := Get(ctx)
	if err != nil {
		return err
	}
	if c.Role != role {
		return fmt.Errorf("user[%s] has role %q, %q required: %w", c.UserID, c.Role, role, ErrForbidden)
	}
	return nil
}
