package domain

import (
	"context"
	"errors"
)

// Operator is an authenticated caller of the administrative API.
type Operator struct {
	ID   string
	Role Role
}

// Role represents an operator's access level
type Role string

const (
	// RoleAdmin can also deactivate accounts
	RoleAdmin Role = "admin"

	// RoleOperator can create intents, post ledger operations and manage split configurations
	RoleOperator Role = "operator"

	// RoleViewer can only read balances and history
	RoleViewer Role = "viewer"
)

var validRoles = map[Role]bool{
	RoleAdmin:    true,
	RoleOperator: true,
	RoleViewer:   true,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// Allows reports whether r grants at least the access of min.
func (r Role) Allows(min Role) bool {
	switch min {
	case RoleAdmin:
		return r == RoleAdmin
	case RoleOperator:
		return r == RoleAdmin || r == RoleOperator
	default:
		return r.IsValid()
	}
}

// Authentication errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
)

type operatorKey struct{}

// ContextWithOperator attaches the authenticated operator to ctx.
func ContextWithOperator(ctx context.Context, op *Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// OperatorFromContext returns the operator attached to ctx, if any.
func OperatorFromContext(ctx context.Context) (*Operator, bool) {
	op, ok := ctx.Value(operatorKey{}).(*Operator)
	return op, ok
}

// ActorID returns the operator ID on ctx, or "system".
func ActorID(ctx context.Context) string {
	if op, ok := OperatorFromContext(ctx); ok && op.ID != "" {
		return op.ID
	}
	return "system"
}
