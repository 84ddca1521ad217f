package auth

import (
	"context"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// Identity is the verified caller triple attached to every authenticated request.
type Identity struct {
	UserID   string          `json:"user_id"`
	Role     models.UserRole `json:"role"`
	TenantID uint            `json:"tenant_id"`
}

func (i Identity) HasRole(roles ...models.UserRole) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

func (i Identity) IsZero() bool {
	return i.UserID == "" || i.TenantID == 0
}

type ctxKey int

const identityKey ctxKey = iota

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
