package models

import (
	"time"

	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
)

// Token is a purpose-scoped credential held for an account. An account
// holds at most one token per purpose; upserting for an existing scope
// refreshes the token in place, keeping its ID stable.
type Token struct {
	ID        id.TokenID
	AccountID id.AccountID
	Purpose   string
	// Value is the signed JWT handed to clients.
	Value       string
	CreatedAt   time.Time
	RefreshedAt time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the token's sliding expiry has passed.
func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}
