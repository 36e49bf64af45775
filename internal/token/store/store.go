// Package store persists purpose-scoped tokens. Stores return sentinel
// errors; the service translates them into domain errors.
package store

import (
	"context"

	"github.com/ip-fomin/LaborX-backend/internal/token/models"
	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
)

type Store interface {
	// FindByScope returns the token held for (account, purpose), or
	// sentinel.ErrNotFound.
	FindByScope(ctx context.Context, accountID id.AccountID, purpose string) (*models.Token, error)
	// Upsert installs the token as the single one for its scope.
	Upsert(ctx context.Context, token *models.Token) error
	// Delete removes the scope's token; sentinel.ErrNotFound when absent.
	Delete(ctx context.Context, accountID id.AccountID, purpose string) error
}
