// Package store defines the persistence contracts for accounts and
// signatures. Stores return sentinel errors; the service translates them
// into domain errors.
package store

import (
	"context"

	"github.com/ip-fomin/LaborX-backend/internal/identity/models"
	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
)

// Error contract: all store methods return sentinel.ErrNotFound when the
// requested entity does not exist, sentinel.ErrConflict when a unique key is
// already taken, and wrapped infrastructure errors otherwise.

type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error)
	Save(ctx context.Context, account *models.Account) error
}

type SignatureStore interface {
	Create(ctx context.Context, signature *models.Signature) error
	// FindByTypeValue looks up the unique (type, value) binding.
	FindByTypeValue(ctx context.Context, sigType, value string) (*models.Signature, error)
	// FindByValues returns all signatures of the given type matching any of
	// the values, in one query. Unmatched values produce no entry.
	FindByValues(ctx context.Context, sigType string, values []string) ([]*models.Signature, error)
}
