// Package check persists one-time confirmation codes. Stores return
// sentinel errors; the service translates them into domain errors.
package check

import (
	"context"

	"github.com/ip-fomin/LaborX-backend/internal/verification/models"
	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
)

type Store interface {
	// Replace installs the check as the single active one for its
	// (account, purpose), atomically invalidating any prior check for that
	// scope.
	Replace(ctx context.Context, check *models.OneTimeCheck) error
	// FindMatch looks up the active check by its full scope: account,
	// purpose, expected payload, and submitted code. Any mismatch is
	// sentinel.ErrNotFound; the check stays untouched.
	FindMatch(ctx context.Context, accountID id.AccountID, purpose models.CheckPurpose, payload, code string) (*models.OneTimeCheck, error)
	// Consume destroys the check. A consumed check can never match again.
	Consume(ctx context.Context, checkID id.CheckID) error
}
