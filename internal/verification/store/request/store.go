// Package request persists verification requests. Stores return sentinel
// errors; the service translates them into domain errors.
package request

import (
	"context"

	"github.com/ip-fomin/LaborX-backend/internal/verification/models"
	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
)

type Store interface {
	Create(ctx context.Context, request *models.VerificationRequest) error
	// FindActive returns the single request for (account, level) in
	// "created" status, or sentinel.ErrNotFound.
	FindActive(ctx context.Context, accountID id.AccountID, level models.Level) (*models.VerificationRequest, error)
	// ListActive returns all "created" requests for an account, ordered by
	// level.
	ListActive(ctx context.Context, accountID id.AccountID) ([]*models.VerificationRequest, error)
	Save(ctx context.Context, request *models.VerificationRequest) error
}
