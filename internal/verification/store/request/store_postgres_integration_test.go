//go:build integration

package request

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ip-fomin/LaborX-backend/internal/verification/models"
	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
	"github.com/ip-fomin/LaborX-backend/pkg/platform/sentinel"
	"github.com/ip-fomin/LaborX-backend/pkg/testutil/containers"
)

func newRequest(accountID id.AccountID, level models.Level, payload models.Payload) *models.VerificationRequest {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.VerificationRequest{
		ID:        id.RequestID(uuid.New()),
		AccountID: accountID,
		Level:     level,
		Status:    models.StatusCreated,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPostgresRequestStore(t *testing.T) {
	pg := containers.NewPostgresContainer(t, Schema)
	store := NewPostgresStore(pg.Pool)
	ctx := context.Background()
	accountID := id.AccountID(uuid.New())

	first := newRequest(accountID, models.LevelIdentity, models.Level1Payload{UserName: "alice"})
	require.NoError(t, store.Create(ctx, first))

	t.Run("one active request per level", func(t *testing.T) {
		dup := newRequest(accountID, models.LevelIdentity, models.Level1Payload{UserName: "alice2"})
		assert.ErrorIs(t, store.Create(ctx, dup), sentinel.ErrConflict)
	})

	t.Run("find active round trips the payload", func(t *testing.T) {
		found, err := store.FindActive(ctx, accountID, models.LevelIdentity)
		require.NoError(t, err)
		assert.Equal(t, first.ID, found.ID)
		assert.Equal(t, models.Level1Payload{UserName: "alice"}, found.Payload)
	})

	t.Run("decided request frees the slot", func(t *testing.T) {
		first.Status = models.StatusApproved
		require.NoError(t, store.Save(ctx, first))

		_, err := store.FindActive(ctx, accountID, models.LevelIdentity)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		replacement := newRequest(accountID, models.LevelIdentity, models.Level1Payload{UserName: "alice3"})
		require.NoError(t, store.Create(ctx, replacement))
	})

	t.Run("list active orders by level", func(t *testing.T) {
		contact := newRequest(accountID, models.LevelContact, models.Level2Payload{Email: "alice@example.com"})
		require.NoError(t, store.Create(ctx, contact))

		active, err := store.ListActive(ctx, accountID)
		require.NoError(t, err)
		require.Len(t, active, 2)
		assert.Equal(t, models.LevelIdentity, active[0].Level)
		assert.Equal(t, models.LevelContact, active[1].Level)
	})
}
