package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ip-fomin/LaborX-backend/internal/token/store"
	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
	dErrors "github.com/ip-fomin/LaborX-backend/pkg/domain-errors"
	"github.com/ip-fomin/LaborX-backend/pkg/requestcontext"
)

var signingKey = []byte("test-signing-key")

func TestUpsert_IssuesThenRefreshes(t *testing.T) {
	service := NewService(store.NewInMemoryStore(), signingKey, WithTTL(time.Hour))
	accountID := id.AccountID(uuid.New())
	ctx := context.Background()

	issued, err := service.Upsert(ctx, accountID, "login")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Value)
	assert.True(t, issued.RefreshedAt.IsZero())

	refreshed, err := service.Upsert(ctx, accountID, "login")
	require.NoError(t, err)
	assert.Equal(t, issued.ID, refreshed.ID, "refresh keeps the token identity")
	assert.False(t, refreshed.RefreshedAt.IsZero())
	assert.False(t, refreshed.ExpiresAt.Before(issued.ExpiresAt))
}

func TestUpsert_ScopesArePerPurpose(t *testing.T) {
	service := NewService(store.NewInMemoryStore(), signingKey)
	accountID := id.AccountID(uuid.New())
	ctx := context.Background()

	login, err := service.Upsert(ctx, accountID, "login")
	require.NoError(t, err)
	api, err := service.Upsert(ctx, accountID, "api")
	require.NoError(t, err)
	assert.NotEqual(t, login.ID, api.ID)

	found, err := service.Find(ctx, accountID, "login")
	require.NoError(t, err)
	assert.Equal(t, login.ID, found.ID)
}

func TestUpsert_ExpiredTokenGetsFreshIdentity(t *testing.T) {
	service := NewService(store.NewInMemoryStore(), signingKey, WithTTL(time.Hour))
	accountID := id.AccountID(uuid.New())

	past := requestcontext.WithTime(context.Background(), time.Now().Add(-2*time.Hour))
	stale, err := service.Upsert(past, accountID, "login")
	require.NoError(t, err)

	ctx := context.Background()
	_, err = service.Find(ctx, accountID, "login")
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound), "expired token reads as absent")

	fresh, err := service.Upsert(ctx, accountID, "login")
	require.NoError(t, err)
	assert.NotEqual(t, stale.ID, fresh.ID)
}

func TestRevoke(t *testing.T) {
	service := NewService(store.NewInMemoryStore(), signingKey)
	accountID := id.AccountID(uuid.New())
	ctx := context.Background()

	_, err := service.Revoke(ctx, accountID, "login")
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))

	issued, err := service.Upsert(ctx, accountID, "login")
	require.NoError(t, err)

	revoked, err := service.Revoke(ctx, accountID, "login")
	require.NoError(t, err)
	assert.Equal(t, issued.ID, revoked.ID, "the revoked token is returned")

	_, err = service.Find(ctx, accountID, "login")
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

func TestFindByValue(t *testing.T) {
	service := NewService(store.NewInMemoryStore(), signingKey, WithTTL(time.Hour))
	accountID := id.AccountID(uuid.New())
	ctx := context.Background()

	issued, err := service.Upsert(ctx, accountID, "login")
	require.NoError(t, err)

	found, err := service.FindByValue(ctx, issued.Value)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, found.ID)

	_, err = service.FindByValue(ctx, "not-a-token")
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestFindByValue_SupersededValueIsGone(t *testing.T) {
	service := NewService(store.NewInMemoryStore(), signingKey, WithTTL(time.Hour))
	accountID := id.AccountID(uuid.New())
	ctx := context.Background()

	past := requestcontext.WithTime(context.Background(), time.Now().Add(-time.Minute))
	first, err := service.Upsert(past, accountID, "login")
	require.NoError(t, err)
	second, err := service.Upsert(ctx, accountID, "login")
	require.NoError(t, err)
	require.NotEqual(t, first.Value, second.Value)

	_, err = service.FindByValue(ctx, first.Value)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))

	revoked, err := service.RevokeByValue(ctx, second.Value)
	require.NoError(t, err)
	assert.Equal(t, second.ID, revoked.ID)
}

func TestVerify(t *testing.T) {
	service := NewService(store.NewInMemoryStore(), signingKey)
	accountID := id.AccountID(uuid.New())
	ctx := context.Background()

	token, err := service.Upsert(ctx, accountID, "login")
	require.NoError(t, err)

	claims, err := service.Verify(token.Value)
	require.NoError(t, err)
	assert.Equal(t, accountID.String(), claims["sub"])
	assert.Equal(t, "login", claims["purpose"])
	assert.Equal(t, token.ID.String(), claims["jti"])

	other := NewService(store.NewInMemoryStore(), []byte("other-key"))
	_, err = other.Verify(token.Value)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}
