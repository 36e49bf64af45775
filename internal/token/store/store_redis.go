package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ip-fomin/LaborX-backend/internal/token/models"
	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
	"github.com/ip-fomin/LaborX-backend/pkg/platform/sentinel"
)

// RedisStore keeps one key per (account, purpose) scope, expiring with the
// token so revocation-by-TTL needs no sweeper.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

type storedToken struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"accountId"`
	Purpose     string    `json:"purpose"`
	Value       string    `json:"value"`
	CreatedAt   time.Time `json:"createdAt"`
	RefreshedAt time.Time `json:"refreshedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func scopeKey(accountID id.AccountID, purpose string) string {
	return fmt.Sprintf("token:%s:%s", accountID, purpose)
}

func (s *RedisStore) FindByScope(ctx context.Context, accountID id.AccountID, purpose string) (*models.Token, error) {
	raw, err := s.client.Get(ctx, scopeKey(accountID, purpose)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("token (%s, %s): %w", accountID, purpose, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}

	var stored storedToken
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	tokenID, err := id.ParseTokenID(stored.ID)
	if err != nil {
		return nil, fmt.Errorf("corrupt token record: %w", err)
	}
	ownerID, err := id.ParseAccountID(stored.AccountID)
	if err != nil {
		return nil, fmt.Errorf("corrupt token record: %w", err)
	}
	return &models.Token{
		ID:          tokenID,
		AccountID:   ownerID,
		Purpose:     stored.Purpose,
		Value:       stored.Value,
		CreatedAt:   stored.CreatedAt,
		RefreshedAt: stored.RefreshedAt,
		ExpiresAt:   stored.ExpiresAt,
	}, nil
}

func (s *RedisStore) Upsert(ctx context.Context, token *models.Token) error {
	raw, err := json.Marshal(storedToken{
		ID:          token.ID.String(),
		AccountID:   token.AccountID.String(),
		Purpose:     token.Purpose,
		Value:       token.Value,
		CreatedAt:   token.CreatedAt,
		RefreshedAt: token.RefreshedAt,
		ExpiresAt:   token.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	var ttl time.Duration
	if !token.ExpiresAt.IsZero() {
		ttl = time.Until(token.ExpiresAt)
		if ttl <= 0 {
			ttl = time.Second
		}
	}
	if err := s.client.Set(ctx, scopeKey(token.AccountID, token.Purpose), raw, ttl).Err(); err != nil {
		return fmt.Errorf("set token: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, accountID id.AccountID, purpose string) error {
	deleted, err := s.client.Del(ctx, scopeKey(accountID, purpose)).Result()
	if err != nil {
		return fmt.Errorf("del token: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("token (%s, %s): %w", accountID, purpose, sentinel.ErrNotFound)
	}
	return nil
}
