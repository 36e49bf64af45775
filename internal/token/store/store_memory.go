package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/ip-fomin/LaborX-backend/internal/token/models"
	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
	"github.com/ip-fomin/LaborX-backend/pkg/platform/sentinel"
)

type tokenKey struct {
	accountID id.AccountID
	purpose   string
}

type InMemoryStore struct {
	mu     sync.RWMutex
	tokens map[tokenKey]models.Token
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tokens: make(map[tokenKey]models.Token)}
}

func (s *InMemoryStore) FindByScope(_ context.Context, accountID id.AccountID, purpose string) (*models.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if token, ok := s.tokens[tokenKey{accountID, purpose}]; ok {
		copied := token
		return &copied, nil
	}
	return nil, fmt.Errorf("token (%s, %s): %w", accountID, purpose, sentinel.ErrNotFound)
}

func (s *InMemoryStore) Upsert(_ context.Context, token *models.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenKey{token.AccountID, token.Purpose}] = *token
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, accountID id.AccountID, purpose string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tokenKey{accountID, purpose}
	if _, ok := s.tokens[key]; !ok {
		return fmt.Errorf("token (%s, %s): %w", accountID, purpose, sentinel.ErrNotFound)
	}
	delete(s.tokens, key)
	return nil
}
