package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/ip-fomin/LaborX-backend/internal/identity/models"
	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
	"github.com/ip-fomin/LaborX-backend/pkg/platform/sentinel"
)

// In-memory stores for tests and development. They intentionally favor
// clarity over performance.

type InMemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[id.AccountID]models.Account
}

func NewInMemoryAccountStore() *InMemoryAccountStore {
	return &InMemoryAccountStore{accounts: make(map[id.AccountID]models.Account)}
}

func (s *InMemoryAccountStore) Create(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.ID]; ok {
		return fmt.Errorf("account %s: %w", account.ID, sentinel.ErrConflict)
	}
	s.accounts[account.ID] = *account
	return nil
}

func (s *InMemoryAccountStore) FindByID(_ context.Context, accountID id.AccountID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if account, ok := s.accounts[accountID]; ok {
		copied := account
		return &copied, nil
	}
	return nil, fmt.Errorf("account %s: %w", accountID, sentinel.ErrNotFound)
}

func (s *InMemoryAccountStore) Save(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.ID]; !ok {
		return fmt.Errorf("account %s: %w", account.ID, sentinel.ErrNotFound)
	}
	s.accounts[account.ID] = *account
	return nil
}

type sigKey struct {
	sigType string
	value   string
}

type InMemorySignatureStore struct {
	mu         sync.RWMutex
	signatures map[sigKey]models.Signature
}

func NewInMemorySignatureStore() *InMemorySignatureStore {
	return &InMemorySignatureStore{signatures: make(map[sigKey]models.Signature)}
}

func (s *InMemorySignatureStore) Create(_ context.Context, signature *models.Signature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sigKey{signature.Type, signature.Value}
	if _, ok := s.signatures[key]; ok {
		return fmt.Errorf("signature (%s, %s): %w", signature.Type, signature.Value, sentinel.ErrConflict)
	}
	stored := *signature
	stored.Account = nil
	s.signatures[key] = stored
	return nil
}

func (s *InMemorySignatureStore) FindByTypeValue(_ context.Context, sigType, value string) (*models.Signature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if signature, ok := s.signatures[sigKey{sigType, value}]; ok {
		copied := signature
		return &copied, nil
	}
	return nil, fmt.Errorf("signature (%s, %s): %w", sigType, value, sentinel.ErrNotFound)
}

func (s *InMemorySignatureStore) FindByValues(_ context.Context, sigType string, values []string) ([]*models.Signature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]*models.Signature, 0, len(values))
	for _, value := range values {
		if signature, ok := s.signatures[sigKey{sigType, value}]; ok {
			copied := signature
			matches = append(matches, &copied)
		}
	}
	return matches, nil
}
