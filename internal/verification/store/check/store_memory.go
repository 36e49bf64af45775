package check

import (
	"context"
	"fmt"
	"sync"

	"github.com/ip-fomin/LaborX-backend/internal/verification/models"
	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
	"github.com/ip-fomin/LaborX-backend/pkg/platform/sentinel"
)

type scopeKey struct {
	accountID id.AccountID
	purpose   models.CheckPurpose
}

// InMemoryStore keys checks by (account, purpose), which makes Replace's
// supersede-the-prior semantics a plain map write.
type InMemoryStore struct {
	mu     sync.RWMutex
	checks map[scopeKey]models.OneTimeCheck
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{checks: make(map[scopeKey]models.OneTimeCheck)}
}

func (s *InMemoryStore) Replace(_ context.Context, check *models.OneTimeCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[scopeKey{check.AccountID, check.Purpose}] = *check
	return nil
}

func (s *InMemoryStore) FindMatch(_ context.Context, accountID id.AccountID, purpose models.CheckPurpose, payload, code string) (*models.OneTimeCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	check, ok := s.checks[scopeKey{accountID, purpose}]
	if !ok || check.Payload != payload || check.Code != code {
		return nil, fmt.Errorf("check (%s, %s): %w", accountID, purpose, sentinel.ErrNotFound)
	}
	copied := check
	return &copied, nil
}

func (s *InMemoryStore) Consume(_ context.Context, checkID id.CheckID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, check := range s.checks {
		if check.ID == checkID {
			delete(s.checks, key)
			return nil
		}
	}
	return fmt.Errorf("check %s: %w", checkID, sentinel.ErrNotFound)
}
