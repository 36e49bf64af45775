package request

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ip-fomin/LaborX-backend/internal/verification/models"
	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
	"github.com/ip-fomin/LaborX-backend/pkg/platform/sentinel"
)

// InMemoryStore keeps verification requests in memory for tests/dev. The
// single map lock makes the one-active-request-per-(account, level)
// invariant trivially atomic within one call.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.RequestID]models.VerificationRequest
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[id.RequestID]models.VerificationRequest)}
}

func (s *InMemoryStore) Create(_ context.Context, request *models.VerificationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.requests {
		if existing.AccountID == request.AccountID &&
			existing.Level == request.Level &&
			existing.Status == models.StatusCreated &&
			request.Status == models.StatusCreated {
			return fmt.Errorf("active request for (account %s, level %d): %w",
				request.AccountID, request.Level, sentinel.ErrConflict)
		}
	}
	s.requests[request.ID] = *request
	return nil
}

func (s *InMemoryStore) FindActive(_ context.Context, accountID id.AccountID, level models.Level) (*models.VerificationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, request := range s.requests {
		if request.AccountID == accountID && request.Level == level && request.Status == models.StatusCreated {
			copied := request
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("active request for (account %s, level %d): %w", accountID, level, sentinel.ErrNotFound)
}

func (s *InMemoryStore) ListActive(_ context.Context, accountID id.AccountID) ([]*models.VerificationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []*models.VerificationRequest
	for _, request := range s.requests {
		if request.AccountID == accountID && request.Status == models.StatusCreated {
			copied := request
			active = append(active, &copied)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Level < active[j].Level })
	return active, nil
}

func (s *InMemoryStore) Save(_ context.Context, request *models.VerificationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[request.ID]; !ok {
		return fmt.Errorf("request %s: %w", request.ID, sentinel.ErrNotFound)
	}
	s.requests[request.ID] = *request
	return nil
}
