// Package service implements the identity link registry: binding external
// signed addresses to accounts and managing account notification
// preferences.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	identitymetrics "github.com/ip-fomin/LaborX-backend/internal/identity/metrics"
	"github.com/ip-fomin/LaborX-backend/internal/identity/models"
	"github.com/ip-fomin/LaborX-backend/internal/identity/store"
	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
	dErrors "github.com/ip-fomin/LaborX-backend/pkg/domain-errors"
	audit "github.com/ip-fomin/LaborX-backend/pkg/platform/audit"
	"github.com/ip-fomin/LaborX-backend/pkg/platform/sentinel"
	"github.com/ip-fomin/LaborX-backend/pkg/requestcontext"
)

// AuditPublisher records domain events; the concrete publisher lives in
// pkg/platform/audit.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Binding is a resolved address: the owning account plus the matched
// (normalized) address value.
type Binding struct {
	Account *models.Account
	Address string
}

// PreferenceUpdate addresses one boolean at notifications.domain.type.name.
type PreferenceUpdate struct {
	Domain string
	Type   string
	Name   string
	Value  bool
}

type Service struct {
	accounts   store.AccountStore
	signatures store.SignatureStore
	metrics    *identitymetrics.Metrics
	audit      AuditPublisher
	logger     *log.Logger
}

type Option func(*Service)

func WithMetrics(m *identitymetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.audit = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(accounts store.AccountStore, signatures store.SignatureStore, opts ...Option) *Service {
	s := &Service{accounts: accounts, signatures: signatures}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveAccount looks up the account bound to an ethereum address. Fails
// with CodeNotFound if no signature matches; the caller decides whether to
// create-on-demand via EnsureSignature.
func (s *Service) ResolveAccount(ctx context.Context, address string) (*Binding, error) {
	if s.metrics != nil {
		defer s.metrics.ObserveResolve(time.Now())
	}

	value := models.NormalizeAddress(address)
	if value == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "address is required")
	}

	signature, err := s.signatures.FindByTypeValue(ctx, models.SignatureTypeEthereum, value)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no account bound to address %s", value)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "signature lookup failed")
	}

	account, err := s.accounts.FindByID(ctx, signature.AccountID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "account lookup failed")
	}
	return &Binding{Account: account, Address: signature.Value}, nil
}

// ResolveAccounts is the batch form of ResolveAccount: one store query for
// all addresses. Unmatched addresses are silently dropped -- a tolerant
// lookup, kept as the original behaves pending product clarification.
func (s *Service) ResolveAccounts(ctx context.Context, addresses []string) ([]Binding, error) {
	values := make([]string, 0, len(addresses))
	for _, address := range addresses {
		if value := models.NormalizeAddress(address); value != "" {
			values = append(values, value)
		}
	}
	if len(values) == 0 {
		return nil, nil
	}

	signatures, err := s.signatures.FindByValues(ctx, models.SignatureTypeEthereum, values)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "signature lookup failed")
	}

	bindings := make([]Binding, 0, len(signatures))
	for _, signature := range signatures {
		account, err := s.accounts.FindByID(ctx, signature.AccountID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "account lookup failed")
		}
		bindings = append(bindings, Binding{Account: account, Address: signature.Value})
	}
	return bindings, nil
}

// EnsureSignature returns the existing (type, value) binding or atomically
// creates an account named "type:value" plus the signature. Idempotent:
// repeated calls yield the same binding without duplicates, including under
// a concurrent-create race (the loser re-reads the winner's row).
func (s *Service) EnsureSignature(ctx context.Context, sigType, value string) (*models.Signature, error) {
	if sigType == "" || value == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signature type and value are required")
	}
	value = models.NormalizeAddress(value)

	signature, err := s.signatures.FindByTypeValue(ctx, sigType, value)
	if err == nil {
		return s.attachAccount(ctx, signature)
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "signature lookup failed")
	}

	now := requestcontext.Now(ctx)
	account := &models.Account{
		ID:        id.AccountID(uuid.New()),
		Name:      fmt.Sprintf("%s:%s", sigType, value),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "account create failed")
	}

	signature = &models.Signature{
		ID:        id.SignatureID(uuid.New()),
		AccountID: account.ID,
		Type:      sigType,
		Value:     value,
		CreatedAt: now,
	}
	if err := s.signatures.Create(ctx, signature); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost a concurrent-create race; the existing binding wins.
			existing, findErr := s.signatures.FindByTypeValue(ctx, sigType, value)
			if findErr != nil {
				return nil, dErrors.Wrap(findErr, dErrors.CodeInternal, "signature re-read failed")
			}
			return s.attachAccount(ctx, existing)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "signature create failed")
	}

	if s.metrics != nil {
		s.metrics.SignaturesCreated.Inc()
		s.metrics.AccountsCreated.Inc()
	}
	s.emit(ctx, account.ID, audit.ActionAccountCreated, "")
	s.emit(ctx, account.ID, audit.ActionSignatureCreated, sigType)

	// Re-read with the account attached so callers observe the persisted row.
	created, err := s.signatures.FindByTypeValue(ctx, sigType, value)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "signature re-read failed")
	}
	return s.attachAccount(ctx, created)
}

// UpdateNotificationPreference sets one nested boolean and persists the
// account. Pass-through write: domain/type/name are not validated against an
// enumeration here.
func (s *Service) UpdateNotificationPreference(ctx context.Context, accountID id.AccountID, update PreferenceUpdate) (*models.Account, error) {
	if update.Domain == "" || update.Type == "" || update.Name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "preference domain, type, and name are required")
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "account %s not found", accountID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "account lookup failed")
	}

	account.SetNotificationPreference(update.Domain, update.Type, update.Name, update.Value)
	account.UpdatedAt = requestcontext.Now(ctx)
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "account save failed")
	}

	s.emit(ctx, account.ID, audit.ActionPreferenceUpdated, update.Domain+"."+update.Type+"."+update.Name)
	return account, nil
}

func (s *Service) attachAccount(ctx context.Context, signature *models.Signature) (*models.Signature, error) {
	account, err := s.accounts.FindByID(ctx, signature.AccountID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "account lookup failed")
	}
	signature.Account = account
	return signature, nil
}

// emit records an audit event; audit failures are logged, never propagated.
func (s *Service) emit(ctx context.Context, accountID id.AccountID, action audit.Action, purpose string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Emit(ctx, audit.Event{
		AccountID: accountID,
		Action:    string(action),
		Purpose:   purpose,
		RequestID: requestcontext.RequestID(ctx),
		Device:    requestcontext.Device(ctx),
	})
	if err != nil && s.logger != nil {
		s.logger.Printf("identity: audit emit failed: %v", err)
	}
}
