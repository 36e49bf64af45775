// Package service implements the token vault: purpose-scoped JWTs with
// stable identity across refreshes and explicit revocation.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	tokenmetrics "github.com/ip-fomin/LaborX-backend/internal/token/metrics"
	"github.com/ip-fomin/LaborX-backend/internal/token/models"
	"github.com/ip-fomin/LaborX-backend/internal/token/store"
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

type Service struct {
	tokens     store.Store
	signingKey []byte
	ttl        time.Duration
	metrics    *tokenmetrics.Metrics
	audit      AuditPublisher
	logger     *log.Logger
}

type Option func(*Service)

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

func WithMetrics(m *tokenmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.audit = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

const defaultTTL = 24 * time.Hour

func NewService(tokens store.Store, signingKey []byte, opts ...Option) *Service {
	s := &Service{tokens: tokens, signingKey: signingKey, ttl: defaultTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Find returns the token held for (account, purpose). Expired tokens are
// reported as not found; Upsert mints a replacement.
func (s *Service) Find(ctx context.Context, accountID id.AccountID, purpose string) (*models.Token, error) {
	if purpose == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "token purpose is required")
	}
	token, err := s.tokens.FindByScope(ctx, accountID, purpose)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no %s token for account %s", purpose, accountID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "token lookup failed")
	}
	if token.Expired(requestcontext.Now(ctx)) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "no %s token for account %s", purpose, accountID)
	}
	return token, nil
}

// Upsert mints a token for (account, purpose), or refreshes the existing
// one in place: same ID, new signed value, expiry pushed out by the TTL.
func (s *Service) Upsert(ctx context.Context, accountID id.AccountID, purpose string) (*models.Token, error) {
	if purpose == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "token purpose is required")
	}

	now := requestcontext.Now(ctx)
	token, err := s.tokens.FindByScope(ctx, accountID, purpose)
	refreshed := err == nil && !token.Expired(now)
	switch {
	case refreshed:
		token.RefreshedAt = now
	case err == nil || errors.Is(err, sentinel.ErrNotFound):
		token = &models.Token{
			ID:        id.TokenID(uuid.New()),
			AccountID: accountID,
			Purpose:   purpose,
			CreatedAt: now,
		}
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "token lookup failed")
	}
	token.ExpiresAt = now.Add(s.ttl)

	value, err := s.mint(token, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "token signing failed")
	}
	token.Value = value

	if err := s.tokens.Upsert(ctx, token); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "token save failed")
	}

	action := audit.ActionTokenIssued
	if refreshed {
		action = audit.ActionTokenRefreshed
	}
	if s.metrics != nil {
		if refreshed {
			s.metrics.Refreshed.WithLabelValues(purpose).Inc()
		} else {
			s.metrics.Issued.WithLabelValues(purpose).Inc()
		}
	}
	s.emit(ctx, accountID, action, purpose)
	return token, nil
}

// Revoke removes the scope's token and returns what was revoked. Revoking
// an absent scope is CodeNotFound.
func (s *Service) Revoke(ctx context.Context, accountID id.AccountID, purpose string) (*models.Token, error) {
	if purpose == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "token purpose is required")
	}

	token, err := s.tokens.FindByScope(ctx, accountID, purpose)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no %s token for account %s", purpose, accountID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "token lookup failed")
	}
	if err := s.tokens.Delete(ctx, accountID, purpose); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no %s token for account %s", purpose, accountID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "token delete failed")
	}

	if s.metrics != nil {
		s.metrics.Revoked.WithLabelValues(purpose).Inc()
	}
	s.emit(ctx, accountID, audit.ActionTokenRevoked, purpose)
	return token, nil
}

// FindByValue resolves a signed value to its stored token. The value must
// verify and still be the one held for its (account, purpose) scope; a
// superseded value reads as not found even though its signature checks out.
func (s *Service) FindByValue(ctx context.Context, value string) (*models.Token, error) {
	accountID, purpose, err := s.scopeOf(value)
	if err != nil {
		return nil, err
	}
	token, err := s.Find(ctx, accountID, purpose)
	if err != nil {
		return nil, err
	}
	if token.Value != value {
		return nil, dErrors.New(dErrors.CodeNotFound, "token has been superseded")
	}
	return token, nil
}

// RevokeByValue is Revoke keyed by the signed value instead of the scope.
func (s *Service) RevokeByValue(ctx context.Context, value string) (*models.Token, error) {
	token, err := s.FindByValue(ctx, value)
	if err != nil {
		return nil, err
	}
	return s.Revoke(ctx, token.AccountID, token.Purpose)
}

func (s *Service) scopeOf(value string) (id.AccountID, string, error) {
	claims, err := s.Verify(value)
	if err != nil {
		return id.AccountID{}, "", err
	}
	sub, _ := claims["sub"].(string)
	purpose, _ := claims["purpose"].(string)
	accountID, err := id.ParseAccountID(sub)
	if err != nil {
		return id.AccountID{}, "", dErrors.Wrap(err, dErrors.CodeUnauthorized, "token subject is not an account")
	}
	if purpose == "" {
		return id.AccountID{}, "", dErrors.New(dErrors.CodeUnauthorized, "token carries no purpose")
	}
	return accountID, purpose, nil
}

// Verify parses and validates a signed value, returning its claims. Used by
// transports that accept the vault's tokens.
func (s *Service) Verify(value string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(value, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.signingKey, nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "token verification failed")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token verification failed")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token carries no claims")
	}
	return claims, nil
}

func (s *Service) mint(token *models.Token, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":     token.AccountID.String(),
		"purpose": token.Purpose,
		"jti":     token.ID.String(),
		"iat":     now.Unix(),
		"exp":     token.ExpiresAt.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
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
		s.logger.Printf("token: audit emit failed: %v", err)
	}
}
