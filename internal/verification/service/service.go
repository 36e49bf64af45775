// Package service implements the verification workflow: leveled submission
// requests, one-time contact confirmation codes, and the level-2
// contact-ownership flow.
package service

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	identitymodels "github.com/ip-fomin/LaborX-backend/internal/identity/models"
	"github.com/ip-fomin/LaborX-backend/internal/notify"
	verificationmetrics "github.com/ip-fomin/LaborX-backend/internal/verification/metrics"
	"github.com/ip-fomin/LaborX-backend/internal/verification/models"
	checkstore "github.com/ip-fomin/LaborX-backend/internal/verification/store/check"
	requeststore "github.com/ip-fomin/LaborX-backend/internal/verification/store/request"
	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
	dErrors "github.com/ip-fomin/LaborX-backend/pkg/domain-errors"
	audit "github.com/ip-fomin/LaborX-backend/pkg/platform/audit"
	"github.com/ip-fomin/LaborX-backend/pkg/platform/sentinel"
	"github.com/ip-fomin/LaborX-backend/pkg/requestcontext"
)

// AccountSource looks up accounts owned by the identity module. The workflow
// needs the account's name for email salutations and its stored contacts for
// first-submission confirmation carry-over.
type AccountSource interface {
	FindByID(ctx context.Context, accountID id.AccountID) (*identitymodels.Account, error)
}

// AuditPublisher records domain events; the concrete publisher lives in
// pkg/platform/audit.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	requests   requeststore.Store
	checks     checkstore.Store
	accounts   AccountSource
	dispatcher notify.Dispatcher
	baseURL    string
	metrics    *verificationmetrics.Metrics
	audit      AuditPublisher
	logger     *log.Logger
	tracer     trace.Tracer
}

type Option func(*Service)

func WithDispatcher(d notify.Dispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

func WithBaseURL(baseURL string) Option {
	return func(s *Service) { s.baseURL = baseURL }
}

func WithMetrics(m *verificationmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.audit = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(requests requeststore.Store, checks checkstore.Store, accounts AccountSource, opts ...Option) *Service {
	s := &Service{
		requests: requests,
		checks:   checks,
		accounts: accounts,
		tracer:   otel.Tracer("verification"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit upserts the account's verification request at the given level.
// Resubmission replaces the pending payload and voids any review verdict;
// levels without a pending request get a fresh one. Level 2 has its own
// entry point because submission there has contact side effects.
func (s *Service) Submit(ctx context.Context, accountID id.AccountID, level models.Level, payload models.Payload) (*models.VerificationRequest, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Submit",
		trace.WithAttributes(attribute.Int("level", int(level))))
	defer span.End()

	if level == models.LevelContact {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "level 2 must be submitted through the contact flow")
	}
	request, err := s.upsertRequest(ctx, accountID, level, payload)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return request, nil
}

// SubmitLevel1 submits identity basics.
func (s *Service) SubmitLevel1(ctx context.Context, accountID id.AccountID, payload models.Level1Payload) (*models.VerificationRequest, error) {
	return s.Submit(ctx, accountID, models.LevelIdentity, payload)
}

// SubmitLevel3 submits document proof.
func (s *Service) SubmitLevel3(ctx context.Context, accountID id.AccountID, payload models.Level3Payload) (*models.VerificationRequest, error) {
	return s.Submit(ctx, accountID, models.LevelDocument, payload)
}

// SubmitLevel4 submits address proof.
func (s *Service) SubmitLevel4(ctx context.Context, accountID id.AccountID, payload models.Level4Payload) (*models.VerificationRequest, error) {
	return s.Submit(ctx, accountID, models.LevelAddress, payload)
}

// upsertRequest holds the shared submission mechanics for every level.
func (s *Service) upsertRequest(ctx context.Context, accountID id.AccountID, level models.Level, payload models.Payload) (*models.VerificationRequest, error) {
	if !level.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown verification level %d", level)
	}
	if payload == nil || payload.Level() != level {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "payload does not match level %d", level)
	}

	now := requestcontext.Now(ctx)
	request, err := s.requests.FindActive(ctx, accountID, level)
	switch {
	case err == nil:
		request.Payload = payload
		request.ValidationComment = ""
		request.IsValid = false
		request.UpdatedAt = now
		if err := s.requests.Save(ctx, request); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "request save failed")
		}
	case errors.Is(err, sentinel.ErrNotFound):
		request = &models.VerificationRequest{
			ID:        id.RequestID(uuid.New()),
			AccountID: accountID,
			Level:     level,
			Status:    models.StatusCreated,
			Payload:   payload,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.requests.Create(ctx, request); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "request create failed")
		}
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "request lookup failed")
	}

	if s.metrics != nil {
		s.metrics.Submissions.WithLabelValues(strconv.Itoa(int(level))).Inc()
	}
	s.emit(ctx, accountID, audit.Event{
		Action: string(audit.ActionLevelSubmitted),
		Level:  int(level),
	})
	return request, nil
}

// ListActive returns the account's pending requests, ordered by level.
func (s *Service) ListActive(ctx context.Context, accountID id.AccountID) ([]*models.VerificationRequest, error) {
	requests, err := s.requests.ListActive(ctx, accountID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "request list failed")
	}
	return requests, nil
}

// activeContactRequest loads the pending level-2 request along with its
// typed payload.
func (s *Service) activeContactRequest(ctx context.Context, accountID id.AccountID) (*models.VerificationRequest, models.Level2Payload, error) {
	request, err := s.requests.FindActive(ctx, accountID, models.LevelContact)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.Level2Payload{}, dErrors.Newf(dErrors.CodePrecondition, "account %s has no pending contact verification", accountID)
		}
		return nil, models.Level2Payload{}, dErrors.Wrap(err, dErrors.CodeInternal, "request lookup failed")
	}
	payload, ok := request.ContactPayload()
	if !ok {
		return nil, models.Level2Payload{}, dErrors.New(dErrors.CodeInternal, "contact request carries a foreign payload")
	}
	return request, payload, nil
}

// emit records an audit event; audit failures are logged, never propagated.
func (s *Service) emit(ctx context.Context, accountID id.AccountID, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.AccountID = accountID
	event.RequestID = requestcontext.RequestID(ctx)
	event.Device = requestcontext.Device(ctx)
	if err := s.audit.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.Printf("verification: audit emit failed: %v", err)
	}
}
