package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ip-fomin/LaborX-backend/internal/notify"
	"github.com/ip-fomin/LaborX-backend/internal/verification/models"
	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
	dErrors "github.com/ip-fomin/LaborX-backend/pkg/domain-errors"
	audit "github.com/ip-fomin/LaborX-backend/pkg/platform/audit"
	"github.com/ip-fomin/LaborX-backend/pkg/platform/sentinel"
	"github.com/ip-fomin/LaborX-backend/pkg/requestcontext"
)

// Level2Result is the outcome of a contact submission. PhoneCheck is set
// when a phone confirmation code was issued; phone codes are handed back to
// the caller for out-of-band delivery instead of being dispatched here.
type Level2Result struct {
	Request    *models.VerificationRequest
	PhoneCheck *models.OneTimeCheck
}

// ConfirmSubmission carries the codes the user typed in. Either may be
// empty; an empty code means that channel is not being attempted.
type ConfirmSubmission struct {
	EmailCode string
	PhoneCode string
}

// ConfirmResult reports per-channel what was attempted and what succeeded.
// A channel can be tried and fail without affecting the other.
type ConfirmResult struct {
	IsEmailTried    bool
	IsEmailVerified bool
	IsPhoneTried    bool
	IsPhoneVerified bool
}

// SubmitLevel2 upserts the contact verification request and kicks off
// confirmation for every channel not already proven. Confirmation flags are
// owned by the workflow: on resubmission a flag survives only when its
// contact value is unchanged from the prior pending request, and submitted
// flags are ignored. On first creation a submitted flag is honored only for
// a contact that matches the account's stored value; anything else starts
// unconfirmed.
func (s *Service) SubmitLevel2(ctx context.Context, accountID id.AccountID, payload models.Level2Payload) (*Level2Result, error) {
	ctx, span := s.tracer.Start(ctx, "verification.SubmitLevel2")
	defer span.End()

	prior, err := s.requests.FindActive(ctx, accountID, models.LevelContact)
	switch {
	case err == nil:
		priorPayload, ok := prior.ContactPayload()
		if !ok {
			return nil, dErrors.New(dErrors.CodeInternal, "contact request carries a foreign payload")
		}
		payload.IsEmailConfirmed = priorPayload.IsEmailConfirmed && payload.Email == priorPayload.Email
		payload.IsPhoneConfirmed = priorPayload.IsPhoneConfirmed && payload.Phone == priorPayload.Phone
	case errors.Is(err, sentinel.ErrNotFound):
		account, err := s.accounts.FindByID(ctx, accountID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Newf(dErrors.CodeNotFound, "account %s not found", accountID)
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "account lookup failed")
		}
		payload.IsEmailConfirmed = payload.IsEmailConfirmed && payload.Email != "" && payload.Email == account.Email
		payload.IsPhoneConfirmed = payload.IsPhoneConfirmed && payload.Phone != "" && payload.Phone == account.Phone
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "request lookup failed")
	}

	request, err := s.upsertRequest(ctx, accountID, models.LevelContact, payload)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := &Level2Result{Request: request}
	if !payload.IsPhoneConfirmed && payload.Phone != "" {
		check, err := s.TriggerPhoneConfirmation(ctx, accountID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		result.PhoneCheck = check
	}
	if !payload.IsEmailConfirmed && payload.Email != "" {
		if err := s.TriggerEmailConfirmation(ctx, accountID); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}
	return result, nil
}

// TriggerPhoneConfirmation issues a fresh phone code for the pending
// contact request, superseding any prior phone check. The check is returned
// to the caller; SMS delivery happens outside this core.
func (s *Service) TriggerPhoneConfirmation(ctx context.Context, accountID id.AccountID) (*models.OneTimeCheck, error) {
	_, payload, err := s.pendingContact(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if payload.Phone == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "contact request has no phone to confirm")
	}
	if payload.IsPhoneConfirmed {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "phone is already confirmed")
	}
	return s.issueCheck(ctx, accountID, models.PurposeConfirmPhone, payload.Phone)
}

// TriggerEmailConfirmation issues a fresh email code for the pending
// contact request and dispatches the confirmation message. The code is
// installed before dispatch so a delivery failure leaves it redeemable; the
// caller can retry the trigger or confirm out of band.
func (s *Service) TriggerEmailConfirmation(ctx context.Context, accountID id.AccountID) error {
	_, payload, err := s.pendingContact(ctx, accountID)
	if err != nil {
		return err
	}
	if payload.Email == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "contact request has no email to confirm")
	}
	if payload.IsEmailConfirmed {
		return dErrors.New(dErrors.CodeInvariantViolation, "email is already confirmed")
	}

	check, err := s.issueCheck(ctx, accountID, models.PurposeConfirmEmail, payload.Email)
	if err != nil {
		return err
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "account lookup failed")
	}
	subject, html := notify.ConfirmationEmail(s.baseURL, account.Name, check.Code)

	if s.dispatcher == nil {
		return dErrors.New(dErrors.CodeUnavailable, "no mail dispatcher configured")
	}
	if err := s.dispatcher.Send(ctx, notify.Message{To: payload.Email, Subject: subject, HTML: html}); err != nil {
		if s.metrics != nil {
			s.metrics.DispatchFailures.Inc()
		}
		s.emit(ctx, accountID, audit.Event{
			Action:  string(audit.ActionDispatchFailed),
			Purpose: string(models.PurposeConfirmEmail),
			Reason:  err.Error(),
		})
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "confirmation email dispatch failed")
	}
	return nil
}

// ConfirmLevel2 redeems submitted confirmation codes against the pending
// contact request. Each channel is judged independently; a matched code is
// consumed exactly once, a mismatched code consumes nothing and leaves the
// issued check valid.
func (s *Service) ConfirmLevel2(ctx context.Context, accountID id.AccountID, submission ConfirmSubmission) (*ConfirmResult, error) {
	ctx, span := s.tracer.Start(ctx, "verification.ConfirmLevel2")
	defer span.End()

	request, payload, err := s.activeContactRequest(ctx, accountID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := &ConfirmResult{}
	changed := false

	if submission.EmailCode != "" {
		result.IsEmailTried = true
		verified, err := s.redeem(ctx, accountID, models.PurposeConfirmEmail, payload.Email, submission.EmailCode)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if verified {
			payload.IsEmailConfirmed = true
			result.IsEmailVerified = true
			changed = true
		}
	}
	if submission.PhoneCode != "" {
		result.IsPhoneTried = true
		verified, err := s.redeem(ctx, accountID, models.PurposeConfirmPhone, payload.Phone, submission.PhoneCode)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if verified {
			payload.IsPhoneConfirmed = true
			result.IsPhoneVerified = true
			changed = true
		}
	}

	if changed {
		request.Payload = payload
		request.UpdatedAt = requestcontext.Now(ctx)
		if err := s.requests.Save(ctx, request); err != nil {
			span.RecordError(err)
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "request save failed")
		}
	}
	return result, nil
}

// pendingContact is activeContactRequest with trigger-time semantics:
// issuing a code for an account with no pending contact request is a state
// violation, not a missed precondition.
func (s *Service) pendingContact(ctx context.Context, accountID id.AccountID) (*models.VerificationRequest, models.Level2Payload, error) {
	request, payload, err := s.activeContactRequest(ctx, accountID)
	if dErrors.HasCode(err, dErrors.CodePrecondition) {
		return nil, models.Level2Payload{}, dErrors.Newf(dErrors.CodeInvariantViolation, "account %s has no pending contact verification", accountID)
	}
	return request, payload, err
}

func (s *Service) issueCheck(ctx context.Context, accountID id.AccountID, purpose models.CheckPurpose, contact string) (*models.OneTimeCheck, error) {
	code, err := models.GenerateCode()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "code generation failed")
	}
	check := &models.OneTimeCheck{
		ID:        id.CheckID(uuid.New()),
		AccountID: accountID,
		Purpose:   purpose,
		Payload:   contact,
		Code:      code,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.checks.Replace(ctx, check); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check install failed")
	}

	if s.metrics != nil {
		s.metrics.ChecksIssued.WithLabelValues(string(purpose)).Inc()
	}
	s.emit(ctx, accountID, audit.Event{
		Action:  string(audit.ActionCheckIssued),
		Purpose: string(purpose),
	})
	return check, nil
}

// redeem matches and consumes a single code. A mismatch is a clean false,
// not an error; only infrastructure failures propagate.
func (s *Service) redeem(ctx context.Context, accountID id.AccountID, purpose models.CheckPurpose, contact, code string) (bool, error) {
	channel := "email"
	if purpose == models.PurposeConfirmPhone {
		channel = "phone"
	}

	check, err := s.checks.FindMatch(ctx, accountID, purpose, contact, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			if s.metrics != nil {
				s.metrics.Confirmations.WithLabelValues(channel, "rejected").Inc()
			}
			s.emit(ctx, accountID, audit.Event{
				Action:  string(audit.ActionConfirmRejected),
				Purpose: string(purpose),
			})
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "check lookup failed")
	}
	if err := s.checks.Consume(ctx, check.ID); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "check consume failed")
	}

	if s.metrics != nil {
		s.metrics.Confirmations.WithLabelValues(channel, "confirmed").Inc()
	}
	s.emit(ctx, accountID, audit.Event{
		Action:  string(audit.ActionContactConfirmed),
		Purpose: string(purpose),
	})
	return true, nil
}
