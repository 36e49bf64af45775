package httptransport

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	verificationservice "github.com/ip-fomin/LaborX-backend/internal/verification/service"

	"github.com/ip-fomin/LaborX-backend/internal/verification/models"
	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
	dErrors "github.com/ip-fomin/LaborX-backend/pkg/domain-errors"
	"github.com/ip-fomin/LaborX-backend/pkg/platform/httputil"
)

// VerificationService defines the workflow operations the transport exposes.
type VerificationService interface {
	Submit(ctx context.Context, accountID id.AccountID, level models.Level, payload models.Payload) (*models.VerificationRequest, error)
	SubmitLevel2(ctx context.Context, accountID id.AccountID, payload models.Level2Payload) (*verificationservice.Level2Result, error)
	ConfirmLevel2(ctx context.Context, accountID id.AccountID, submission verificationservice.ConfirmSubmission) (*verificationservice.ConfirmResult, error)
	TriggerEmailConfirmation(ctx context.Context, accountID id.AccountID) error
	TriggerPhoneConfirmation(ctx context.Context, accountID id.AccountID) (*models.OneTimeCheck, error)
	ListActive(ctx context.Context, accountID id.AccountID) ([]*models.VerificationRequest, error)
}

type VerificationHandler struct {
	verification VerificationService
	logger       *log.Logger
}

func NewVerificationHandler(verification VerificationService, logger *log.Logger) *VerificationHandler {
	return &VerificationHandler{verification: verification, logger: logger}
}

func (h *VerificationHandler) Register(r chi.Router) {
	r.Route("/accounts/{accountID}/verification", func(r chi.Router) {
		r.Get("/requests", h.handleListRequests)
		r.Post("/levels/{level}", h.handleSubmit)
		r.Post("/confirm", h.handleConfirm)
		r.Post("/triggers/email", h.handleTriggerEmail)
		r.Post("/triggers/phone", h.handleTriggerPhone)
	})
}

type requestResponse struct {
	ID                string         `json:"id"`
	Level             int            `json:"level"`
	Status            string         `json:"status"`
	Payload           models.Payload `json:"payload"`
	ValidationComment string         `json:"validationComment,omitempty"`
	IsValid           bool           `json:"isValid"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

type checkResponse struct {
	ID        string    `json:"id"`
	Purpose   string    `json:"purpose"`
	Contact   string    `json:"contact"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}

func toRequestResponse(request *models.VerificationRequest) requestResponse {
	return requestResponse{
		ID:                request.ID.String(),
		Level:             int(request.Level),
		Status:            string(request.Status),
		Payload:           request.Payload,
		ValidationComment: request.ValidationComment,
		IsValid:           request.IsValid,
		CreatedAt:         request.CreatedAt,
		UpdatedAt:         request.UpdatedAt,
	}
}

func toCheckResponse(check *models.OneTimeCheck) *checkResponse {
	if check == nil {
		return nil
	}
	return &checkResponse{
		ID:        check.ID.String(),
		Purpose:   string(check.Purpose),
		Contact:   check.Payload,
		Code:      check.Code,
		CreatedAt: check.CreatedAt,
	}
}

func (h *VerificationHandler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	requests, err := h.verification.ListActive(r.Context(), accountID)
	if err != nil {
		h.fail(w, r, "list requests", err)
		return
	}
	responses := make([]requestResponse, 0, len(requests))
	for _, request := range requests {
		responses = append(responses, toRequestResponse(request))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"requests": responses})
}

func (h *VerificationHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}
	levelNum, err := strconv.Atoi(chi.URLParam(r, "level"))
	if err != nil || !models.Level(levelNum).Valid() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "level must be 1-4"))
		return
	}
	level := models.Level(levelNum)

	if level == models.LevelContact {
		var payload models.Level2Payload
		if !decodeJSON(w, r, &payload) {
			return
		}
		result, err := h.verification.SubmitLevel2(r.Context(), accountID, payload)
		if err != nil {
			h.fail(w, r, "submit level 2", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"request":    toRequestResponse(result.Request),
			"phoneCheck": toCheckResponse(result.PhoneCheck),
		})
		return
	}

	payload, ok := decodePayload(w, r, level)
	if !ok {
		return
	}
	request, err := h.verification.Submit(r.Context(), accountID, level, payload)
	if err != nil {
		h.fail(w, r, "submit level", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"request": toRequestResponse(request)})
}

func (h *VerificationHandler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}
	var req struct {
		EmailCode string `json:"emailCode"`
		PhoneCode string `json:"phoneCode"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.verification.ConfirmLevel2(r.Context(), accountID, verificationservice.ConfirmSubmission{
		EmailCode: req.EmailCode,
		PhoneCode: req.PhoneCode,
	})
	if err != nil {
		h.fail(w, r, "confirm contacts", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{
		"isEmailTried":    result.IsEmailTried,
		"isEmailVerified": result.IsEmailVerified,
		"isPhoneTried":    result.IsPhoneTried,
		"isPhoneVerified": result.IsPhoneVerified,
	})
}

func (h *VerificationHandler) handleTriggerEmail(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}
	if err := h.verification.TriggerEmailConfirmation(r.Context(), accountID); err != nil {
		h.fail(w, r, "trigger email confirmation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *VerificationHandler) handleTriggerPhone(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}
	check, err := h.verification.TriggerPhoneConfirmation(r.Context(), accountID)
	if err != nil {
		h.fail(w, r, "trigger phone confirmation", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"check": toCheckResponse(check)})
}

func (h *VerificationHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	logFailure(h.logger, r, op, err)
	httputil.WriteError(w, err)
}

func decodePayload(w http.ResponseWriter, r *http.Request, level models.Level) (models.Payload, bool) {
	switch level {
	case models.LevelIdentity:
		var payload models.Level1Payload
		if !decodeJSON(w, r, &payload) {
			return nil, false
		}
		return payload, true
	case models.LevelDocument:
		var payload models.Level3Payload
		if !decodeJSON(w, r, &payload) {
			return nil, false
		}
		return payload, true
	case models.LevelAddress:
		var payload models.Level4Payload
		if !decodeJSON(w, r, &payload) {
			return nil, false
		}
		return payload, true
	default:
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeInvalidInput, "unsupported level %d", level))
		return nil, false
	}
}

func accountIDParam(w http.ResponseWriter, r *http.Request) (id.AccountID, bool) {
	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.AccountID{}, false
	}
	return accountID, true
}
