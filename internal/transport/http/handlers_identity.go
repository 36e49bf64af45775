package httptransport

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	identitymodels "github.com/ip-fomin/LaborX-backend/internal/identity/models"
	identityservice "github.com/ip-fomin/LaborX-backend/internal/identity/service"
	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
	dErrors "github.com/ip-fomin/LaborX-backend/pkg/domain-errors"
	"github.com/ip-fomin/LaborX-backend/pkg/platform/httputil"
)

// IdentityService defines the identity operations the transport exposes.
type IdentityService interface {
	ResolveAccount(ctx context.Context, address string) (*identityservice.Binding, error)
	ResolveAccounts(ctx context.Context, addresses []string) ([]identityservice.Binding, error)
	EnsureSignature(ctx context.Context, sigType, value string) (*identitymodels.Signature, error)
	UpdateNotificationPreference(ctx context.Context, accountID id.AccountID, update identityservice.PreferenceUpdate) (*identitymodels.Account, error)
}

type IdentityHandler struct {
	identity IdentityService
	logger   *log.Logger
}

func NewIdentityHandler(identity IdentityService, logger *log.Logger) *IdentityHandler {
	return &IdentityHandler{identity: identity, logger: logger}
}

func (h *IdentityHandler) Register(r chi.Router) {
	r.Post("/identity/resolve", h.handleResolve)
	r.Post("/identity/resolve/batch", h.handleResolveBatch)
	r.Post("/identity/signatures", h.handleEnsureSignature)
	r.Patch("/accounts/{accountID}/notifications", h.handleUpdatePreference)
}

type accountResponse struct {
	ID            string                           `json:"id"`
	Name          string                           `json:"name"`
	Email         string                           `json:"email,omitempty"`
	Phone         string                           `json:"phone,omitempty"`
	Notifications identitymodels.NotificationPrefs `json:"notifications,omitempty"`
	CreatedAt     time.Time                        `json:"createdAt"`
	UpdatedAt     time.Time                        `json:"updatedAt"`
}

type bindingResponse struct {
	Address string          `json:"address"`
	Account accountResponse `json:"account"`
}

type signatureResponse struct {
	ID        string           `json:"id"`
	Type      string           `json:"type"`
	Value     string           `json:"value"`
	Account   *accountResponse `json:"account,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

func toAccountResponse(account *identitymodels.Account) accountResponse {
	return accountResponse{
		ID:            account.ID.String(),
		Name:          account.Name,
		Email:         account.Email,
		Phone:         account.Phone,
		Notifications: account.Notifications,
		CreatedAt:     account.CreatedAt,
		UpdatedAt:     account.UpdatedAt,
	}
}

func (h *IdentityHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	binding, err := h.identity.ResolveAccount(r.Context(), req.Address)
	if err != nil {
		h.fail(w, r, "resolve account", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bindingResponse{
		Address: binding.Address,
		Account: toAccountResponse(binding.Account),
	})
}

func (h *IdentityHandler) handleResolveBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Addresses []string `json:"addresses"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	bindings, err := h.identity.ResolveAccounts(r.Context(), req.Addresses)
	if err != nil {
		h.fail(w, r, "resolve accounts", err)
		return
	}
	responses := make([]bindingResponse, 0, len(bindings))
	for _, binding := range bindings {
		responses = append(responses, bindingResponse{
			Address: binding.Address,
			Account: toAccountResponse(binding.Account),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"bindings": responses})
}

func (h *IdentityHandler) handleEnsureSignature(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	signature, err := h.identity.EnsureSignature(r.Context(), req.Type, req.Value)
	if err != nil {
		h.fail(w, r, "ensure signature", err)
		return
	}
	response := signatureResponse{
		ID:        signature.ID.String(),
		Type:      signature.Type,
		Value:     signature.Value,
		CreatedAt: signature.CreatedAt,
	}
	if signature.Account != nil {
		account := toAccountResponse(signature.Account)
		response.Account = &account
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

func (h *IdentityHandler) handleUpdatePreference(w http.ResponseWriter, r *http.Request) {
	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req struct {
		Domain string `json:"domain"`
		Type   string `json:"type"`
		Name   string `json:"name"`
		Value  bool   `json:"value"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.identity.UpdateNotificationPreference(r.Context(), accountID, identityservice.PreferenceUpdate{
		Domain: req.Domain,
		Type:   req.Type,
		Name:   req.Name,
		Value:  req.Value,
	})
	if err != nil {
		h.fail(w, r, "update preference", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *IdentityHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	logFailure(h.logger, r, op, err)
	httputil.WriteError(w, err)
}

// decodeJSON decodes the body into v, writing a bad-request response on
// failure. Returns false when the handler should stop.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

// logFailure records server-side failures; client errors are left to the
// response body.
func logFailure(logger *log.Logger, r *http.Request, op string, err error) {
	if logger == nil {
		return
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal || dErrors.CodeOf(err) == dErrors.CodeUnavailable {
		logger.Printf("http: %s %s: %s failed: %v", r.Method, r.URL.Path, op, err)
	}
}
