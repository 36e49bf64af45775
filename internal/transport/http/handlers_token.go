package httptransport

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ip-fomin/LaborX-backend/internal/token/models"
	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
	"github.com/ip-fomin/LaborX-backend/pkg/platform/httputil"
)

// TokenService defines the vault operations the transport exposes.
type TokenService interface {
	Find(ctx context.Context, accountID id.AccountID, purpose string) (*models.Token, error)
	Upsert(ctx context.Context, accountID id.AccountID, purpose string) (*models.Token, error)
	Revoke(ctx context.Context, accountID id.AccountID, purpose string) (*models.Token, error)
	FindByValue(ctx context.Context, value string) (*models.Token, error)
	RevokeByValue(ctx context.Context, value string) (*models.Token, error)
}

type TokenHandler struct {
	tokens TokenService
	logger *log.Logger
}

func NewTokenHandler(tokens TokenService, logger *log.Logger) *TokenHandler {
	return &TokenHandler{tokens: tokens, logger: logger}
}

func (h *TokenHandler) Register(r chi.Router) {
	r.Route("/accounts/{accountID}/tokens/{purpose}", func(r chi.Router) {
		r.Get("/", h.handleFind)
		r.Put("/", h.handleUpsert)
		r.Delete("/", h.handleRevoke)
	})
	r.Post("/tokens/resolve", h.handleResolveValue)
	r.Post("/tokens/revoke", h.handleRevokeValue)
}

type tokenResponse struct {
	ID          string     `json:"id"`
	Purpose     string     `json:"purpose"`
	Value       string     `json:"value"`
	CreatedAt   time.Time  `json:"createdAt"`
	RefreshedAt *time.Time `json:"refreshedAt,omitempty"`
	ExpiresAt   time.Time  `json:"expiresAt"`
}

func toTokenResponse(token *models.Token) tokenResponse {
	response := tokenResponse{
		ID:        token.ID.String(),
		Purpose:   token.Purpose,
		Value:     token.Value,
		CreatedAt: token.CreatedAt,
		ExpiresAt: token.ExpiresAt,
	}
	if !token.RefreshedAt.IsZero() {
		refreshedAt := token.RefreshedAt
		response.RefreshedAt = &refreshedAt
	}
	return response
}

func (h *TokenHandler) handleFind(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}
	token, err := h.tokens.Find(r.Context(), accountID, chi.URLParam(r, "purpose"))
	if err != nil {
		h.fail(w, r, "find token", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTokenResponse(token))
}

func (h *TokenHandler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}
	token, err := h.tokens.Upsert(r.Context(), accountID, chi.URLParam(r, "purpose"))
	if err != nil {
		h.fail(w, r, "upsert token", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTokenResponse(token))
}

func (h *TokenHandler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}
	token, err := h.tokens.Revoke(r.Context(), accountID, chi.URLParam(r, "purpose"))
	if err != nil {
		h.fail(w, r, "revoke token", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTokenResponse(token))
}

func (h *TokenHandler) handleResolveValue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	token, err := h.tokens.FindByValue(r.Context(), req.Value)
	if err != nil {
		h.fail(w, r, "resolve token", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTokenResponse(token))
}

func (h *TokenHandler) handleRevokeValue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	token, err := h.tokens.RevokeByValue(r.Context(), req.Value)
	if err != nil {
		h.fail(w, r, "revoke token", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTokenResponse(token))
}

func (h *TokenHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	logFailure(h.logger, r, op, err)
	httputil.WriteError(w, err)
}
