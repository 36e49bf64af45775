package audit

import (
	"time"

	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies and routing per category.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance:
	// verification submissions, contact confirmations, signature bindings.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring:
	// token issuance and revocation, failed confirmation attempts.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility: code issuance, dispatch failures, preference updates.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	AccountID id.AccountID
	Action    string
	// Level is set for verification-request actions (1-4), zero otherwise.
	Level int
	// Purpose is set for check and token actions (confirm-email, login, ...).
	Purpose string
	Reason  string
	// RequestID is the correlation ID from the HTTP request context.
	RequestID string
	// Device is the parsed client device summary when available.
	Device string
}

// Action names the auditable operations of the verification core.
type Action string

const (
	ActionSignatureCreated  Action = "signature_created"
	ActionAccountCreated    Action = "account_created"
	ActionLevelSubmitted    Action = "level_submitted"
	ActionCheckIssued       Action = "check_issued"
	ActionContactConfirmed  Action = "contact_confirmed"
	ActionConfirmRejected   Action = "confirm_rejected"
	ActionDispatchFailed    Action = "dispatch_failed"
	ActionTokenIssued       Action = "token_issued"
	ActionTokenRefreshed    Action = "token_refreshed"
	ActionTokenRevoked      Action = "token_revoked"
	ActionPreferenceUpdated Action = "preference_updated"
)

var eventCategories = map[Action]EventCategory{
	ActionSignatureCreated:  CategoryCompliance,
	ActionAccountCreated:    CategoryCompliance,
	ActionLevelSubmitted:    CategoryCompliance,
	ActionContactConfirmed:  CategoryCompliance,
	ActionCheckIssued:       CategoryOperations,
	ActionConfirmRejected:   CategorySecurity,
	ActionDispatchFailed:    CategoryOperations,
	ActionTokenIssued:       CategorySecurity,
	ActionTokenRefreshed:    CategorySecurity,
	ActionTokenRevoked:      CategorySecurity,
	ActionPreferenceUpdated: CategoryOperations,
}

// Category resolves the category for an action. Unknown actions fall into
// operations so nothing is silently dropped.
func (a Action) Category() EventCategory {
	if category, ok := eventCategories[a]; ok {
		return category
	}
	return CategoryOperations
}
