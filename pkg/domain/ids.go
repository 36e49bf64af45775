// Package domain defines the typed identifiers shared across modules.
// Distinct UUID wrappers keep an AccountID from ever being passed where a
// TokenID is expected; the compiler enforces the distinction.
package domain

import (
	"fmt"

	"github.com/google/uuid"

	dErrors "github.com/ip-fomin/LaborX-backend/pkg/domain-errors"
)

type (
	// AccountID identifies an internal identity record.
	AccountID uuid.UUID

	// SignatureID identifies an external-address binding.
	SignatureID uuid.UUID

	// RequestID identifies a verification request.
	RequestID uuid.UUID

	// CheckID identifies a one-time confirmation code.
	CheckID uuid.UUID

	// TokenID identifies a purpose-scoped token record.
	TokenID uuid.UUID
)

func (id AccountID) String() string   { return uuid.UUID(id).String() }
func (id SignatureID) String() string { return uuid.UUID(id).String() }
func (id RequestID) String() string   { return uuid.UUID(id).String() }
func (id CheckID) String() string     { return uuid.UUID(id).String() }
func (id TokenID) String() string     { return uuid.UUID(id).String() }

func (id AccountID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id TokenID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs. Applied at trust boundaries (HTTP, storage rows).
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid %s: %q", kind, raw))
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be nil")
	}
	return parsed, nil
}

func ParseAccountID(raw string) (AccountID, error) {
	parsed, err := parseUUID(raw, "account id")
	return AccountID(parsed), err
}

func ParseSignatureID(raw string) (SignatureID, error) {
	parsed, err := parseUUID(raw, "signature id")
	return SignatureID(parsed), err
}

func ParseRequestID(raw string) (RequestID, error) {
	parsed, err := parseUUID(raw, "request id")
	return RequestID(parsed), err
}

func ParseCheckID(raw string) (CheckID, error) {
	parsed, err := parseUUID(raw, "check id")
	return CheckID(parsed), err
}

func ParseTokenID(raw string) (TokenID, error) {
	parsed, err := parseUUID(raw, "token id")
	return TokenID(parsed), err
}
