package models

import (
	"strings"
	"time"

	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
)

// SignatureTypeEthereum is the only signature type this core resolves by
// address today; the type tag keeps room for other chains.
const SignatureTypeEthereum = "ethereum-address"

// Signature binds one external address value plus a type tag to exactly one
// Account. The (Type, Value) pair is unique and never reused across accounts.
type Signature struct {
	ID        id.SignatureID
	AccountID id.AccountID
	Type      string
	Value     string
	CreatedAt time.Time

	// Account is the populated owner relation; nil until attached by the
	// service layer.
	Account *Account
}

// NormalizeAddress case-normalizes an external address for lookup and
// storage. Ethereum addresses are case-insensitive hex.
func NormalizeAddress(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
