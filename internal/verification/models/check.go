package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
)

// CheckPurpose scopes a one-time code to the contact channel it proves.
type CheckPurpose string

const (
	PurposeConfirmEmail CheckPurpose = "confirm-email"
	PurposeConfirmPhone CheckPurpose = "confirm-phone"
)

// OneTimeCheck is a single-use code scoped to (account, purpose). Payload is
// the contact value being confirmed, so a code issued for one email can
// never confirm another. At most one active check exists per
// (account, purpose); issuing a new one supersedes the prior.
type OneTimeCheck struct {
	ID        id.CheckID
	AccountID id.AccountID
	Purpose   CheckPurpose
	Payload   string
	Code      string
	CreatedAt time.Time
}

const codeDigits = 6

// GenerateCode produces a zero-padded numeric confirmation code from
// crypto/rand.
func GenerateCode() (string, error) {
	max := big.NewInt(1)
	for range codeDigits {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}
