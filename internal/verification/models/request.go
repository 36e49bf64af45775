package models

import (
	"encoding/json"
	"fmt"
	"time"

	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
)

// Level is one of the four escalating verification levels: identity basics,
// contact ownership, document proof, address proof.
type Level int

const (
	LevelIdentity Level = 1
	LevelContact  Level = 2
	LevelDocument Level = 3
	LevelAddress  Level = 4
)

func (l Level) Valid() bool { return l >= LevelIdentity && l <= LevelAddress }

// Status of a verification request. "created" is the sole active state this
// core manages; reviewer decisions move requests to the terminal states.
type Status string

const (
	StatusCreated  Status = "created"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Payload is the level-specific submission content. Each concrete payload
// reports its level so the workflow can reject a shape submitted for the
// wrong level before any mutation.
type Payload interface {
	Level() Level
}

// Level1Payload carries identity basics.
type Level1Payload struct {
	UserName  string `json:"userName"`
	BirthDate string `json:"birthDate"`
	AvatarURL string `json:"avatarUrl"`
}

func (Level1Payload) Level() Level { return LevelIdentity }

// Level2Payload carries contact data plus per-channel confirmation flags.
// The flags are owned by the workflow, not the submitter: any change to a
// contact value resets its flag.
type Level2Payload struct {
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	IsEmailConfirmed bool   `json:"isEmailConfirmed"`
	IsPhoneConfirmed bool   `json:"isPhoneConfirmed"`
}

func (Level2Payload) Level() Level { return LevelContact }

// Level3Payload carries document proof.
type Level3Payload struct {
	PassportNumber string   `json:"passportNumber"`
	ExpirationDate string   `json:"expirationDate"`
	Attachments    []string `json:"attachments"`
}

func (Level3Payload) Level() Level { return LevelDocument }

// Level4Payload carries address proof.
type Level4Payload struct {
	Country      string   `json:"country"`
	State        string   `json:"state"`
	City         string   `json:"city"`
	Zip          string   `json:"zip"`
	AddressLine1 string   `json:"addressLine1"`
	AddressLine2 string   `json:"addressLine2"`
	Attachments  []string `json:"attachments"`
}

func (Level4Payload) Level() Level { return LevelAddress }

// VerificationRequest is a pending or decided claim at one level. At most
// one request per (account, level) holds StatusCreated at any time;
// resubmission mutates that request instead of creating a duplicate.
type VerificationRequest struct {
	ID        id.RequestID
	AccountID id.AccountID
	Level     Level
	Status    Status
	Payload   Payload

	// Review fields, voided by any edit to the submission.
	ValidationComment string
	IsValid           bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContactPayload returns the level-2 payload, or false when the request
// carries a different level's payload.
func (r *VerificationRequest) ContactPayload() (Level2Payload, bool) {
	payload, ok := r.Payload.(Level2Payload)
	return payload, ok
}

// MarshalPayload serializes a payload for storage.
func MarshalPayload(payload Payload) ([]byte, error) {
	return json.Marshal(payload)
}

// UnmarshalPayload deserializes a stored payload for the given level.
func UnmarshalPayload(level Level, data []byte) (Payload, error) {
	switch level {
	case LevelIdentity:
		var payload Level1Payload
		return payload, json.Unmarshal(data, &payload)
	case LevelContact:
		var payload Level2Payload
		return payload, json.Unmarshal(data, &payload)
	case LevelDocument:
		var payload Level3Payload
		return payload, json.Unmarshal(data, &payload)
	case LevelAddress:
		var payload Level4Payload
		return payload, json.Unmarshal(data, &payload)
	default:
		return nil, fmt.Errorf("unknown verification level %d", level)
	}
}
