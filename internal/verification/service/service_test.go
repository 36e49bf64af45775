package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	identitymodels "github.com/ip-fomin/LaborX-backend/internal/identity/models"
	identitystore "github.com/ip-fomin/LaborX-backend/internal/identity/store"
	"github.com/ip-fomin/LaborX-backend/internal/notify"
	"github.com/ip-fomin/LaborX-backend/internal/notify/mocks"
	"github.com/ip-fomin/LaborX-backend/internal/verification/models"
	checkstore "github.com/ip-fomin/LaborX-backend/internal/verification/store/check"
	requeststore "github.com/ip-fomin/LaborX-backend/internal/verification/store/request"
	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
	dErrors "github.com/ip-fomin/LaborX-backend/pkg/domain-errors"
	"github.com/ip-fomin/LaborX-backend/pkg/testutil"
)

var codePattern = regexp.MustCompile(`code=(\d{6})`)

type fixture struct {
	service    *Service
	dispatcher *mocks.MockDispatcher
	accountID  id.AccountID
}

func newFixture(t *testing.T, email, phone string) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	accounts := identitystore.NewInMemoryAccountStore()
	account := &identitymodels.Account{
		ID:        id.AccountID(uuid.New()),
		Name:      "alice",
		Email:     email,
		Phone:     phone,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, accounts.Create(context.Background(), account))

	dispatcher := mocks.NewMockDispatcher(ctrl)
	service := NewService(
		requeststore.NewInMemoryStore(),
		checkstore.NewInMemoryStore(),
		accounts,
		WithDispatcher(dispatcher),
		WithBaseURL("https://app.example.com"),
	)
	return &fixture{service: service, dispatcher: dispatcher, accountID: account.ID}
}

// expectEmail records one dispatched message and extracts its code.
func (f *fixture) expectEmail(t *testing.T, code *string) {
	t.Helper()
	f.dispatcher.EXPECT().
		Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg notify.Message) error {
			match := codePattern.FindStringSubmatch(msg.HTML)
			require.Len(t, match, 2, "dispatched email must carry a code link")
			*code = match[1]
			return nil
		})
}

func TestSubmit_CreatesAndResubmits(t *testing.T) {
	f := newFixture(t, "", "")
	ctx := context.Background()

	first, err := f.service.SubmitLevel1(ctx, f.accountID, models.Level1Payload{UserName: "alice"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCreated, first.Status)

	testutil.When(t, "the same level is submitted again", func(t *testing.T) {
		second, err := f.service.Submit(ctx, f.accountID, models.LevelIdentity, models.Level1Payload{UserName: "alice a."})
		require.NoError(t, err)

		testutil.Then(t, "the pending request is replaced, not duplicated", func(t *testing.T) {
			assert.Equal(t, first.ID, second.ID)
			assert.Equal(t, models.Level1Payload{UserName: "alice a."}, second.Payload)

			active, err := f.service.ListActive(ctx, f.accountID)
			require.NoError(t, err)
			assert.Len(t, active, 1)
		})
	})
}

func TestSubmit_RejectsMismatchedPayload(t *testing.T) {
	f := newFixture(t, "", "")
	ctx := context.Background()

	_, err := f.service.Submit(ctx, f.accountID, models.LevelDocument, models.Level1Payload{UserName: "alice"})
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))

	_, err = f.service.Submit(ctx, f.accountID, models.LevelContact, models.Level2Payload{Email: "a@example.com"})
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput), "level 2 must go through the contact flow")
}

func TestSubmitDocumentAndAddressLevels(t *testing.T) {
	f := newFixture(t, "", "")
	ctx := context.Background()

	_, err := f.service.SubmitLevel3(ctx, f.accountID, models.Level3Payload{PassportNumber: "AB1234567"})
	require.NoError(t, err)
	_, err = f.service.SubmitLevel4(ctx, f.accountID, models.Level4Payload{Country: "US", City: "Austin"})
	require.NoError(t, err)

	active, err := f.service.ListActive(ctx, f.accountID)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, models.LevelDocument, active[0].Level)
	assert.Equal(t, models.LevelAddress, active[1].Level)
}

func TestSubmitLevel2_FirstSubmissionStartsUnconfirmed(t *testing.T) {
	f := newFixture(t, "alice@example.com", "")
	ctx := context.Background()

	// Matching the account's stored email is not enough on its own; the
	// submission did not assert confirmation, so a code is dispatched.
	var emailCode string
	f.expectEmail(t, &emailCode)

	result, err := f.service.SubmitLevel2(ctx, f.accountID, models.Level2Payload{Email: "alice@example.com"})
	require.NoError(t, err)

	payload, ok := result.Request.ContactPayload()
	require.True(t, ok)
	assert.False(t, payload.IsEmailConfirmed)
	assert.NotEmpty(t, emailCode)
}

func TestSubmitLevel2_AssertedFlagNeedsMatchingAccountContact(t *testing.T) {
	f := newFixture(t, "alice@example.com", "")
	ctx := context.Background()

	result, err := f.service.SubmitLevel2(ctx, f.accountID, models.Level2Payload{
		Email:            "alice@example.com",
		IsEmailConfirmed: true,
	})
	require.NoError(t, err)

	payload, ok := result.Request.ContactPayload()
	require.True(t, ok)
	assert.True(t, payload.IsEmailConfirmed, "asserted flag sticks for the account's own contact")
	assert.Nil(t, result.PhoneCheck)
}

func TestSubmitLevel2_TriggersUnconfirmedChannels(t *testing.T) {
	f := newFixture(t, "old@example.com", "")
	ctx := context.Background()

	var emailCode string
	f.expectEmail(t, &emailCode)

	result, err := f.service.SubmitLevel2(ctx, f.accountID, models.Level2Payload{
		Email: "new@example.com",
		Phone: "+15550100",
		// Neither contact matches the account record, so asserted flags
		// do not stick.
		IsEmailConfirmed: true,
		IsPhoneConfirmed: true,
	})
	require.NoError(t, err)

	payload, ok := result.Request.ContactPayload()
	require.True(t, ok)
	assert.False(t, payload.IsEmailConfirmed)
	assert.False(t, payload.IsPhoneConfirmed)
	assert.NotEmpty(t, emailCode)

	require.NotNil(t, result.PhoneCheck, "phone code is returned for out-of-band delivery")
	assert.Equal(t, models.PurposeConfirmPhone, result.PhoneCheck.Purpose)
	assert.Equal(t, "+15550100", result.PhoneCheck.Payload)
}

func TestConfirmLevel2_EndToEnd(t *testing.T) {
	f := newFixture(t, "", "")
	ctx := context.Background()

	var emailCode string
	f.expectEmail(t, &emailCode)

	submitted, err := f.service.SubmitLevel2(ctx, f.accountID, models.Level2Payload{
		Email: "alice@example.com",
		Phone: "+15550100",
	})
	require.NoError(t, err)
	phoneCode := submitted.PhoneCheck.Code

	testutil.When(t, "a wrong phone code is submitted", func(t *testing.T) {
		result, err := f.service.ConfirmLevel2(ctx, f.accountID, ConfirmSubmission{PhoneCode: "000000x"})
		require.NoError(t, err)
		assert.True(t, result.IsPhoneTried)
		assert.False(t, result.IsPhoneVerified)
	})

	testutil.When(t, "both real codes are submitted", func(t *testing.T) {
		result, err := f.service.ConfirmLevel2(ctx, f.accountID, ConfirmSubmission{
			EmailCode: emailCode,
			PhoneCode: phoneCode,
		})
		require.NoError(t, err)
		assert.True(t, result.IsEmailVerified, "wrong earlier attempt must not invalidate the code")
		assert.True(t, result.IsPhoneVerified)

		active, err := f.service.ListActive(ctx, f.accountID)
		require.NoError(t, err)
		require.Len(t, active, 1)
		payload, ok := active[0].ContactPayload()
		require.True(t, ok)
		assert.True(t, payload.IsEmailConfirmed)
		assert.True(t, payload.IsPhoneConfirmed)
	})

	testutil.When(t, "a consumed code is replayed", func(t *testing.T) {
		result, err := f.service.ConfirmLevel2(ctx, f.accountID, ConfirmSubmission{PhoneCode: phoneCode})
		require.NoError(t, err)
		assert.True(t, result.IsPhoneTried)
		assert.False(t, result.IsPhoneVerified)
	})
}

func TestConfirmLevel2_RequiresPendingRequest(t *testing.T) {
	f := newFixture(t, "", "")

	_, err := f.service.ConfirmLevel2(context.Background(), f.accountID, ConfirmSubmission{EmailCode: "123456"})
	assert.True(t, dErrors.Is(err, dErrors.CodePrecondition))
}

func TestResubmitPreservesFlagsForUnchangedContacts(t *testing.T) {
	f := newFixture(t, "", "")
	ctx := context.Background()

	var emailCode string
	f.expectEmail(t, &emailCode)
	_, err := f.service.SubmitLevel2(ctx, f.accountID, models.Level2Payload{Email: "alice@example.com"})
	require.NoError(t, err)

	confirmed, err := f.service.ConfirmLevel2(ctx, f.accountID, ConfirmSubmission{EmailCode: emailCode})
	require.NoError(t, err)
	require.True(t, confirmed.IsEmailVerified)

	testutil.When(t, "the same email is resubmitted with a new phone", func(t *testing.T) {
		result, err := f.service.SubmitLevel2(ctx, f.accountID, models.Level2Payload{
			Email: "alice@example.com",
			Phone: "+15550100",
		})
		require.NoError(t, err)

		payload, ok := result.Request.ContactPayload()
		require.True(t, ok)
		assert.True(t, payload.IsEmailConfirmed, "unchanged email keeps its confirmation")
		require.NotNil(t, result.PhoneCheck)
	})

	testutil.When(t, "a different email is resubmitted", func(t *testing.T) {
		var nextCode string
		f.expectEmail(t, &nextCode)

		result, err := f.service.SubmitLevel2(ctx, f.accountID, models.Level2Payload{Email: "other@example.com"})
		require.NoError(t, err)

		payload, ok := result.Request.ContactPayload()
		require.True(t, ok)
		assert.False(t, payload.IsEmailConfirmed, "changed email is unproven again")
		assert.NotEmpty(t, nextCode)
	})
}

func TestTriggerPreconditions(t *testing.T) {
	f := newFixture(t, "", "")
	ctx := context.Background()

	_, err := f.service.TriggerPhoneConfirmation(ctx, f.accountID)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvariantViolation), "no pending contact request")

	var emailCode string
	f.expectEmail(t, &emailCode)
	_, err = f.service.SubmitLevel2(ctx, f.accountID, models.Level2Payload{Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = f.service.TriggerPhoneConfirmation(ctx, f.accountID)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvariantViolation), "no phone on the request")

	confirmed, err := f.service.ConfirmLevel2(ctx, f.accountID, ConfirmSubmission{EmailCode: emailCode})
	require.NoError(t, err)
	require.True(t, confirmed.IsEmailVerified)

	err = f.service.TriggerEmailConfirmation(ctx, f.accountID)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvariantViolation), "email already confirmed")
}

func TestTriggerSupersedesPriorCheck(t *testing.T) {
	f := newFixture(t, "", "")
	ctx := context.Background()

	_, err := f.service.SubmitLevel2(ctx, f.accountID, models.Level2Payload{Phone: "+15550100"})
	require.NoError(t, err)

	first, err := f.service.TriggerPhoneConfirmation(ctx, f.accountID)
	require.NoError(t, err)
	second, err := f.service.TriggerPhoneConfirmation(ctx, f.accountID)
	require.NoError(t, err)

	result, err := f.service.ConfirmLevel2(ctx, f.accountID, ConfirmSubmission{PhoneCode: first.Code})
	require.NoError(t, err)
	if first.Code != second.Code {
		assert.False(t, result.IsPhoneVerified, "superseded code must not redeem")
	}

	result, err = f.service.ConfirmLevel2(ctx, f.accountID, ConfirmSubmission{PhoneCode: second.Code})
	require.NoError(t, err)
	assert.True(t, result.IsPhoneVerified)
}

func TestDispatchFailureLeavesCodeRedeemable(t *testing.T) {
	f := newFixture(t, "", "")
	ctx := context.Background()

	var issuedCode string
	f.dispatcher.EXPECT().
		Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg notify.Message) error {
			issuedCode = codePattern.FindStringSubmatch(msg.HTML)[1]
			return assert.AnError
		})

	_, err := f.service.SubmitLevel2(ctx, f.accountID, models.Level2Payload{Email: "alice@example.com"})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnavailable))

	// The request upsert and the issued code both survive the failed
	// dispatch, so the user can still confirm out of band.
	result, err := f.service.ConfirmLevel2(ctx, f.accountID, ConfirmSubmission{EmailCode: issuedCode})
	require.NoError(t, err)
	assert.True(t, result.IsEmailVerified)
}
