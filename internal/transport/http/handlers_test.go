package httptransport

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	identityservice "github.com/ip-fomin/LaborX-backend/internal/identity/service"
	identitystore "github.com/ip-fomin/LaborX-backend/internal/identity/store"
	"github.com/ip-fomin/LaborX-backend/internal/notify"
	"github.com/ip-fomin/LaborX-backend/internal/notify/mocks"
	tokenservice "github.com/ip-fomin/LaborX-backend/internal/token/service"
	tokenstore "github.com/ip-fomin/LaborX-backend/internal/token/store"
	verificationservice "github.com/ip-fomin/LaborX-backend/internal/verification/service"
	checkstore "github.com/ip-fomin/LaborX-backend/internal/verification/store/check"
	requeststore "github.com/ip-fomin/LaborX-backend/internal/verification/store/request"
	"github.com/ip-fomin/LaborX-backend/pkg/testutil"
)

func newRouter(t *testing.T) (http.Handler, *mocks.MockDispatcher) {
	t.Helper()
	ctrl := gomock.NewController(t)
	dispatcher := mocks.NewMockDispatcher(ctrl)

	accounts := identitystore.NewInMemoryAccountStore()
	signatures := identitystore.NewInMemorySignatureStore()
	identity := identityservice.NewService(accounts, signatures)
	verification := verificationservice.NewService(
		requeststore.NewInMemoryStore(),
		checkstore.NewInMemoryStore(),
		accounts,
		verificationservice.WithDispatcher(dispatcher),
		verificationservice.WithBaseURL("https://app.example.com"),
	)
	tokens := tokenservice.NewService(tokenstore.NewInMemoryStore(), []byte("test-key"), tokenservice.WithTTL(time.Hour))

	router := NewRouter(
		NewIdentityHandler(identity, nil),
		NewVerificationHandler(verification, nil),
		NewTokenHandler(tokens, nil),
		nil,
	)
	return router, dispatcher
}

type signatureBody struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Value   string `json:"value"`
	Account *struct {
		ID string `json:"id"`
	} `json:"account"`
}

func ensureAccount(t *testing.T, router http.Handler, address string) string {
	t.Helper()
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/identity/signatures",
		map[string]string{"type": "ethereum-address", "value": address}))
	testutil.AssertStatus(t, rr, http.StatusOK)
	body := testutil.UnmarshalResponse[signatureBody](t, rr)
	require.NotNil(t, body.Account)
	return body.Account.ID
}

func TestEnsureSignatureAndResolve(t *testing.T) {
	router, _ := newRouter(t)

	accountID := ensureAccount(t, router, "0xABcD0000000000000000000000000000000000aa")

	// Resolution normalizes case, so the mixed-case form matches.
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/identity/resolve",
		map[string]string{"address": "0xabcd0000000000000000000000000000000000AA"}))
	testutil.AssertStatus(t, rr, http.StatusOK)
	binding := testutil.UnmarshalResponse[struct {
		Address string `json:"address"`
		Account struct {
			ID string `json:"id"`
		} `json:"account"`
	}](t, rr)
	assert.Equal(t, accountID, binding.Account.ID)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/identity/resolve",
		map[string]string{"address": "0x0000000000000000000000000000000000000000"}))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
	testutil.AssertErrorCode(t, rr, "not_found")
}

func TestSubmitLevel1(t *testing.T) {
	router, _ := newRouter(t)
	accountID := ensureAccount(t, router, "0x1111111111111111111111111111111111111111")

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost,
		"/accounts/"+accountID+"/verification/levels/1",
		map[string]string{"userName": "alice", "birthDate": "1990-04-01"}))
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet,
		"/accounts/"+accountID+"/verification/requests", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	list := testutil.UnmarshalResponse[struct {
		Requests []struct {
			Level  int    `json:"level"`
			Status string `json:"status"`
		} `json:"requests"`
	}](t, rr)
	require.Len(t, list.Requests, 1)
	assert.Equal(t, 1, list.Requests[0].Level)
	assert.Equal(t, "created", list.Requests[0].Status)
}

func TestLevel2PhoneFlow(t *testing.T) {
	router, _ := newRouter(t)
	accountID := ensureAccount(t, router, "0x2222222222222222222222222222222222222222")

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost,
		"/accounts/"+accountID+"/verification/levels/2",
		map[string]string{"phone": "+15550100"}))
	testutil.AssertStatus(t, rr, http.StatusOK)
	submitted := testutil.UnmarshalResponse[struct {
		PhoneCheck *struct {
			Code string `json:"code"`
		} `json:"phoneCheck"`
	}](t, rr)
	require.NotNil(t, submitted.PhoneCheck)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost,
		"/accounts/"+accountID+"/verification/confirm",
		map[string]string{"phoneCode": submitted.PhoneCheck.Code}))
	testutil.AssertStatus(t, rr, http.StatusOK)
	confirmed := testutil.UnmarshalResponse[map[string]bool](t, rr)
	assert.True(t, (*confirmed)["isPhoneVerified"])
}

func TestConfirmWithoutPendingRequest(t *testing.T) {
	router, _ := newRouter(t)
	accountID := ensureAccount(t, router, "0x3333333333333333333333333333333333333333")

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost,
		"/accounts/"+accountID+"/verification/confirm",
		map[string]string{"emailCode": "123456"}))
	testutil.AssertStatus(t, rr, http.StatusPreconditionFailed)
	testutil.AssertErrorCode(t, rr, "precondition_failed")
}

func TestDispatchFailureIsServiceUnavailable(t *testing.T) {
	router, dispatcher := newRouter(t)
	accountID := ensureAccount(t, router, "0x4444444444444444444444444444444444444444")

	dispatcher.EXPECT().
		Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, notify.Message) error { return assert.AnError })

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost,
		"/accounts/"+accountID+"/verification/levels/2",
		map[string]string{"email": "alice@example.com"}))
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
	testutil.AssertErrorCode(t, rr, "unavailable")
}

func TestTokenLifecycle(t *testing.T) {
	router, _ := newRouter(t)
	accountID := ensureAccount(t, router, "0x5555555555555555555555555555555555555555")
	path := "/accounts/" + accountID + "/tokens/login"

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, path, nil))
	testutil.AssertStatus(t, rr, http.StatusNotFound)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPut, path, nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	issued := testutil.UnmarshalResponse[struct {
		ID    string `json:"id"`
		Value string `json:"value"`
	}](t, rr)
	assert.NotEmpty(t, issued.Value)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPut, path, nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	refreshed := testutil.UnmarshalResponse[struct {
		ID string `json:"id"`
	}](t, rr)
	assert.Equal(t, issued.ID, refreshed.ID)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodDelete, path, nil))
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, path, nil))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestInvalidAccountIDIsRejected(t *testing.T) {
	router, _ := newRouter(t)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet,
		"/accounts/not-a-uuid/verification/requests", nil))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	testutil.AssertErrorCode(t, rr, "invalid_input")
}
