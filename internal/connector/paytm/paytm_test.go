package paytm

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payorch/connector-gateway/internal/amount"
	"github.com/payorch/connector-gateway/internal/connector"
	"github.com/payorch/connector-gateway/internal/domain"
	"github.com/payorch/connector-gateway/internal/signing"
)

const testMerchantKey = "0123456789abcdef"

func testAuth() domain.AuthType {
	return domain.NewSignatureKeyAuth(
		domain.NewSecret("MID001"),
		domain.NewSecret(testMerchantKey),
		domain.NewSecret("WEBSTAGING"),
	)
}

func testFlowData() *domain.PaymentFlowData {
	return &domain.PaymentFlowData{
		PaymentID:                   "pay_42",
		ConnectorRequestReferenceID: "order_42",
		Connectors: domain.Connectors{
			Paytm: domain.ConnectorEndpoint{BaseURL: "https://securegw-stage.paytm.in/"},
		},
	}
}

func sessionEnv() *sessionEnvelope {
	return connector.NewEnvelope[domain.CreateSessionToken, *domain.PaymentFlowData, domain.SessionTokenRequest, domain.SessionTokenResponse](
		testFlowData(), testAuth(), domain.SessionTokenRequest{
			MinorAmount: 1050,
			Currency:    amount.INR,
			ReturnURL:   "https://merchant.example/return",
		})
}

func TestSessionTokenURL(t *testing.T) {
	integ := New[domain.Card]().CreateSessionToken()
	u, err := integ.URL(sessionEnv())
	require.NoError(t, err)
	assert.Equal(t, "https://securegw-stage.paytm.in/theia/api/v1/initiateTransaction?mid=MID001&orderId=order_42", u)
}

func TestSessionTokenBody(t *testing.T) {
	integ := New[domain.Card]().CreateSessionToken()
	body, err := integ.Body(sessionEnv())
	require.NoError(t, err)

	var req struct {
		Head requestHeader   `json:"head"`
		Body json.RawMessage `json:"body"`
	}
	require.NoError(t, json.Unmarshal(body.Body, &req))

	raw := string(req.Body)
	assert.Contains(t, raw, `"mid":"MID001"`)
	assert.Contains(t, raw, `"orderId":"order_42"`)
	assert.Contains(t, raw, `"websiteName":"WEBSTAGING"`)
	assert.Contains(t, raw, `"value":"10.50"`)
	assert.Contains(t, raw, `"currency":"INR"`)
	assert.Contains(t, raw, `"custId":"guest"`)
	assert.Contains(t, raw, `"callbackUrl":"https://merchant.example/return"`)
	assert.Contains(t, raw, `"mode":"UPI"`)

	assert.Equal(t, "v2", req.Head.Version)
	assert.Equal(t, "WEB", req.Head.ChannelID)
	assert.Nil(t, req.Head.ClientID)
	assert.NotEmpty(t, req.Head.RequestTimestamp)

	// The signature decrypts to hex(sha256(body|salt)) followed by the
	// base64 salt.
	plain, err := signing.DecryptAESCBC(req.Head.Signature, []byte(testMerchantKey), paytmIV)
	require.NoError(t, err)
	checksum := string(plain)
	require.Greater(t, len(checksum), 64)
	saltB64 := checksum[64:]
	digest := sha256.Sum256([]byte(string(req.Body) + "|" + saltB64))
	assert.Equal(t, hex.EncodeToString(digest[:]), checksum[:64])
}

func TestSessionTokenResponseFoldsToken(t *testing.T) {
	integ := New[domain.Card]().CreateSessionToken()
	env := sessionEnv()
	body := []byte(`{"head":{"version":"v2"},"body":{"resultInfo":{"resultStatus":"S","resultCode":"0000","resultMsg":"Success"},"txnToken":"tok_99"}}`)
	require.NoError(t, integ.HandleResponse(env, connector.Response{StatusCode: 200, Body: body}))
	resp, ok := env.Response()
	require.True(t, ok)
	assert.Equal(t, "tok_99", resp.SessionToken)
}

func TestSessionTokenDuplicateCodeStillSucceeds(t *testing.T) {
	integ := New[domain.Card]().CreateSessionToken()
	env := sessionEnv()
	body := []byte(`{"body":{"resultInfo":{"resultStatus":"S","resultCode":"0002","resultMsg":"Duplicate"},"txnToken":"tok_dup"}}`)
	require.NoError(t, integ.HandleResponse(env, connector.Response{StatusCode: 200, Body: body}))
	resp, ok := env.Response()
	require.True(t, ok)
	assert.Equal(t, "tok_dup", resp.SessionToken)
}

func TestSessionTokenFailureBody(t *testing.T) {
	integ := New[domain.Card]().CreateSessionToken()
	env := sessionEnv()
	body := []byte(`{"body":{"resultInfo":{"resultStatus":"F","resultCode":"00123","resultMsg":"Invalid checksum"}}}`)
	require.NoError(t, integ.HandleResponse(env, connector.Response{StatusCode: 200, Body: body}))
	_, ok := env.Response()
	assert.False(t, ok)
	record := env.ErrorResponse()
	assert.Equal(t, "00123", record.Code)
	assert.Equal(t, "Invalid checksum", record.Message)
}

func authorizeEnv(sessionToken string) *connector.Envelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[domain.Card], domain.PaymentsResponse] {
	common := testFlowData()
	common.SessionToken = sessionToken
	return connector.NewEnvelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[domain.Card], domain.PaymentsResponse](
		common, testAuth(), domain.AuthorizeRequest[domain.Card]{
			MinorAmount: 1050,
			Currency:    amount.INR,
		})
}

func TestAuthorizeRequiresSessionToken(t *testing.T) {
	integ := New[domain.Card]().Authorize()
	_, err := integ.Body(authorizeEnv(""))
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrMissingRequiredField))
}

func TestAuthorizeBody(t *testing.T) {
	integ := New[domain.Card]().Authorize()
	body, err := integ.Body(authorizeEnv("tok_99"))
	require.NoError(t, err)
	raw := string(body.Body)
	assert.Contains(t, raw, `"txnToken":"tok_99"`)
	assert.Contains(t, raw, `"paymentMode":"UPI_INTENT"`)
	assert.Contains(t, raw, `"paymentFlow":"NONE"`)
	assert.Contains(t, raw, `"requestType":"Payment"`)
	assert.Contains(t, raw, `"orderId":"order_42"`)
}

func TestAuthorizeURL(t *testing.T) {
	integ := New[domain.Card]().Authorize()
	u, err := integ.URL(authorizeEnv("tok_99"))
	require.NoError(t, err)
	assert.Equal(t, "https://securegw-stage.paytm.in/theia/api/v1/processTransaction?mid=MID001&orderId=order_42", u)
}

func TestAuthorizeDeepLinkRedirect(t *testing.T) {
	integ := New[domain.Card]().Authorize()
	env := authorizeEnv("tok_99")
	body := []byte(`{"head":{"responseTimestamp":"1"},"body":{"resultInfo":{"resultStatus":"S","resultCode":"0000","resultMsg":"Success"},"deepLinkInfo":{"deepLink":"upi://pay?pa=x","orderId":"order_42","cashierRequestId":"c1","transId":"t1"}}}`)
	require.NoError(t, integ.HandleResponse(env, connector.Response{StatusCode: 200, Body: body}))

	assert.Equal(t, domain.AttemptAuthenticationPending, env.Common.Status)
	resp, ok := env.Response()
	require.True(t, ok)
	require.NotNil(t, resp.Redirect)
	assert.Equal(t, "upi://pay?pa=x", resp.Redirect.URL)
	assert.Equal(t, "t1", resp.ConnectorResponseReferenceID)
	got, err := resp.ResourceID.TransactionID()
	require.NoError(t, err)
	assert.Equal(t, "order_42", got)
}

func TestAuthorizeFailureCodeStillSettlesWithStatus(t *testing.T) {
	integ := New[domain.Card]().Authorize()
	env := authorizeEnv("tok_99")
	body := []byte(`{"body":{"resultInfo":{"resultStatus":"F","resultCode":"810","resultMsg":"Txn failed"}}}`)
	require.NoError(t, integ.HandleResponse(env, connector.Response{StatusCode: 200, Body: body}))
	assert.Equal(t, domain.AttemptFailure, env.Common.Status)
	resp, ok := env.Response()
	require.True(t, ok)
	assert.Nil(t, resp.Redirect)
}

func psyncEnv() *psyncEnvelope {
	return connector.NewEnvelope[domain.PaymentSync, *domain.PaymentFlowData, domain.PaymentSyncRequest, domain.PaymentsResponse](
		testFlowData(), testAuth(), domain.PaymentSyncRequest{
			ResourceID: domain.NewConnectorTransactionID("order_42"),
		})
}

func TestStatusCodeVocabulary(t *testing.T) {
	cases := map[string]domain.AttemptStatus{
		"01":      domain.AttemptCharged,
		"0000":    domain.AttemptAuthenticationPending,
		"400":     domain.AttemptPending,
		"402":     domain.AttemptPending,
		"331":     domain.AttemptPending,
		"227":     domain.AttemptFailure,
		"401":     domain.AttemptFailure,
		"810":     domain.AttemptFailure,
		"843":     domain.AttemptFailure,
		"unknown": domain.AttemptPending,
	}
	for code, want := range cases {
		assert.Equal(t, want, attemptStatusFromCode(code), code)
	}
}

func TestPaymentSyncCharged(t *testing.T) {
	integ := New[domain.Card]().PaymentSync()
	env := psyncEnv()
	body := []byte(`{"body":{"resultInfo":{"resultStatus":"TXN_SUCCESS","resultCode":"01","resultMsg":"Txn Success"},"txnId":"TXN777","orderId":"order_42"}}`)
	require.NoError(t, integ.HandleResponse(env, connector.Response{StatusCode: 200, Body: body}))
	assert.Equal(t, domain.AttemptCharged, env.Common.Status)
	resp, ok := env.Response()
	require.True(t, ok)
	assert.Equal(t, "TXN777", resp.ConnectorResponseReferenceID)
}

func TestPaymentSyncFailureSettlesErrorRecord(t *testing.T) {
	integ := New[domain.Card]().PaymentSync()
	env := psyncEnv()
	body := []byte(`{"body":{"resultInfo":{"resultStatus":"TXN_FAILURE","resultCode":"227","resultMsg":"Declined by bank"},"txnId":"TXN777"}}`)
	require.NoError(t, integ.HandleResponse(env, connector.Response{StatusCode: 200, Body: body}))
	_, ok := env.Response()
	assert.False(t, ok)
	record := env.ErrorResponse()
	assert.Equal(t, "227", record.Code)
	assert.Equal(t, "Declined by bank", record.Message)
	assert.Equal(t, "TXN777", record.ConnectorTxnID)
	assert.Equal(t, domain.AttemptFailure, env.Common.Status)
}

func TestPaymentSyncRequiresTransactionID(t *testing.T) {
	integ := New[domain.Card]().PaymentSync()
	env := psyncEnv()
	env.Request.ResourceID = domain.ResponseID{}
	_, err := integ.Body(env)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrMissingConnectorTxnID))
}

func TestErrorResponseShapes(t *testing.T) {
	callback := errorResponseFrom([]byte(`{"head":{},"body":{"resultInfo":{"resultCode":"0001","resultMsg":"Failed"},"txnInfo":{"orderId":"order_42","respCode":"235","respMsg":"Wallet balance insufficient"}}}`), 400)
	assert.Equal(t, "235", callback.Code)
	assert.Equal(t, "Wallet balance insufficient", callback.Message)
	assert.Equal(t, "order_42", callback.ConnectorTxnID)

	session := errorResponseFrom([]byte(`{"body":{"resultInfo":{"resultCode":"00123","resultMsg":"Invalid checksum"}}}`), 400)
	assert.Equal(t, "00123", session.Code)

	flat := errorResponseFrom([]byte(`{"errorCode":"E42","errorMessage":"Boom","errorDescription":"bad field","transactionId":"TXN1"}`), 400)
	assert.Equal(t, "E42", flat.Code)
	assert.Equal(t, "bad field", flat.Reason)
	assert.Equal(t, "TXN1", flat.ConnectorTxnID)

	raw := errorResponseFrom([]byte(`<html>upstream down</html>`), 503)
	assert.Equal(t, "503", raw.Code)
	assert.Equal(t, "Service temporarily unavailable", raw.Message)
	assert.Contains(t, raw.Reason, "upstream down")
	require.NotNil(t, raw.AttemptStatus)
	assert.Equal(t, domain.AttemptPending, *raw.AttemptStatus)

	final := errorResponseFrom([]byte(`{}`), 400)
	require.NotNil(t, final.AttemptStatus)
	assert.Equal(t, domain.AttemptFailure, *final.AttemptStatus)
}

func TestPredicates(t *testing.T) {
	conn := New[domain.Card]()
	assert.True(t, conn.ShouldCreateSessionToken())
	assert.False(t, conn.ShouldCreateOrder())
}
