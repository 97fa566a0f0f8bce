package fiserv

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payorch/connector-gateway/internal/amount"
	"github.com/payorch/connector-gateway/internal/connector"
	"github.com/payorch/connector-gateway/internal/domain"
	"github.com/payorch/connector-gateway/internal/signing"
)

func testAuth() domain.AuthType {
	return domain.NewSignatureKeyAuth(
		domain.NewSecret("api-key-1"),
		domain.NewSecret("merchant-77"),
		domain.NewSecret("shhh-secret"),
	)
}

func testFlowData() *domain.PaymentFlowData {
	return &domain.PaymentFlowData{
		PaymentID:                   "pay_123",
		AttemptID:                   "att_123",
		ConnectorRequestReferenceID: "ref_abc",
		Connectors: domain.Connectors{
			Fiserv: domain.ConnectorEndpoint{BaseURL: "https://cert.api.fiservapps.com/"},
		},
	}
}

func testCard() domain.Card {
	return domain.Card{
		Number:   domain.NewSecret("4111111111111111"),
		ExpMonth: "03",
		ExpYear:  "27",
		CVC:      domain.NewSecret("737"),
	}
}

func authorizeEnv(t *testing.T) *connector.Envelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[domain.Card], domain.PaymentsResponse] {
	t.Helper()
	return connector.NewEnvelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[domain.Card], domain.PaymentsResponse](
		testFlowData(), testAuth(), domain.AuthorizeRequest[domain.Card]{
			PaymentMethod: testCard(),
			MinorAmount:   1000,
			Currency:      amount.USD,
			CaptureMethod: domain.CaptureAutomatic,
		})
}

func TestAuthorizeURL(t *testing.T) {
	integ := New[domain.Card]().Authorize()
	u, err := integ.URL(authorizeEnv(t))
	require.NoError(t, err)
	assert.Equal(t, "https://cert.api.fiservapps.com/ch/payments/v1/charges", u)
}

func TestAuthorizeBody(t *testing.T) {
	integ := New[domain.Card]().Authorize()
	body, err := integ.Body(authorizeEnv(t))
	require.NoError(t, err)
	assert.Equal(t, connector.JSONBody, body.Kind)

	raw := string(body.Body)
	assert.Contains(t, raw, `"total":"10.00"`)
	assert.Contains(t, raw, `"currency":"USD"`)
	assert.Contains(t, raw, `"sourceType":"PaymentCard"`)
	assert.Contains(t, raw, `"expirationYear":"2027"`)
	assert.Contains(t, raw, `"captureFlag":true`)
	assert.Contains(t, raw, `"merchantId":"merchant-77"`)
	assert.Contains(t, raw, `"merchantTransactionId":"ref_abc"`)
	assert.Contains(t, raw, `"origin":"ECOM"`)
}

func TestAuthorizeManualCaptureFlag(t *testing.T) {
	integ := New[domain.Card]().Authorize()
	env := authorizeEnv(t)
	env.Request.CaptureMethod = domain.CaptureManual
	body, err := integ.Body(env)
	require.NoError(t, err)
	assert.Contains(t, string(body.Body), `"captureFlag":false`)
}

func TestAuthorizeRejectsSavedToken(t *testing.T) {
	integ := New[domain.SavedToken]().Authorize()
	env := connector.NewEnvelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[domain.SavedToken], domain.PaymentsResponse](
		testFlowData(), testAuth(), domain.AuthorizeRequest[domain.SavedToken]{
			PaymentMethod: domain.SavedToken{Token: domain.NewSecret("tok_1")},
			MinorAmount:   1000,
			Currency:      amount.USD,
		})
	_, err := integ.Body(env)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrNotImplemented))
}

func TestSignedHeaders(t *testing.T) {
	integ := New[domain.Card]().Authorize()
	env := authorizeEnv(t)
	body, err := integ.Body(env)
	require.NoError(t, err)

	headers, err := integ.Headers(env, body)
	require.NoError(t, err)

	byName := map[string]connector.Header{}
	for _, h := range headers {
		byName[h.Name] = h
	}
	assert.Equal(t, "api-key-1", byName["Api-Key"].Value)
	assert.True(t, byName["Api-Key"].Sensitive)
	assert.Equal(t, "HMAC", byName["Auth-Token-Type"].Value)
	assert.NotEmpty(t, byName["Client-Request-Id"].Value)
	assert.NotEmpty(t, byName["Timestamp"].Value)
	assert.True(t, byName["Authorization"].Sensitive)

	// The signature must cover key, request id, timestamp and the exact
	// body bytes, in that order.
	want := signing.SignHMACSHA256(
		[]byte("shhh-secret"),
		"api-key-1",
		byName["Client-Request-Id"].Value,
		byName["Timestamp"].Value,
		string(body.Body),
	)
	assert.Equal(t, want, byName["Authorization"].Value)
}

func TestAttemptStatusVocabulary(t *testing.T) {
	cases := map[string]domain.AttemptStatus{
		"CAPTURED":   domain.AttemptCharged,
		"SUCCEEDED":  domain.AttemptCharged,
		"AUTHORIZED": domain.AttemptAuthorized,
		"PROCESSING": domain.AttemptAuthorizing,
		"VOIDED":     domain.AttemptVoided,
		"DECLINED":   domain.AttemptFailure,
		"FAILED":     domain.AttemptFailure,
		"SOMETHING":  domain.AttemptFailure,
	}
	for state, want := range cases {
		assert.Equal(t, want, attemptStatusFrom(state), state)
	}
}

func TestRefundStatusVocabulary(t *testing.T) {
	cases := map[string]domain.RefundStatus{
		"CAPTURED":   domain.RefundSuccess,
		"SUCCEEDED":  domain.RefundSuccess,
		"AUTHORIZED": domain.RefundSuccess,
		"VOIDED":     domain.RefundPending,
		"PROCESSING": domain.RefundPending,
		"DECLINED":   domain.RefundFailure,
		"FAILED":     domain.RefundFailure,
		"WHO_KNOWS":  domain.RefundFailure,
	}
	for state, want := range cases {
		assert.Equal(t, want, refundStatusFrom(state), state)
	}
}

func chargeReply(state, txnID, orderID string) []byte {
	b, _ := json.Marshal(paymentsResponse{GatewayResponse: gatewayResponse{
		GatewayTransactionID: txnID,
		TransactionState:     state,
		TransactionProcessingDetails: transactionProcessingDetails{
			OrderID:       orderID,
			TransactionID: "proc-" + txnID,
		},
	}})
	return b
}

func TestHandleResponseCharged(t *testing.T) {
	integ := New[domain.Card]().Authorize()
	env := authorizeEnv(t)
	err := integ.HandleResponse(env, connector.Response{StatusCode: 201, Body: chargeReply("CAPTURED", "txn_9", "ord_9")})
	require.NoError(t, err)

	resp, ok := env.Response()
	require.True(t, ok)
	got, err := resp.ResourceID.TransactionID()
	require.NoError(t, err)
	assert.Equal(t, "txn_9", got)
	assert.Equal(t, "ord_9", resp.ConnectorResponseReferenceID)
	assert.Equal(t, domain.AttemptCharged, env.Common.Status)
}

func TestHandleResponseDeclinedSettlesErrorRecord(t *testing.T) {
	integ := New[domain.Card]().Authorize()
	env := authorizeEnv(t)
	err := integ.HandleResponse(env, connector.Response{StatusCode: 201, Body: chargeReply("DECLINED", "txn_9", "ord_9")})
	require.NoError(t, err)

	_, ok := env.Response()
	assert.False(t, ok)
	record := env.ErrorResponse()
	assert.True(t, record.Attempted())
	assert.Equal(t, "proc-txn_9", record.Code)
	assert.Equal(t, "txn_9", record.ConnectorTxnID)
	require.NotNil(t, record.AttemptStatus)
	assert.Equal(t, domain.AttemptFailure, *record.AttemptStatus)
	assert.Equal(t, domain.AttemptFailure, env.Common.Status)
}

func TestHandleResponseTruncatedBody(t *testing.T) {
	integ := New[domain.Card]().Authorize()
	env := authorizeEnv(t)
	err := integ.HandleResponse(env, connector.Response{StatusCode: 201, Body: []byte(`{"gatewayResponse":`)})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrResponseDeserializationFailed))
	assert.False(t, env.Settled())
}

func psyncEnv() *psyncEnvelope {
	return connector.NewEnvelope[domain.PaymentSync, *domain.PaymentFlowData, domain.PaymentSyncRequest, domain.PaymentsResponse](
		testFlowData(), testAuth(), domain.PaymentSyncRequest{
			ResourceID: domain.NewConnectorTransactionID("txn_9"),
		})
}

func TestPaymentSyncBody(t *testing.T) {
	integ := New[domain.Card]().PaymentSync()
	body, err := integ.Body(psyncEnv())
	require.NoError(t, err)
	assert.Contains(t, string(body.Body), `"referenceTransactionId":"txn_9"`)
}

func TestPaymentSyncRejectsEncodedID(t *testing.T) {
	integ := New[domain.Card]().PaymentSync()
	env := psyncEnv()
	env.Request.ResourceID = domain.NewEncodedDataID("blob")
	_, err := integ.Body(env)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrMissingConnectorTxnID))
}

func TestPaymentSyncTakesFirstRecord(t *testing.T) {
	integ := New[domain.Card]().PaymentSync()
	env := psyncEnv()
	body := []byte("[" + string(chargeReply("AUTHORIZED", "txn_9", "ord_9")) + "," + string(chargeReply("PROCESSING", "txn_8", "ord_8")) + "]")
	err := integ.HandleResponse(env, connector.Response{StatusCode: 200, Body: body})
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptAuthorized, env.Common.Status)
}

func TestPaymentSyncEmptyArray(t *testing.T) {
	integ := New[domain.Card]().PaymentSync()
	env := psyncEnv()
	err := integ.HandleResponse(env, connector.Response{StatusCode: 200, Body: []byte(`[]`)})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrResponseHandlingFailed))
}

func refundEnv() *refundEnvelope {
	common := &domain.RefundFlowData{
		RefundID: "re_1",
		Connectors: domain.Connectors{
			Fiserv: domain.ConnectorEndpoint{BaseURL: "https://cert.api.fiservapps.com"},
		},
	}
	return connector.NewEnvelope[domain.Refund, *domain.RefundFlowData, domain.RefundRequest, domain.RefundResponse](
		common, testAuth(), domain.RefundRequest{
			ConnectorTxnID:    "txn_9",
			RefundID:          "re_1",
			MinorRefundAmount: 250,
			Currency:          amount.USD,
		})
}

func TestRefundRequestAndResponse(t *testing.T) {
	integ := New[domain.Card]().Refund()

	u, err := integ.URL(refundEnv())
	require.NoError(t, err)
	assert.Equal(t, "https://cert.api.fiservapps.com/ch/payments/v1/refunds", u)

	env := refundEnv()
	body, err := integ.Body(env)
	require.NoError(t, err)
	assert.Contains(t, string(body.Body), `"total":"2.50"`)
	assert.Contains(t, string(body.Body), `"referenceTransactionId":"txn_9"`)

	err = integ.HandleResponse(env, connector.Response{StatusCode: 202, Body: chargeReply("PROCESSING", "rfnd_1", "ord_9")})
	require.NoError(t, err)
	resp, ok := env.Response()
	require.True(t, ok)
	assert.Equal(t, "rfnd_1", resp.ConnectorRefundID)
	assert.Equal(t, domain.RefundPending, resp.Status)
	assert.Equal(t, domain.RefundPending, env.Common.Status)
}

func TestRefundDeclinedSettlesErrorRecord(t *testing.T) {
	integ := New[domain.Card]().Refund()
	env := refundEnv()
	err := integ.HandleResponse(env, connector.Response{StatusCode: 200, Body: chargeReply("DECLINED", "rfnd_1", "ord_9")})
	require.NoError(t, err)
	_, ok := env.Response()
	assert.False(t, ok)
	assert.Equal(t, "proc-rfnd_1", env.ErrorResponse().Code)
	assert.Equal(t, domain.RefundFailure, env.Common.Status)
}

func TestRefundSyncRequiresRefundID(t *testing.T) {
	integ := New[domain.Card]().RefundSync()
	env := connector.NewEnvelope[domain.RefundSync, *domain.RefundFlowData, domain.RefundSyncRequest, domain.RefundResponse](
		&domain.RefundFlowData{}, testAuth(), domain.RefundSyncRequest{ConnectorTxnID: "txn_9"})
	_, err := integ.Body(env)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrMissingRequiredField))
}

func TestHandleErrorParsesDetailArrays(t *testing.T) {
	integ := New[domain.Card]().Authorize()
	env := authorizeEnv(t)

	record, err := integ.HandleError(env, connector.Response{
		StatusCode: 400,
		Body:       []byte(`{"details":[{"type":"APIError","code":"104","message":"Invalid currency","field":"amount.currency"}]}`),
	})
	require.NoError(t, err)
	assert.Equal(t, 400, record.StatusCode)
	assert.Equal(t, "104", record.Code)
	assert.Equal(t, "Invalid currency", record.Message)
	assert.Equal(t, "amount.currency", record.Reason)

	record, err = integ.HandleError(env, connector.Response{
		StatusCode: 401,
		Body:       []byte(`{"error":[{"type":"GatewayError","message":"Unauthorized"}]}`),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.NoErrorCode, record.Code)
	assert.Equal(t, "Unauthorized", record.Message)
}

func TestHandleErrorEmptyBodyFallbacks(t *testing.T) {
	integ := New[domain.Card]().Authorize()
	record, err := integ.HandleError(authorizeEnv(t), connector.Response{StatusCode: 400, Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, domain.NoErrorCode, record.Code)
	assert.Equal(t, domain.NoErrorMessage, record.Message)
}

func TestServerErrorResponse(t *testing.T) {
	integ := New[domain.Card]().Authorize()
	responder, ok := any(integ).(connector.ServerErrorResponder)
	require.True(t, ok)
	record := responder.ServerErrorResponse(connector.Response{StatusCode: 502}, "authorize")
	assert.Equal(t, 502, record.StatusCode)
	assert.Equal(t, "502", record.Code)
	require.NotNil(t, record.AttemptStatus)
	assert.Equal(t, domain.AttemptFailure, *record.AttemptStatus)
}

func TestUnimplementedFlowsStayUnsupported(t *testing.T) {
	conn := New[domain.Card]()
	_, err := conn.CreateOrder().URL(connector.NewEnvelope[domain.CreateOrder, *domain.PaymentFlowData, domain.CreateOrderRequest, domain.CreateOrderResponse](
		testFlowData(), testAuth(), domain.CreateOrderRequest{}))
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrFlowNotSupported))
	assert.False(t, conn.ShouldCreateOrder())
	assert.False(t, conn.ShouldCreateSessionToken())
}

func TestExpiryYearWidening(t *testing.T) {
	got, err := expiryYear4("27")
	require.NoError(t, err)
	assert.Equal(t, "2027", got)

	got, err = expiryYear4("2031")
	require.NoError(t, err)
	assert.Equal(t, "2031", got)

	_, err = expiryYear4("7")
	assert.Error(t, err)
}
