package connector

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payorch/connector-gateway/internal/domain"
)

type authorizeEnvelope = Envelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[domain.Card], domain.PaymentsResponse]

func newAuthorizeEnvelope() *authorizeEnvelope {
	return NewEnvelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[domain.Card], domain.PaymentsResponse](
		&domain.PaymentFlowData{PaymentID: "pay_1"},
		domain.NewHeaderKeyAuth(domain.NewSecret("sk_test")),
		domain.AuthorizeRequest[domain.Card]{},
	)
}

func TestEnvelopeStartsUnsettled(t *testing.T) {
	e := newAuthorizeEnvelope()

	assert.False(t, e.Settled())
	_, ok := e.Response()
	assert.False(t, ok)
	assert.False(t, e.ErrorResponse().Attempted())
	assert.Equal(t, "authorize", e.FlowName())
}

func TestEnvelopeSucceedIsWriteOnce(t *testing.T) {
	e := newAuthorizeEnvelope()
	e.Succeed(domain.PaymentsResponse{ResourceID: domain.NewConnectorTransactionID("txn_1")})
	e.Fail(domain.ErrorResponseFrom(domain.NewConnectorError(domain.ErrUnexpectedResponse, "x", "authorize", "", nil), 500))

	resp, ok := e.Response()
	require.True(t, ok)
	id, err := resp.ResourceID.TransactionID()
	require.NoError(t, err)
	assert.Equal(t, "txn_1", id)
	assert.False(t, e.ErrorResponse().Attempted())
}

func TestEnvelopeFailIsWriteOnce(t *testing.T) {
	e := newAuthorizeEnvelope()
	e.Fail(domain.ErrorResponseFrom(domain.NewConnectorError(domain.ErrResponseHandlingFailed, "x", "authorize", "", nil), 502))
	e.Succeed(domain.PaymentsResponse{})

	_, ok := e.Response()
	assert.False(t, ok)
	assert.True(t, e.ErrorResponse().Attempted())
	assert.Equal(t, 502, e.ErrorResponse().StatusCode)
}

func TestUnsupportedFailsBeforeNetwork(t *testing.T) {
	u := Unsupported[domain.Capture, *domain.PaymentFlowData, domain.CaptureRequest, domain.PaymentsResponse]{Connector: "acme"}
	e := NewEnvelope[domain.Capture, *domain.PaymentFlowData, domain.CaptureRequest, domain.PaymentsResponse](
		&domain.PaymentFlowData{}, domain.NewNoAuth(), domain.CaptureRequest{})

	_, err := u.URL(e)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrFlowNotSupported))
	assert.Contains(t, err.Error(), "acme")
	assert.Contains(t, err.Error(), "capture")

	_, err = u.Body(e)
	assert.True(t, domain.IsKind(err, domain.ErrFlowNotSupported))
	err = u.HandleResponse(e, Response{StatusCode: 200})
	assert.True(t, domain.IsKind(err, domain.ErrFlowNotSupported))
}

func TestBaseStubsEveryFlow(t *testing.T) {
	b := NewBase[domain.Card]("acme")

	assert.Equal(t, "acme", b.Name())
	assert.False(t, b.ShouldCreateOrder())
	assert.False(t, b.ShouldCreateSessionToken())
	assert.NoError(t, b.ValidateCapture(domain.CaptureManual))

	e := NewEnvelope[domain.Refund, *domain.RefundFlowData, domain.RefundRequest, domain.RefundResponse](
		&domain.RefundFlowData{}, domain.NewNoAuth(), domain.RefundRequest{})
	_, err := b.Refund().URL(e)
	assert.True(t, domain.IsKind(err, domain.ErrFlowNotSupported))

	_, err = b.WebhookEventType(domain.RequestDetails{})
	assert.True(t, domain.IsKind(err, domain.ErrNotImplemented))
}

type fakeConnector struct {
	Base[domain.Card]
}

func TestRegistryLookup(t *testing.T) {
	reg, err := NewRegistry[domain.Card](
		fakeConnector{NewBase[domain.Card]("acme")},
		fakeConnector{NewBase[domain.Card]("globex")},
	)
	require.NoError(t, err)

	c, err := reg.Lookup("acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", c.Name())

	_, err = reg.Lookup("nope")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrNotImplemented))

	assert.Equal(t, []string{"acme", "globex"}, reg.Names())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry[domain.Card](
		fakeConnector{NewBase[domain.Card]("acme")},
		fakeConnector{NewBase[domain.Card]("acme")},
	)
	assert.Error(t, err)
}

func TestRequestContent(t *testing.T) {
	c, err := JSONContent(map[string]string{"amount": "10.00"})
	require.NoError(t, err)
	assert.Equal(t, JSONBody, c.Kind)
	assert.JSONEq(t, `{"amount":"10.00"}`, string(c.Body))
	assert.Equal(t, "application/json", c.ContentType())

	f := FormContent(url.Values{"a": {"1"}})
	assert.Equal(t, "a=1", string(f.Body))
	assert.Equal(t, "application/x-www-form-urlencoded", f.ContentType())

	assert.Empty(t, EmptyContent().ContentType())
}

func TestResponseServerError(t *testing.T) {
	assert.True(t, Response{StatusCode: 503}.ServerError())
	assert.False(t, Response{StatusCode: 404}.ServerError())
	assert.False(t, Response{StatusCode: 200}.ServerError())
}
