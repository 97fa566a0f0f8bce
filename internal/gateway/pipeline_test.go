package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payorch/connector-gateway/internal/connector"
	"github.com/payorch/connector-gateway/internal/domain"
	"github.com/payorch/connector-gateway/internal/observability"
)

type syncEnvelope = connector.Envelope[domain.PaymentSync, *domain.PaymentFlowData, domain.PaymentSyncRequest, domain.PaymentsResponse]

// fakeIntegration drives the pipeline with function fields.
type fakeIntegration struct {
	baseURL   string
	callOrder *[]string

	handleResponse func(e *syncEnvelope, resp connector.Response) error
	handleError    func(e *syncEnvelope, resp connector.Response) (domain.ErrorResponse, error)
}

func (f fakeIntegration) HTTPMethod() string { return http.MethodPost }

func (f fakeIntegration) URL(*syncEnvelope) (string, error) {
	if f.callOrder != nil {
		*f.callOrder = append(*f.callOrder, "url")
	}
	return f.baseURL + "/sync", nil
}

func (f fakeIntegration) Body(*syncEnvelope) (connector.RequestContent, error) {
	if f.callOrder != nil {
		*f.callOrder = append(*f.callOrder, "body")
	}
	return connector.JSONContent(map[string]string{"id": "txn_1"})
}

func (f fakeIntegration) Headers(_ *syncEnvelope, body connector.RequestContent) ([]connector.Header, error) {
	if f.callOrder != nil {
		*f.callOrder = append(*f.callOrder, "headers")
	}
	return []connector.Header{
		{Name: "Authorization", Value: "Bearer sk_test_secret", Sensitive: true},
		{Name: "X-Body-Len", Value: string(rune('0' + len(body.Body)%10))},
	}, nil
}

func (f fakeIntegration) HandleResponse(e *syncEnvelope, resp connector.Response) error {
	if f.handleResponse != nil {
		return f.handleResponse(e, resp)
	}
	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return domain.NewConnectorError(domain.ErrResponseDeserializationFailed, "fake", "payment_sync", "", err)
	}
	e.Common.Status = domain.AttemptCharged
	e.Succeed(domain.PaymentsResponse{ResourceID: domain.NewConnectorTransactionID(parsed.ID)})
	return nil
}

func (f fakeIntegration) HandleError(e *syncEnvelope, resp connector.Response) (domain.ErrorResponse, error) {
	if f.handleError != nil {
		return f.handleError(e, resp)
	}
	return domain.ErrorResponse{StatusCode: resp.StatusCode, Code: "declined", Message: "declined"}, nil
}

func newSyncEnvelope() *syncEnvelope {
	return connector.NewEnvelope[domain.PaymentSync, *domain.PaymentFlowData, domain.PaymentSyncRequest, domain.PaymentsResponse](
		&domain.PaymentFlowData{PaymentID: "pay_1"},
		domain.NewHeaderKeyAuth(domain.NewSecret("sk")),
		domain.PaymentSyncRequest{ResourceID: domain.NewConnectorTransactionID("txn_1")},
	)
}

func newTestPipeline() *Pipeline {
	return NewPipeline(&http.Client{Timeout: 2 * time.Second}, NewBreaker(3, time.Minute), observability.NewMetrics(), nil)
}

func TestExecute_SuccessPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"txn_99"}`))
	}))
	defer srv.Close()

	order := []string{}
	env := newSyncEnvelope()
	err := Execute(context.Background(), newTestPipeline(), "fake", fakeIntegration{baseURL: srv.URL, callOrder: &order}, env)
	require.NoError(t, err)

	resp, ok := env.Response()
	require.True(t, ok)
	id, err := resp.ResourceID.TransactionID()
	require.NoError(t, err)
	assert.Equal(t, "txn_99", id)
	assert.Equal(t, domain.AttemptCharged, env.Common.Status)

	raw, status := env.Common.RawResponse()
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"id":"txn_99"}`, string(raw))

	assert.Equal(t, []string{"url", "body", "headers"}, order)
}

func TestExecute_ErrorReplySettlesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":"card_declined"}`))
	}))
	defer srv.Close()

	env := newSyncEnvelope()
	err := Execute(context.Background(), newTestPipeline(), "fake", fakeIntegration{baseURL: srv.URL}, env)
	require.NoError(t, err)

	_, ok := env.Response()
	assert.False(t, ok)
	er := env.ErrorResponse()
	assert.True(t, er.Attempted())
	assert.Equal(t, http.StatusPaymentRequired, er.StatusCode)
	assert.Equal(t, "declined", er.Code)
}

type serverErrorIntegration struct {
	fakeIntegration
}

func (serverErrorIntegration) ServerErrorResponse(resp connector.Response, flow string) domain.ErrorResponse {
	return domain.ErrorResponse{
		StatusCode: resp.StatusCode,
		Code:       domain.NoErrorCode,
		Message:    "processor unavailable",
	}
}

func TestExecute_ServerErrorUsesDedicatedBranch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>upstream down</html>"))
	}))
	defer srv.Close()

	env := newSyncEnvelope()
	integ := serverErrorIntegration{fakeIntegration{baseURL: srv.URL}}
	err := Execute(context.Background(), newTestPipeline(), "fake", integ, env)
	require.NoError(t, err)

	er := env.ErrorResponse()
	assert.Equal(t, http.StatusBadGateway, er.StatusCode)
	assert.Equal(t, "processor unavailable", er.Message)
	assert.Equal(t, domain.NoErrorCode, er.Code)
}

func TestExecute_HandleResponseErrorBecomesErrorRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": truncated`))
	}))
	defer srv.Close()

	env := newSyncEnvelope()
	err := Execute(context.Background(), newTestPipeline(), "fake", fakeIntegration{baseURL: srv.URL}, env)
	require.NoError(t, err)

	er := env.ErrorResponse()
	assert.True(t, er.Attempted())
	assert.Equal(t, domain.ErrResponseDeserializationFailed, er.NetworkErrorKind)
}

func TestExecute_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	env := newSyncEnvelope()
	err := Execute(context.Background(), newTestPipeline(), "fake", fakeIntegration{baseURL: srv.URL}, env)
	require.NoError(t, err)

	er := env.ErrorResponse()
	assert.True(t, er.Attempted())
	assert.Equal(t, domain.ErrConnectorUnavailable, er.NetworkErrorKind)
}

func TestExecute_OpenCircuitBlocksWithoutNetwork(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	p := newTestPipeline()
	p.Breaker = NewBreaker(1, time.Minute)
	p.Breaker.RecordFailure("fake")

	env := newSyncEnvelope()
	err := Execute(context.Background(), p, "fake", fakeIntegration{baseURL: srv.URL}, env)
	require.NoError(t, err)

	assert.Zero(t, hits)
	er := env.ErrorResponse()
	assert.Equal(t, domain.ErrConnectorUnavailable, er.NetworkErrorKind)
	assert.Equal(t, http.StatusServiceUnavailable, er.StatusCode)
}

func TestExecute_ServerErrorsTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := newTestPipeline()
	p.Breaker = NewBreaker(2, time.Minute)

	for i := 0; i < 2; i++ {
		err := Execute(context.Background(), p, "fake", fakeIntegration{baseURL: srv.URL}, newSyncEnvelope())
		require.NoError(t, err)
	}
	assert.Equal(t, BreakerOpen, p.Breaker.State("fake"))
}
