// Package fiserv speaks the Commerce Hub charge API: JSON bodies over
// POST, every request signed with an HMAC over the api key, a per-request
// id, a millisecond timestamp and the exact body bytes.
package fiserv

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/payorch/connector-gateway/internal/connector"
	"github.com/payorch/connector-gateway/internal/domain"
	"github.com/payorch/connector-gateway/internal/signing"
)

const Name = "fiserv"

const (
	chargesPath = "/ch/payments/v1/charges"
	inquiryPath = "/ch/payments/v1/transaction-inquiry"
	cancelsPath = "/ch/payments/v1/cancels"
	refundsPath = "/ch/payments/v1/refunds"
)

// Connector implements the payment, sync and refund flows against Commerce
// Hub. Orders, session tokens, mandates and disputes are not part of this
// processor's surface and stay on the embedded defaults.
type Connector[PM domain.PaymentMethodData] struct {
	connector.Base[PM]
}

func New[PM domain.PaymentMethodData]() *Connector[PM] {
	return &Connector[PM]{Base: connector.NewBase[PM](Name)}
}

func (c *Connector[PM]) Authorize() connector.AuthorizeIntegration[PM] {
	return authorizeIntegration[PM]{}
}

func (c *Connector[PM]) Capture() connector.CaptureIntegration { return captureIntegration{} }

func (c *Connector[PM]) Void() connector.VoidIntegration { return voidIntegration{} }

func (c *Connector[PM]) PaymentSync() connector.PaymentSyncIntegration { return psyncIntegration{} }

func (c *Connector[PM]) Refund() connector.RefundIntegration { return refundIntegration{} }

func (c *Connector[PM]) RefundSync() connector.RefundSyncIntegration { return rsyncIntegration{} }

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

// credentials unpacks the signature-key triple: api key, merchant id and
// the HMAC secret.
func credentials(auth domain.AuthType, flow string) (apiKey, merchantID, apiSecret domain.Secret, err error) {
	apiKey, merchantID, apiSecret, err = auth.SignatureKey()
	if err != nil {
		err = domain.NewConnectorError(domain.ErrAuthTypeResolutionFailed, Name, flow, "", err)
	}
	return
}

// signedHeaders builds the Commerce Hub auth headers. The signature covers
// the api key, a fresh client request id, the timestamp and the final body
// bytes, in that order.
func signedHeaders(auth domain.AuthType, body connector.RequestContent, flow string) ([]connector.Header, error) {
	apiKey, _, apiSecret, err := credentials(auth, flow)
	if err != nil {
		return nil, err
	}
	requestID := signing.ClientRequestID()
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	signature := signing.SignHMACSHA256(
		[]byte(apiSecret.Peek()),
		apiKey.Peek(), requestID, timestamp, string(body.Body),
	)
	return []connector.Header{
		{Name: "Api-Key", Value: apiKey.Peek(), Sensitive: true},
		{Name: "Client-Request-Id", Value: requestID},
		{Name: "Timestamp", Value: timestamp},
		{Name: "Auth-Token-Type", Value: "HMAC"},
		{Name: "Authorization", Value: signature, Sensitive: true},
	}, nil
}

func merchant(auth domain.AuthType, flow string) (merchantDetails, error) {
	_, merchantID, _, err := credentials(auth, flow)
	if err != nil {
		return merchantDetails{}, err
	}
	return merchantDetails{MerchantID: merchantID.Peek()}, nil
}

// serverErrors settles processor 5xx replies without attempting to decode
// an error body the edge never produced.
type serverErrors struct{}

func (serverErrors) ServerErrorResponse(resp connector.Response, flow string) domain.ErrorResponse {
	failure := domain.AttemptFailure
	return domain.ErrorResponse{
		StatusCode:    resp.StatusCode,
		Code:          strconv.Itoa(resp.StatusCode),
		Message:       http.StatusText(resp.StatusCode),
		Reason:        flow + " rejected upstream",
		AttemptStatus: &failure,
	}
}

type authorizeIntegration[PM domain.PaymentMethodData] struct{ serverErrors }

func (authorizeIntegration[PM]) HTTPMethod() string { return http.MethodPost }

func (authorizeIntegration[PM]) URL(e *connector.Envelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[PM], domain.PaymentsResponse]) (string, error) {
	return joinURL(e.Common.Connectors.Fiserv.BaseURL, chargesPath), nil
}

func (authorizeIntegration[PM]) Body(e *connector.Envelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[PM], domain.PaymentsResponse]) (connector.RequestContent, error) {
	const flow = "authorize"
	wire, err := wireAmountFrom(e.Request.MinorAmount, e.Request.Currency, flow)
	if err != nil {
		return connector.RequestContent{}, err
	}
	source, err := cardSource(e.Request.PaymentMethod, flow)
	if err != nil {
		return connector.RequestContent{}, err
	}
	md, err := merchant(e.Auth, flow)
	if err != nil {
		return connector.RequestContent{}, err
	}
	md.TerminalID = e.Request.Metadata["terminal_id"]
	captureFlag := e.Request.CaptureMethod == domain.CaptureAutomatic
	return connector.JSONContent(paymentsRequest{
		Amount: wire,
		Source: source,
		TransactionDetails: transactionDetails{
			CaptureFlag:           &captureFlag,
			MerchantTransactionID: e.Common.ConnectorRequestReferenceID,
		},
		MerchantDetails:        md,
		TransactionInteraction: defaultInteraction(),
	})
}

func (authorizeIntegration[PM]) Headers(e *connector.Envelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[PM], domain.PaymentsResponse], body connector.RequestContent) ([]connector.Header, error) {
	return signedHeaders(e.Auth, body, "authorize")
}

func (authorizeIntegration[PM]) HandleResponse(e *connector.Envelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[PM], domain.PaymentsResponse], resp connector.Response) error {
	parsed, err := parseGatewayBody(resp.Body, "authorize")
	if err != nil {
		return err
	}
	settlePayment(e, parsed.GatewayResponse, resp.StatusCode)
	return nil
}

func (authorizeIntegration[PM]) HandleError(e *connector.Envelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[PM], domain.PaymentsResponse], resp connector.Response) (domain.ErrorResponse, error) {
	return errorResponseFrom(resp.Body, resp.StatusCode)
}

type captureIntegration struct{ serverErrors }

func (captureIntegration) HTTPMethod() string { return http.MethodPost }

func (captureIntegration) URL(e *captureEnvelope) (string, error) {
	return joinURL(e.Common.Connectors.Fiserv.BaseURL, chargesPath), nil
}

func (captureIntegration) Body(e *captureEnvelope) (connector.RequestContent, error) {
	const flow = "capture"
	wire, err := wireAmountFrom(e.Request.MinorAmount, e.Request.Currency, flow)
	if err != nil {
		return connector.RequestContent{}, err
	}
	md, err := merchant(e.Auth, flow)
	if err != nil {
		return connector.RequestContent{}, err
	}
	captureFlag := true
	return connector.JSONContent(captureRequest{
		Amount: wire,
		TransactionDetails: transactionDetails{
			CaptureFlag:           &captureFlag,
			MerchantTransactionID: e.Common.ConnectorRequestReferenceID,
		},
		MerchantDetails:             md,
		ReferenceTransactionDetails: referenceTransactionDetails{ReferenceTransactionID: e.Request.ConnectorTxnID},
	})
}

func (captureIntegration) Headers(e *captureEnvelope, body connector.RequestContent) ([]connector.Header, error) {
	return signedHeaders(e.Auth, body, "capture")
}

func (captureIntegration) HandleResponse(e *captureEnvelope, resp connector.Response) error {
	parsed, err := parseGatewayBody(resp.Body, "capture")
	if err != nil {
		return err
	}
	settlePayment(e, parsed.GatewayResponse, resp.StatusCode)
	return nil
}

func (captureIntegration) HandleError(e *captureEnvelope, resp connector.Response) (domain.ErrorResponse, error) {
	return errorResponseFrom(resp.Body, resp.StatusCode)
}

type voidIntegration struct{ serverErrors }

func (voidIntegration) HTTPMethod() string { return http.MethodPost }

func (voidIntegration) URL(e *voidEnvelope) (string, error) {
	return joinURL(e.Common.Connectors.Fiserv.BaseURL, cancelsPath), nil
}

func (voidIntegration) Body(e *voidEnvelope) (connector.RequestContent, error) {
	md, err := merchant(e.Auth, "void")
	if err != nil {
		return connector.RequestContent{}, err
	}
	return connector.JSONContent(voidRequest{
		TransactionDetails: transactionDetails{
			ReversalReasonCode:    e.Request.CancellationReason,
			MerchantTransactionID: e.Common.ConnectorRequestReferenceID,
		},
		MerchantDetails:             md,
		ReferenceTransactionDetails: referenceTransactionDetails{ReferenceTransactionID: e.Request.ConnectorTxnID},
	})
}

func (voidIntegration) Headers(e *voidEnvelope, body connector.RequestContent) ([]connector.Header, error) {
	return signedHeaders(e.Auth, body, "void")
}

func (voidIntegration) HandleResponse(e *voidEnvelope, resp connector.Response) error {
	parsed, err := parseGatewayBody(resp.Body, "void")
	if err != nil {
		return err
	}
	settlePayment(e, parsed.GatewayResponse, resp.StatusCode)
	return nil
}

func (voidIntegration) HandleError(e *voidEnvelope, resp connector.Response) (domain.ErrorResponse, error) {
	return errorResponseFrom(resp.Body, resp.StatusCode)
}

type psyncIntegration struct{ serverErrors }

func (psyncIntegration) HTTPMethod() string { return http.MethodPost }

func (psyncIntegration) URL(e *psyncEnvelope) (string, error) {
	return joinURL(e.Common.Connectors.Fiserv.BaseURL, inquiryPath), nil
}

func (psyncIntegration) Body(e *psyncEnvelope) (connector.RequestContent, error) {
	const flow = "payment_sync"
	txnID, err := e.Request.ResourceID.TransactionID()
	if err != nil {
		return connector.RequestContent{}, domain.NewConnectorError(domain.ErrMissingConnectorTxnID, Name, flow, "", err)
	}
	md, err := merchant(e.Auth, flow)
	if err != nil {
		return connector.RequestContent{}, err
	}
	return connector.JSONContent(inquiryRequest{
		MerchantDetails:             md,
		ReferenceTransactionDetails: referenceTransactionDetails{ReferenceTransactionID: txnID},
	})
}

func (psyncIntegration) Headers(e *psyncEnvelope, body connector.RequestContent) ([]connector.Header, error) {
	return signedHeaders(e.Auth, body, "payment_sync")
}

// HandleResponse decodes the inquiry reply, a JSON array of charge-shaped
// records. The latest record is first; an empty array means the processor
// does not know the transaction.
func (psyncIntegration) HandleResponse(e *psyncEnvelope, resp connector.Response) error {
	const flow = "payment_sync"
	var parsed []paymentsResponse
	if err := jsonUnmarshal(resp.Body, &parsed, flow); err != nil {
		return err
	}
	if len(parsed) == 0 {
		return domain.NewConnectorError(domain.ErrResponseHandlingFailed, Name, flow, "empty inquiry result", nil)
	}
	settlePayment(e, parsed[0].GatewayResponse, resp.StatusCode)
	return nil
}

func (psyncIntegration) HandleError(e *psyncEnvelope, resp connector.Response) (domain.ErrorResponse, error) {
	return errorResponseFrom(resp.Body, resp.StatusCode)
}

type refundIntegration struct{ serverErrors }

func (refundIntegration) HTTPMethod() string { return http.MethodPost }

func (refundIntegration) URL(e *refundEnvelope) (string, error) {
	return joinURL(e.Common.Connectors.Fiserv.BaseURL, refundsPath), nil
}

func (refundIntegration) Body(e *refundEnvelope) (connector.RequestContent, error) {
	const flow = "refund"
	wire, err := wireAmountFrom(e.Request.MinorRefundAmount, e.Request.Currency, flow)
	if err != nil {
		return connector.RequestContent{}, err
	}
	md, err := merchant(e.Auth, flow)
	if err != nil {
		return connector.RequestContent{}, err
	}
	return connector.JSONContent(refundRequest{
		Amount:                      wire,
		MerchantDetails:             md,
		ReferenceTransactionDetails: referenceTransactionDetails{ReferenceTransactionID: e.Request.ConnectorTxnID},
	})
}

func (refundIntegration) Headers(e *refundEnvelope, body connector.RequestContent) ([]connector.Header, error) {
	return signedHeaders(e.Auth, body, "refund")
}

func (refundIntegration) HandleResponse(e *refundEnvelope, resp connector.Response) error {
	parsed, err := parseGatewayBody(resp.Body, "refund")
	if err != nil {
		return err
	}
	settleRefund(e, parsed.GatewayResponse, resp.StatusCode)
	return nil
}

func (refundIntegration) HandleError(e *refundEnvelope, resp connector.Response) (domain.ErrorResponse, error) {
	return errorResponseFrom(resp.Body, resp.StatusCode)
}

type rsyncIntegration struct{ serverErrors }

func (rsyncIntegration) HTTPMethod() string { return http.MethodPost }

func (rsyncIntegration) URL(e *rsyncEnvelope) (string, error) {
	return joinURL(e.Common.Connectors.Fiserv.BaseURL, inquiryPath), nil
}

func (rsyncIntegration) Body(e *rsyncEnvelope) (connector.RequestContent, error) {
	const flow = "refund_sync"
	refundID := e.Request.ConnectorRefundID
	if refundID == "" {
		return connector.RequestContent{}, domain.NewConnectorError(domain.ErrMissingRequiredField, Name, flow, "connector refund id", nil)
	}
	md, err := merchant(e.Auth, flow)
	if err != nil {
		return connector.RequestContent{}, err
	}
	return connector.JSONContent(inquiryRequest{
		MerchantDetails:             md,
		ReferenceTransactionDetails: referenceTransactionDetails{ReferenceTransactionID: refundID},
	})
}

func (rsyncIntegration) Headers(e *rsyncEnvelope, body connector.RequestContent) ([]connector.Header, error) {
	return signedHeaders(e.Auth, body, "refund_sync")
}

func (rsyncIntegration) HandleResponse(e *rsyncEnvelope, resp connector.Response) error {
	const flow = "refund_sync"
	var parsed []paymentsResponse
	if err := jsonUnmarshal(resp.Body, &parsed, flow); err != nil {
		return err
	}
	if len(parsed) == 0 {
		return domain.NewConnectorError(domain.ErrResponseHandlingFailed, Name, flow, "empty inquiry result", nil)
	}
	settleRefund(e, parsed[0].GatewayResponse, resp.StatusCode)
	return nil
}

func (rsyncIntegration) HandleError(e *rsyncEnvelope, resp connector.Response) (domain.ErrorResponse, error) {
	return errorResponseFrom(resp.Body, resp.StatusCode)
}

// Envelope shorthands for this package's non-parametric integrations. The
// authorize envelope stays spelled out because type aliases cannot carry a
// type parameter.
type (
	captureEnvelope = connector.Envelope[domain.Capture, *domain.PaymentFlowData, domain.CaptureRequest, domain.PaymentsResponse]
	voidEnvelope    = connector.Envelope[domain.Void, *domain.PaymentFlowData, domain.VoidRequest, domain.PaymentsResponse]
	psyncEnvelope   = connector.Envelope[domain.PaymentSync, *domain.PaymentFlowData, domain.PaymentSyncRequest, domain.PaymentsResponse]
	refundEnvelope  = connector.Envelope[domain.Refund, *domain.RefundFlowData, domain.RefundRequest, domain.RefundResponse]
	rsyncEnvelope   = connector.Envelope[domain.RefundSync, *domain.RefundFlowData, domain.RefundSyncRequest, domain.RefundResponse]
)
