// Package razorpay speaks the Razorpay v1 REST API. Every payment hangs
// off a server-side order, so the order pre-step runs before authorize and
// its id is echoed on the payment create call. Requests authenticate with
// HTTP basic auth over the key id and secret; webhook notifications are
// verified against an HMAC-SHA256 hex signature over the raw body.
package razorpay

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/payorch/connector-gateway/internal/connector"
	"github.com/payorch/connector-gateway/internal/domain"
	"github.com/payorch/connector-gateway/internal/signing"
)

const Name = "razorpay"

const (
	ordersPath    = "/v1/orders"
	authorizePath = "/v1/payments/create/json"
	paymentsPath  = "/v1/payments/"
	refundsPath   = "/v1/refunds/"

	signatureHeader = "X-Razorpay-Signature"
)

// Connector implements the order pre-step, payment, sync and refund flows
// plus webhook classification. Void is not part of Razorpay's API surface
// (authorizations lapse server-side) and stays on the embedded default, as
// do mandates and disputes.
type Connector[PM domain.PaymentMethodData] struct {
	connector.Base[PM]
}

func New[PM domain.PaymentMethodData]() *Connector[PM] {
	return &Connector[PM]{Base: connector.NewBase[PM](Name)}
}

func (c *Connector[PM]) ShouldCreateOrder() bool { return true }

func (c *Connector[PM]) Authorize() connector.AuthorizeIntegration[PM] {
	return authorizeIntegration[PM]{}
}

func (c *Connector[PM]) CreateOrder() connector.CreateOrderIntegration { return orderIntegration{} }

func (c *Connector[PM]) Capture() connector.CaptureIntegration { return captureIntegration{} }

func (c *Connector[PM]) PaymentSync() connector.PaymentSyncIntegration { return psyncIntegration{} }

func (c *Connector[PM]) Refund() connector.RefundIntegration { return refundIntegration{} }

func (c *Connector[PM]) RefundSync() connector.RefundSyncIntegration { return rsyncIntegration{} }

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

// authorizationHeader builds the basic-auth header from whichever
// credential shape carries the key pair. A lone header key is passed
// through as a bearer token for OAuth-provisioned accounts.
func authorizationHeader(auth domain.AuthType, flow string) (connector.Header, error) {
	var value string
	switch auth.Kind() {
	case domain.AuthHeaderKey:
		token, err := auth.HeaderKey()
		if err != nil {
			return connector.Header{}, domain.NewConnectorError(domain.ErrAuthTypeResolutionFailed, Name, flow, "", err)
		}
		value = "Bearer " + token.Peek()
	case domain.AuthBodyKey:
		keyID, secret, err := auth.BodyKey()
		if err != nil {
			return connector.Header{}, domain.NewConnectorError(domain.ErrAuthTypeResolutionFailed, Name, flow, "", err)
		}
		value = "Basic " + base64.StdEncoding.EncodeToString([]byte(keyID.Peek()+":"+secret.Peek()))
	case domain.AuthSignatureKey:
		keyID, _, secret, err := auth.SignatureKey()
		if err != nil {
			return connector.Header{}, domain.NewConnectorError(domain.ErrAuthTypeResolutionFailed, Name, flow, "", err)
		}
		value = "Basic " + base64.StdEncoding.EncodeToString([]byte(keyID.Peek()+":"+secret.Peek()))
	default:
		return connector.Header{}, domain.NewConnectorError(domain.ErrAuthTypeResolutionFailed, Name, flow, "unsupported credential shape", nil)
	}
	return connector.Header{Name: "Authorization", Value: value, Sensitive: true}, nil
}

func authHeaders(auth domain.AuthType, flow string) ([]connector.Header, error) {
	h, err := authorizationHeader(auth, flow)
	if err != nil {
		return nil, err
	}
	return []connector.Header{h}, nil
}

// serverErrors routes 5xx replies through the same error body parser as
// client rejections; Razorpay keeps its error contract even when throttling.
type serverErrors struct{}

func (serverErrors) ServerErrorResponse(resp connector.Response, _ string) domain.ErrorResponse {
	return errorResponseFrom(resp.Body, resp.StatusCode)
}

type orderIntegration struct{ serverErrors }

func (orderIntegration) HTTPMethod() string { return http.MethodPost }

func (orderIntegration) URL(e *orderEnvelope) (string, error) {
	return joinURL(e.Common.Connectors.Razorpay.BaseURL, ordersPath), nil
}

func (orderIntegration) Body(e *orderEnvelope) (connector.RequestContent, error) {
	return connector.JSONContent(orderRequest{
		Amount:         e.Request.MinorAmount,
		Currency:       string(e.Request.Currency),
		Receipt:        e.Common.ConnectorRequestReferenceID,
		PaymentCapture: true,
	})
}

func (orderIntegration) Headers(e *orderEnvelope, _ connector.RequestContent) ([]connector.Header, error) {
	return authHeaders(e.Auth, "create_order")
}

func (orderIntegration) HandleResponse(e *orderEnvelope, resp connector.Response) error {
	var parsed orderResponse
	if err := jsonUnmarshal(resp.Body, &parsed, "create_order"); err != nil {
		return err
	}
	e.Succeed(domain.CreateOrderResponse{OrderID: parsed.ID})
	return nil
}

func (orderIntegration) HandleError(e *orderEnvelope, resp connector.Response) (domain.ErrorResponse, error) {
	return errorResponseFrom(resp.Body, resp.StatusCode), nil
}

type authorizeIntegration[PM domain.PaymentMethodData] struct{ serverErrors }

func (authorizeIntegration[PM]) HTTPMethod() string { return http.MethodPost }

func (authorizeIntegration[PM]) URL(e *connector.Envelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[PM], domain.PaymentsResponse]) (string, error) {
	return joinURL(e.Common.Connectors.Razorpay.BaseURL, authorizePath), nil
}

func (authorizeIntegration[PM]) Body(e *connector.Envelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[PM], domain.PaymentsResponse]) (connector.RequestContent, error) {
	const flow = "authorize"
	if e.Common.ReferenceID == "" {
		return connector.RequestContent{}, domain.NewConnectorError(domain.ErrMissingRequiredField, Name, flow, "order id", nil)
	}
	if e.Request.Email == "" {
		return connector.RequestContent{}, domain.NewConnectorError(domain.ErrMissingRequiredField, Name, flow, "email", nil)
	}
	contact := e.Request.Metadata["contact"]
	if contact == "" {
		return connector.RequestContent{}, domain.NewConnectorError(domain.ErrMissingRequiredField, Name, flow, "contact", nil)
	}
	card, err := cardSource(e.Request.PaymentMethod, e.Request.CustomerName, flow)
	if err != nil {
		return connector.RequestContent{}, err
	}
	return connector.JSONContent(paymentRequest{
		Amount:         e.Request.MinorAmount,
		Currency:       string(e.Request.Currency),
		Contact:        contact,
		Email:          e.Request.Email,
		OrderID:        e.Common.ReferenceID,
		Method:         methodCard,
		Card:           card,
		Authentication: authenticationDetails{AuthenticationChannel: channelApp},
		IP:             defaultClientIP,
		Referer:        e.Request.ReturnURL,
		UserAgent:      defaultUserAgent,
	})
}

func (authorizeIntegration[PM]) Headers(e *connector.Envelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[PM], domain.PaymentsResponse], _ connector.RequestContent) ([]connector.Header, error) {
	return authHeaders(e.Auth, "authorize")
}

// HandleResponse settles the created payment. The create endpoint always
// answers with a next-action redirect for 3DS; its absence is a contract
// violation, not a frictionless success.
func (authorizeIntegration[PM]) HandleResponse(e *connector.Envelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[PM], domain.PaymentsResponse], resp connector.Response) error {
	const flow = "authorize"
	var parsed paymentResponse
	if err := jsonUnmarshal(resp.Body, &parsed, flow); err != nil {
		return err
	}
	if len(parsed.Next) == 0 || parsed.Next[0].URL == "" {
		return domain.NewConnectorError(domain.ErrMissingRequiredField, Name, flow, "next.url", nil)
	}
	e.Common.Status = domain.AttemptAuthenticationPending
	e.Succeed(domain.PaymentsResponse{
		ResourceID: domain.NewConnectorTransactionID(parsed.RazorpayPaymentID),
		Redirect: &domain.RedirectForm{
			URL:    parsed.Next[0].URL,
			Method: http.MethodGet,
		},
		ConnectorResponseReferenceID: e.Common.ReferenceID,
	})
	return nil
}

func (authorizeIntegration[PM]) HandleError(e *connector.Envelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[PM], domain.PaymentsResponse], resp connector.Response) (domain.ErrorResponse, error) {
	return errorResponseFrom(resp.Body, resp.StatusCode), nil
}

type captureIntegration struct{ serverErrors }

func (captureIntegration) HTTPMethod() string { return http.MethodPost }

func (captureIntegration) URL(e *captureEnvelope) (string, error) {
	const flow = "capture"
	if e.Request.ConnectorTxnID == "" {
		return "", domain.NewConnectorError(domain.ErrMissingConnectorTxnID, Name, flow, "", nil)
	}
	return joinURL(e.Common.Connectors.Razorpay.BaseURL, paymentsPath+e.Request.ConnectorTxnID+"/capture"), nil
}

func (captureIntegration) Body(e *captureEnvelope) (connector.RequestContent, error) {
	return connector.JSONContent(captureRequest{
		Amount:   e.Request.MinorAmount,
		Currency: string(e.Request.Currency),
	})
}

func (captureIntegration) Headers(e *captureEnvelope, _ connector.RequestContent) ([]connector.Header, error) {
	return authHeaders(e.Auth, "capture")
}

func (captureIntegration) HandleResponse(e *captureEnvelope, resp connector.Response) error {
	const flow = "capture"
	var parsed captureResponse
	if err := jsonUnmarshal(resp.Body, &parsed, flow); err != nil {
		return err
	}
	status, ok := captureStatusFrom(parsed.Status)
	if !ok {
		return domain.NewConnectorError(domain.ErrResponseHandlingFailed, Name, flow, "unknown payment state: "+parsed.Status, nil)
	}
	e.Common.Status = status
	e.Succeed(domain.PaymentsResponse{
		ResourceID:                   domain.NewConnectorTransactionID(parsed.ID),
		ConnectorResponseReferenceID: parsed.OrderID,
	})
	return nil
}

func (captureIntegration) HandleError(e *captureEnvelope, resp connector.Response) (domain.ErrorResponse, error) {
	return errorResponseFrom(resp.Body, resp.StatusCode), nil
}

type psyncIntegration struct{ serverErrors }

func (psyncIntegration) HTTPMethod() string { return http.MethodGet }

func (psyncIntegration) URL(e *psyncEnvelope) (string, error) {
	const flow = "payment_sync"
	txnID, err := e.Request.ResourceID.TransactionID()
	if err != nil {
		return "", domain.NewConnectorError(domain.ErrMissingConnectorTxnID, Name, flow, "", err)
	}
	return joinURL(e.Common.Connectors.Razorpay.BaseURL, paymentsPath+txnID), nil
}

func (psyncIntegration) Body(*psyncEnvelope) (connector.RequestContent, error) {
	return connector.EmptyContent(), nil
}

func (psyncIntegration) Headers(e *psyncEnvelope, _ connector.RequestContent) ([]connector.Header, error) {
	return authHeaders(e.Auth, "payment_sync")
}

// HandleResponse records the payment-object state. A failed payment still
// settles as success with Failure status; the error detail lives on the
// payment object and is surfaced by the record, not an error settlement.
func (psyncIntegration) HandleResponse(e *psyncEnvelope, resp connector.Response) error {
	const flow = "payment_sync"
	var parsed psyncResponse
	if err := jsonUnmarshal(resp.Body, &parsed, flow); err != nil {
		return err
	}
	status, ok := paymentStatusFrom(parsed.Status)
	if !ok {
		return domain.NewConnectorError(domain.ErrResponseHandlingFailed, Name, flow, "unknown payment state: "+parsed.Status, nil)
	}
	e.Common.Status = status
	e.Succeed(domain.PaymentsResponse{
		ResourceID:                   domain.NewConnectorTransactionID(parsed.ID),
		ConnectorResponseReferenceID: parsed.OrderID,
	})
	return nil
}

func (psyncIntegration) HandleError(e *psyncEnvelope, resp connector.Response) (domain.ErrorResponse, error) {
	return errorResponseFrom(resp.Body, resp.StatusCode), nil
}

type refundIntegration struct{ serverErrors }

func (refundIntegration) HTTPMethod() string { return http.MethodPost }

func (refundIntegration) URL(e *refundEnvelope) (string, error) {
	const flow = "refund"
	if e.Request.ConnectorTxnID == "" {
		return "", domain.NewConnectorError(domain.ErrMissingConnectorTxnID, Name, flow, "", nil)
	}
	return joinURL(e.Common.Connectors.Razorpay.BaseURL, paymentsPath+e.Request.ConnectorTxnID+"/refund"), nil
}

func (refundIntegration) Body(e *refundEnvelope) (connector.RequestContent, error) {
	return connector.JSONContent(refundRequest{Amount: e.Request.MinorRefundAmount})
}

func (refundIntegration) Headers(e *refundEnvelope, _ connector.RequestContent) ([]connector.Header, error) {
	return authHeaders(e.Auth, "refund")
}

func (refundIntegration) HandleResponse(e *refundEnvelope, resp connector.Response) error {
	const flow = "refund"
	return settleRefund(e, resp.Body, flow)
}

func (refundIntegration) HandleError(e *refundEnvelope, resp connector.Response) (domain.ErrorResponse, error) {
	return errorResponseFrom(resp.Body, resp.StatusCode), nil
}

type rsyncIntegration struct{ serverErrors }

func (rsyncIntegration) HTTPMethod() string { return http.MethodGet }

func (rsyncIntegration) URL(e *rsyncEnvelope) (string, error) {
	const flow = "refund_sync"
	if e.Request.ConnectorRefundID == "" {
		return "", domain.NewConnectorError(domain.ErrMissingRequiredField, Name, flow, "connector refund id", nil)
	}
	return joinURL(e.Common.Connectors.Razorpay.BaseURL, refundsPath+e.Request.ConnectorRefundID), nil
}

func (rsyncIntegration) Body(*rsyncEnvelope) (connector.RequestContent, error) {
	return connector.EmptyContent(), nil
}

func (rsyncIntegration) Headers(e *rsyncEnvelope, _ connector.RequestContent) ([]connector.Header, error) {
	return authHeaders(e.Auth, "refund_sync")
}

func (rsyncIntegration) HandleResponse(e *rsyncEnvelope, resp connector.Response) error {
	const flow = "refund_sync"
	return settleRefund(e, resp.Body, flow)
}

func (rsyncIntegration) HandleError(e *rsyncEnvelope, resp connector.Response) (domain.ErrorResponse, error) {
	return errorResponseFrom(resp.Body, resp.StatusCode), nil
}

// settleRefund decodes a refund object and writes the canonical outcome.
// Shared by refund and refund-sync; the two flows answer with the same
// entity.
func settleRefund[F domain.Flow, Req any](e *connector.Envelope[F, *domain.RefundFlowData, Req, domain.RefundResponse], body []byte, flow string) error {
	var parsed refundResponse
	if err := jsonUnmarshal(body, &parsed, flow); err != nil {
		return err
	}
	status, ok := refundStatusFrom(parsed.Status)
	if !ok {
		return domain.NewConnectorError(domain.ErrResponseHandlingFailed, Name, flow, "unknown refund state: "+parsed.Status, nil)
	}
	e.Common.Status = status
	e.Succeed(domain.RefundResponse{ConnectorRefundID: parsed.ID, Status: status})
	return nil
}

// VerifyWebhookSource checks the notification signature: HMAC-SHA256 over
// the raw body keyed with the webhook secret, hex encoded in the
// X-Razorpay-Signature header.
func (c *Connector[PM]) VerifyWebhookSource(req domain.RequestDetails, secrets domain.WebhookSecrets) (bool, error) {
	signature := req.Headers[signatureHeader]
	if signature == "" {
		signature = req.Headers[strings.ToLower(signatureHeader)]
	}
	if signature == "" {
		return false, nil
	}
	return signing.VerifyHMACSHA256Hex([]byte(secrets.Secret.Peek()), req.Body, signature), nil
}

func (c *Connector[PM]) WebhookEventType(req domain.RequestDetails) (domain.EventType, error) {
	payload, err := webhookPayloadFrom(req.Body)
	if err != nil {
		return "", err
	}
	if payload.Refund != nil {
		return domain.EventRefund, nil
	}
	return domain.EventPayment, nil
}

func (c *Connector[PM]) TransformWebhook(req domain.RequestDetails) (domain.WebhookTransformResult, error) {
	flow := domain.FlowNameOf[domain.IncomingWebhook]()
	payload, err := webhookPayloadFrom(req.Body)
	if err != nil {
		return domain.WebhookTransformResult{}, err
	}
	switch {
	case payload.Refund != nil:
		entity := payload.Refund.Entity
		status, ok := refundStatusFrom(entity.Status)
		if !ok {
			return domain.WebhookTransformResult{}, domain.NewConnectorError(domain.ErrResponseHandlingFailed, Name, flow, "unknown refund state: "+entity.Status, nil)
		}
		return domain.WebhookTransformResult{
			Event: domain.EventRefund,
			Refund: &domain.RefundWebhookDetails{
				ConnectorRefundID: entity.ID,
				Status:            status,
			},
		}, nil
	case payload.Payment != nil:
		entity := payload.Payment.Entity
		status, ok := paymentWebhookStatusFrom(entity.Status)
		if !ok {
			return domain.WebhookTransformResult{}, domain.NewConnectorError(domain.ErrResponseHandlingFailed, Name, flow, "unknown payment state: "+entity.Status, nil)
		}
		return domain.WebhookTransformResult{
			Event: domain.EventPayment,
			Payment: &domain.PaymentWebhookDetails{
				ResourceID:   domain.NewConnectorTransactionID(entity.OrderID),
				Status:       status,
				ErrorCode:    entity.ErrorCode,
				ErrorMessage: entity.ErrorReason,
			},
		}, nil
	}
	return domain.WebhookTransformResult{}, domain.NewConnectorError(domain.ErrResponseHandlingFailed, Name, flow, "notification carries neither payment nor refund", nil)
}

func webhookPayloadFrom(body []byte) (webhookPayload, error) {
	var parsed webhookEnvelope
	if err := jsonUnmarshal(body, &parsed, domain.FlowNameOf[domain.IncomingWebhook]()); err != nil {
		return webhookPayload{}, err
	}
	return parsed.Payload, nil
}

// Envelope shorthands for this package's non-parametric integrations.
type (
	orderEnvelope   = connector.Envelope[domain.CreateOrder, *domain.PaymentFlowData, domain.CreateOrderRequest, domain.CreateOrderResponse]
	captureEnvelope = connector.Envelope[domain.Capture, *domain.PaymentFlowData, domain.CaptureRequest, domain.PaymentsResponse]
	psyncEnvelope   = connector.Envelope[domain.PaymentSync, *domain.PaymentFlowData, domain.PaymentSyncRequest, domain.PaymentsResponse]
	refundEnvelope  = connector.Envelope[domain.Refund, *domain.RefundFlowData, domain.RefundRequest, domain.RefundResponse]
	rsyncEnvelope   = connector.Envelope[domain.RefundSync, *domain.RefundFlowData, domain.RefundSyncRequest, domain.RefundResponse]
)
