package connector

import (
	"net/http"

	"github.com/payorch/connector-gateway/internal/domain"
)

// Unsupported is the stub integration for flows a connector does not
// implement. Every call fails before any network activity with a
// flow_not_supported classification naming the connector.
type Unsupported[F domain.Flow, C CommonData, Req any, Resp any] struct {
	Connector string
}

func (u Unsupported[F, C, Req, Resp]) unsupported() error {
	return domain.NewConnectorError(domain.ErrFlowNotSupported, u.Connector, domain.FlowNameOf[F](), "flow not implemented by this connector", nil)
}

func (u Unsupported[F, C, Req, Resp]) HTTPMethod() string { return http.MethodPost }

func (u Unsupported[F, C, Req, Resp]) URL(*Envelope[F, C, Req, Resp]) (string, error) {
	return "", u.unsupported()
}

func (u Unsupported[F, C, Req, Resp]) Body(*Envelope[F, C, Req, Resp]) (RequestContent, error) {
	return RequestContent{}, u.unsupported()
}

func (u Unsupported[F, C, Req, Resp]) Headers(*Envelope[F, C, Req, Resp], RequestContent) ([]Header, error) {
	return nil, u.unsupported()
}

func (u Unsupported[F, C, Req, Resp]) HandleResponse(*Envelope[F, C, Req, Resp], Response) error {
	return u.unsupported()
}

func (u Unsupported[F, C, Req, Resp]) HandleError(*Envelope[F, C, Req, Resp], Response) (domain.ErrorResponse, error) {
	return domain.ErrorResponse{}, u.unsupported()
}

// Base supplies Unsupported stubs for every flow, no pre-steps, permissive
// capture validation and webhook rejection. Concrete connectors embed it
// and override the flows they actually speak.
type Base[PM domain.PaymentMethodData] struct {
	ConnectorName string
}

func NewBase[PM domain.PaymentMethodData](name string) Base[PM] {
	return Base[PM]{ConnectorName: name}
}

func (b Base[PM]) Name() string { return b.ConnectorName }

func (b Base[PM]) Authorize() AuthorizeIntegration[PM] {
	return Unsupported[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[PM], domain.PaymentsResponse]{Connector: b.ConnectorName}
}

func (b Base[PM]) Capture() CaptureIntegration {
	return Unsupported[domain.Capture, *domain.PaymentFlowData, domain.CaptureRequest, domain.PaymentsResponse]{Connector: b.ConnectorName}
}

func (b Base[PM]) Void() VoidIntegration {
	return Unsupported[domain.Void, *domain.PaymentFlowData, domain.VoidRequest, domain.PaymentsResponse]{Connector: b.ConnectorName}
}

func (b Base[PM]) PaymentSync() PaymentSyncIntegration {
	return Unsupported[domain.PaymentSync, *domain.PaymentFlowData, domain.PaymentSyncRequest, domain.PaymentsResponse]{Connector: b.ConnectorName}
}

func (b Base[PM]) CreateOrder() CreateOrderIntegration {
	return Unsupported[domain.CreateOrder, *domain.PaymentFlowData, domain.CreateOrderRequest, domain.CreateOrderResponse]{Connector: b.ConnectorName}
}

func (b Base[PM]) CreateSessionToken() SessionTokenIntegration {
	return Unsupported[domain.CreateSessionToken, *domain.PaymentFlowData, domain.SessionTokenRequest, domain.SessionTokenResponse]{Connector: b.ConnectorName}
}

func (b Base[PM]) SetupMandate() SetupMandateIntegration[PM] {
	return Unsupported[domain.SetupMandate, *domain.PaymentFlowData, domain.SetupMandateRequest[PM], domain.PaymentsResponse]{Connector: b.ConnectorName}
}

func (b Base[PM]) RepeatPayment() RepeatPaymentIntegration {
	return Unsupported[domain.RepeatPayment, *domain.PaymentFlowData, domain.RepeatPaymentRequest, domain.PaymentsResponse]{Connector: b.ConnectorName}
}

func (b Base[PM]) Refund() RefundIntegration {
	return Unsupported[domain.Refund, *domain.RefundFlowData, domain.RefundRequest, domain.RefundResponse]{Connector: b.ConnectorName}
}

func (b Base[PM]) RefundSync() RefundSyncIntegration {
	return Unsupported[domain.RefundSync, *domain.RefundFlowData, domain.RefundSyncRequest, domain.RefundResponse]{Connector: b.ConnectorName}
}

func (b Base[PM]) AcceptDispute() AcceptDisputeIntegration {
	return Unsupported[domain.AcceptDispute, *domain.DisputeFlowData, domain.AcceptDisputeRequest, domain.DisputeResponse]{Connector: b.ConnectorName}
}

func (b Base[PM]) SubmitEvidence() SubmitEvidenceIntegration {
	return Unsupported[domain.SubmitEvidence, *domain.DisputeFlowData, domain.SubmitEvidenceRequest, domain.DisputeResponse]{Connector: b.ConnectorName}
}

func (b Base[PM]) ShouldCreateOrder() bool        { return false }
func (b Base[PM]) ShouldCreateSessionToken() bool { return false }

func (b Base[PM]) ValidateCapture(domain.CaptureMethod) error { return nil }

func (b Base[PM]) VerifyWebhookSource(domain.RequestDetails, domain.WebhookSecrets) (bool, error) {
	return false, domain.NewConnectorError(domain.ErrNotImplemented, b.ConnectorName, domain.FlowNameOf[domain.IncomingWebhook](), "webhooks not implemented by this connector", nil)
}

func (b Base[PM]) WebhookEventType(domain.RequestDetails) (domain.EventType, error) {
	return "", domain.NewConnectorError(domain.ErrNotImplemented, b.ConnectorName, domain.FlowNameOf[domain.IncomingWebhook](), "webhooks not implemented by this connector", nil)
}

func (b Base[PM]) TransformWebhook(domain.RequestDetails) (domain.WebhookTransformResult, error) {
	return domain.WebhookTransformResult{}, domain.NewConnectorError(domain.ErrNotImplemented, b.ConnectorName, domain.FlowNameOf[domain.IncomingWebhook](), "webhooks not implemented by this connector", nil)
}
