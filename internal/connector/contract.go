// Package connector defines the contract every processor integration
// implements: a generic envelope carrying one flow's data through the
// execution pipeline, the per-flow integration interface, and the registry
// the gateway resolves connectors from.
package connector

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/payorch/connector-gateway/internal/domain"
)

// CommonData constrains the envelope's shared-context slot to the flow-data
// types that can capture a raw connector reply.
type CommonData interface {
	RecordRawResponse(body []byte, status int)
	RawResponse() ([]byte, int)
}

// BodyKind discriminates how a request body is encoded on the wire.
type BodyKind int

const (
	NoBody BodyKind = iota
	JSONBody
	FormBody
	RawBody
)

// RequestContent is a finalized request body. Integrations build it in Body
// and receive it again in Headers so signatures can cover the exact bytes
// that go on the wire.
type RequestContent struct {
	Kind BodyKind
	Body []byte
}

// JSONContent marshals v into a JSON body.
func JSONContent(v any) (RequestContent, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return RequestContent{}, err
	}
	return RequestContent{Kind: JSONBody, Body: b}, nil
}

// FormContent encodes values as an application/x-www-form-urlencoded body.
func FormContent(values url.Values) RequestContent {
	return RequestContent{Kind: FormBody, Body: []byte(values.Encode())}
}

// RawContent wraps pre-encoded bytes.
func RawContent(b []byte) RequestContent {
	return RequestContent{Kind: RawBody, Body: b}
}

// EmptyContent is the body of GET-style calls.
func EmptyContent() RequestContent {
	return RequestContent{Kind: NoBody}
}

// ContentType returns the header value for the body kind, or empty when the
// request carries no body.
func (c RequestContent) ContentType() string {
	switch c.Kind {
	case JSONBody:
		return "application/json"
	case FormBody:
		return "application/x-www-form-urlencoded"
	case RawBody:
		return "text/plain"
	default:
		return ""
	}
}

// Header is one outbound request header. Sensitive headers are masked when
// logged.
type Header struct {
	Name      string
	Value     string
	Sensitive bool
}

// Response is the connector's raw HTTP reply handed to HandleResponse or
// HandleError.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// ServerError reports whether the reply is a processor-side 5xx.
func (r Response) ServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode <= 599
}

// Integration translates one flow for one processor. The pipeline calls
// URL, then Body, then Headers with the finalized body, sends the request,
// and routes the reply to HandleResponse on 2xx or HandleError otherwise.
// Implementations mutate the envelope: HandleResponse writes the success
// response and updates status on the shared flow data.
type Integration[F domain.Flow, C CommonData, Req any, Resp any] interface {
	HTTPMethod() string
	URL(e *Envelope[F, C, Req, Resp]) (string, error)
	Body(e *Envelope[F, C, Req, Resp]) (RequestContent, error)
	Headers(e *Envelope[F, C, Req, Resp], body RequestContent) ([]Header, error)
	HandleResponse(e *Envelope[F, C, Req, Resp], resp Response) error
	HandleError(e *Envelope[F, C, Req, Resp], resp Response) (domain.ErrorResponse, error)
}

// ServerErrorResponder is an optional refinement: integrations that
// implement it get 5xx replies routed here instead of HandleError, since a
// processor's error body contract rarely holds when its edge is down.
type ServerErrorResponder interface {
	ServerErrorResponse(resp Response, flow string) domain.ErrorResponse
}

// Flow-specific views of Integration. Identical method sets, so every
// integration satisfies its flow's view without adaptation.
type (
	AuthorizeIntegration[PM domain.PaymentMethodData] interface {
		Integration[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[PM], domain.PaymentsResponse]
	}
	CaptureIntegration interface {
		Integration[domain.Capture, *domain.PaymentFlowData, domain.CaptureRequest, domain.PaymentsResponse]
	}
	VoidIntegration interface {
		Integration[domain.Void, *domain.PaymentFlowData, domain.VoidRequest, domain.PaymentsResponse]
	}
	PaymentSyncIntegration interface {
		Integration[domain.PaymentSync, *domain.PaymentFlowData, domain.PaymentSyncRequest, domain.PaymentsResponse]
	}
	CreateOrderIntegration interface {
		Integration[domain.CreateOrder, *domain.PaymentFlowData, domain.CreateOrderRequest, domain.CreateOrderResponse]
	}
	SessionTokenIntegration interface {
		Integration[domain.CreateSessionToken, *domain.PaymentFlowData, domain.SessionTokenRequest, domain.SessionTokenResponse]
	}
	SetupMandateIntegration[PM domain.PaymentMethodData] interface {
		Integration[domain.SetupMandate, *domain.PaymentFlowData, domain.SetupMandateRequest[PM], domain.PaymentsResponse]
	}
	RepeatPaymentIntegration interface {
		Integration[domain.RepeatPayment, *domain.PaymentFlowData, domain.RepeatPaymentRequest, domain.PaymentsResponse]
	}
	RefundIntegration interface {
		Integration[domain.Refund, *domain.RefundFlowData, domain.RefundRequest, domain.RefundResponse]
	}
	RefundSyncIntegration interface {
		Integration[domain.RefundSync, *domain.RefundFlowData, domain.RefundSyncRequest, domain.RefundResponse]
	}
	AcceptDisputeIntegration interface {
		Integration[domain.AcceptDispute, *domain.DisputeFlowData, domain.AcceptDisputeRequest, domain.DisputeResponse]
	}
	SubmitEvidenceIntegration interface {
		Integration[domain.SubmitEvidence, *domain.DisputeFlowData, domain.SubmitEvidenceRequest, domain.DisputeResponse]
	}
)

// WebhookHandler turns a processor's inbound notifications into canonical
// events. Verify runs before Transform; an unverifiable notification is
// rejected at the gateway.
type WebhookHandler interface {
	VerifyWebhookSource(req domain.RequestDetails, secrets domain.WebhookSecrets) (bool, error)
	WebhookEventType(req domain.RequestDetails) (domain.EventType, error)
	TransformWebhook(req domain.RequestDetails) (domain.WebhookTransformResult, error)
}

// Connector is the full surface one processor exposes. PM selects the
// payment-method representation the boundary flows accept; the registry is
// built per representation at startup.
type Connector[PM domain.PaymentMethodData] interface {
	Name() string

	Authorize() AuthorizeIntegration[PM]
	Capture() CaptureIntegration
	Void() VoidIntegration
	PaymentSync() PaymentSyncIntegration
	CreateOrder() CreateOrderIntegration
	CreateSessionToken() SessionTokenIntegration
	SetupMandate() SetupMandateIntegration[PM]
	RepeatPayment() RepeatPaymentIntegration
	Refund() RefundIntegration
	RefundSync() RefundSyncIntegration
	AcceptDispute() AcceptDisputeIntegration
	SubmitEvidence() SubmitEvidenceIntegration

	// Pre-step predicates. When true the gateway runs the corresponding
	// pre-step before Authorize and folds its output into the flow data.
	ShouldCreateOrder() bool
	ShouldCreateSessionToken() bool

	// ValidateCapture rejects capture methods the processor cannot honor
	// before any network call is made.
	ValidateCapture(method domain.CaptureMethod) error

	WebhookHandler
}
