package domain

import (
	"github.com/payorch/connector-gateway/internal/amount"
)

// ConnectorEndpoint is one connector's network location.
type ConnectorEndpoint struct {
	BaseURL string
}

// Connectors carries the configured endpoints for every registered
// connector. It is loaded once at startup and copied into each flow's
// shared context so integrations can build URLs without touching global
// state.
type Connectors struct {
	Fiserv   ConnectorEndpoint
	Paytm    ConnectorEndpoint
	Razorpay ConnectorEndpoint
}

// Address is a postal address attached to a payment.
type Address struct {
	Line1   string
	Line2   string
	City    string
	State   string
	Zip     string
	Country string
}

// PaymentFlowData is the shared context threaded through payment-domain
// flows (authorize, capture, void, sync, order/session pre-steps, mandate
// setup, repeat). Integrations update Status and the pre-step outputs;
// the execution pipeline records the raw response exactly once.
type PaymentFlowData struct {
	MerchantID  string
	CustomerID  string
	PaymentID   string
	AttemptID   string
	Status      AttemptStatus
	Description string
	ReturnURL   string
	Billing     *Address
	Shipping    *Address

	// AccessToken and SessionToken are populated by pre-steps for
	// connectors that need them on the main call.
	AccessToken  string
	SessionToken string
	// ReferenceID holds a connector-assigned id (e.g. the order id from a
	// CreateOrder pre-step) that the main call must echo.
	ReferenceID string
	// ConnectorRequestReferenceID is the caller-supplied reference sent to
	// the connector on every request.
	ConnectorRequestReferenceID string

	TestMode   bool
	Connectors Connectors

	rawResponse []byte
	httpStatus  int
}

// RecordRawResponse captures the connector's raw reply for diagnostics.
// Write-once: later calls are ignored so the first reply of a multi-step
// handler chain is preserved.
func (d *PaymentFlowData) RecordRawResponse(body []byte, status int) {
	if d.rawResponse != nil || d.httpStatus != 0 {
		return
	}
	d.rawResponse = body
	d.httpStatus = status
}

// RawResponse returns the captured reply and its HTTP status.
func (d *PaymentFlowData) RawResponse() ([]byte, int) {
	return d.rawResponse, d.httpStatus
}

// ResponseIDKind discriminates ResponseID variants.
type ResponseIDKind int

const (
	NoResponseID ResponseIDKind = iota
	ConnectorTransactionID
	EncodedDataID
)

// ResponseID identifies a transaction at the connector: either a plain
// transaction id, an opaque encoded blob some processors return instead,
// or nothing at all.
type ResponseID struct {
	kind  ResponseIDKind
	value string
}

func NewConnectorTransactionID(v string) ResponseID {
	return ResponseID{kind: ConnectorTransactionID, value: v}
}

func NewEncodedDataID(v string) ResponseID {
	return ResponseID{kind: EncodedDataID, value: v}
}

func (r ResponseID) Kind() ResponseIDKind { return r.kind }

// TransactionID returns the connector transaction id or a classified error
// when the variant does not carry one.
func (r ResponseID) TransactionID() (string, error) {
	if r.kind != ConnectorTransactionID || r.value == "" {
		return "", NewConnectorError(ErrMissingConnectorTxnID, "", "", "expected connector transaction id", nil)
	}
	return r.value, nil
}

// Value returns the raw id regardless of variant; empty for NoResponseID.
func (r ResponseID) Value() string { return r.value }

// RedirectForm describes a browser redirect a connector demands to finish
// authentication.
type RedirectForm struct {
	URL    string            `json:"url"`
	Method string            `json:"method"`
	Fields map[string]string `json:"fields,omitempty"`
}

// AuthorizeRequest is the operation-specific payload for the Authorize flow.
// PM selects the payment-method representation at the boundary: raw card or
// vaulted token.
type AuthorizeRequest[PM PaymentMethodData] struct {
	PaymentMethod          PM
	MinorAmount            amount.MinorUnit
	Currency               amount.Currency
	CaptureMethod          CaptureMethod
	Email                  string
	CustomerName           string
	ReturnURL              string
	WebhookURL             string
	SetupFutureUsage       bool
	OffSession             bool
	Mandate                *MandateReference
	MerchantOrderReference string
	Metadata               map[string]string
}

// CaptureRequest finalizes a previously authorized amount.
type CaptureRequest struct {
	ConnectorTxnID string
	MinorAmount    amount.MinorUnit
	Currency       amount.Currency
}

// VoidRequest cancels an authorization before capture.
type VoidRequest struct {
	ConnectorTxnID     string
	CancellationReason string
}

// PaymentSyncRequest fetches the current state of a payment.
type PaymentSyncRequest struct {
	ResourceID  ResponseID
	MinorAmount amount.MinorUnit
	Currency    amount.Currency
}

// CreateOrderRequest is the pre-step payload for connectors that demand a
// server-side order before authorization.
type CreateOrderRequest struct {
	MinorAmount amount.MinorUnit
	Currency    amount.Currency
}

// CreateOrderResponse carries the connector-assigned order id.
type CreateOrderResponse struct {
	OrderID string
}

// SessionTokenRequest is the pre-step payload for connectors that demand a
// transaction-scoped session token before authorization.
type SessionTokenRequest struct {
	MinorAmount amount.MinorUnit
	Currency    amount.Currency
	ReturnURL   string
}

// SessionTokenResponse carries the issued token.
type SessionTokenResponse struct {
	SessionToken string
}

// SetupMandateRequest registers a stored-credential agreement.
type SetupMandateRequest[PM PaymentMethodData] struct {
	PaymentMethod    PM
	Currency         amount.Currency
	Email            string
	ReturnURL        string
	SetupFutureUsage bool
}

// RepeatPaymentRequest charges against an existing mandate without any
// customer interaction.
type RepeatPaymentRequest struct {
	Mandate                MandateReference
	MinorAmount            amount.MinorUnit
	Currency               amount.Currency
	MerchantOrderReference string
	Metadata               map[string]string
}

// PaymentsResponse is the canonical success payload shared by the payment
// flows. The attempt status lives on PaymentFlowData; integrations set both.
type PaymentsResponse struct {
	ResourceID                   ResponseID
	Redirect                     *RedirectForm
	Mandate                      *MandateReference
	NetworkTxnID                 string
	ConnectorResponseReferenceID string
	IncrementalAuthAllowed       bool
}
