// Package domain defines the connector-agnostic payment model: flow tags,
// canonical status vocabularies, flow data, per-flow request and response
// shapes, and the error taxonomy shared by every connector integration.
package domain

// Flow tags are zero-size marker types used as type parameters. An envelope
// instantiated with one tag cannot be passed to an integration instantiated
// with another; the mismatch is a compile error.
type (
	Authorize          struct{}
	Capture            struct{}
	Void               struct{}
	Refund             struct{}
	PaymentSync        struct{}
	RefundSync         struct{}
	SetupMandate       struct{}
	RepeatPayment      struct{}
	CreateOrder        struct{}
	CreateSessionToken struct{}
	AcceptDispute      struct{}
	SubmitEvidence     struct{}
	IncomingWebhook    struct{}
)

// Flow constrains envelope and integration type parameters to the closed set
// of flow tags above. The FlowName method lets generic code label logs,
// metrics and errors without reflection.
type Flow interface {
	Authorize | Capture | Void | Refund | PaymentSync | RefundSync |
		SetupMandate | RepeatPayment | CreateOrder | CreateSessionToken |
		AcceptDispute | SubmitEvidence | IncomingWebhook

	FlowName() string
}

func (Authorize) FlowName() string          { return "authorize" }
func (Capture) FlowName() string            { return "capture" }
func (Void) FlowName() string               { return "void" }
func (Refund) FlowName() string             { return "refund" }
func (PaymentSync) FlowName() string        { return "payment_sync" }
func (RefundSync) FlowName() string         { return "refund_sync" }
func (SetupMandate) FlowName() string       { return "setup_mandate" }
func (RepeatPayment) FlowName() string      { return "repeat_payment" }
func (CreateOrder) FlowName() string        { return "create_order" }
func (CreateSessionToken) FlowName() string { return "create_session_token" }
func (AcceptDispute) FlowName() string      { return "accept_dispute" }
func (SubmitEvidence) FlowName() string     { return "submit_evidence" }
func (IncomingWebhook) FlowName() string    { return "incoming_webhook" }

// FlowNameOf returns the wire-stable name for a flow tag type.
func FlowNameOf[F Flow]() string {
	var f F
	return f.FlowName()
}
