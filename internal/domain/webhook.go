package domain

// RequestDetails is the raw inbound notification as received from the
// processor, before any classification.
type RequestDetails struct {
	Method      string
	URI         string
	Headers     map[string]string
	Body        []byte
	QueryParams string
}

// WebhookSecrets holds the shared secret the processor signs notifications
// with, plus an optional auxiliary secret for processors with two-part
// verification.
type WebhookSecrets struct {
	Secret           Secret
	AdditionalSecret Secret
}

// PaymentWebhookDetails is the canonical result of a payment-category
// notification.
type PaymentWebhookDetails struct {
	ResourceID                   ResponseID
	Status                       AttemptStatus
	ConnectorResponseReferenceID string
	ErrorCode                    string
	ErrorMessage                 string
}

// RefundWebhookDetails is the canonical result of a refund-category
// notification.
type RefundWebhookDetails struct {
	ConnectorRefundID            string
	Status                       RefundStatus
	ConnectorResponseReferenceID string
	ErrorCode                    string
	ErrorMessage                 string
}

// DisputeWebhookDetails is the canonical result of a dispute-category
// notification.
type DisputeWebhookDetails struct {
	ConnectorDisputeID           string
	Status                       DisputeStatus
	ConnectorResponseReferenceID string
	Message                      string
}

// WebhookTransformResult is the tagged outcome of webhook classification:
// exactly one of the detail fields matching Event is populated.
type WebhookTransformResult struct {
	Event   EventType
	Payment *PaymentWebhookDetails
	Refund  *RefundWebhookDetails
	Dispute *DisputeWebhookDetails
}
