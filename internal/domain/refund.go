package domain

import "github.com/payorch/connector-gateway/internal/amount"

// RefundFlowData is the shared context for the refund-domain flows.
type RefundFlowData struct {
	Status     RefundStatus
	RefundID   string
	Connectors Connectors

	rawResponse []byte
	httpStatus  int
}

func (d *RefundFlowData) RecordRawResponse(body []byte, status int) {
	if d.rawResponse != nil || d.httpStatus != 0 {
		return
	}
	d.rawResponse = body
	d.httpStatus = status
}

func (d *RefundFlowData) RawResponse() ([]byte, int) {
	return d.rawResponse, d.httpStatus
}

// RefundRequest asks the connector to return part or all of a captured
// payment.
type RefundRequest struct {
	ConnectorTxnID         string
	RefundID               string
	MinorRefundAmount      amount.MinorUnit
	Currency               amount.Currency
	Reason                 string
	MerchantOrderReference string
}

// RefundSyncRequest fetches the current state of a refund.
type RefundSyncRequest struct {
	ConnectorTxnID    string
	ConnectorRefundID string
}

// RefundResponse is the canonical success payload for refund flows.
type RefundResponse struct {
	ConnectorRefundID string
	Status            RefundStatus
}
