package server

import (
	"github.com/payorch/connector-gateway/internal/domain"
)

// Wire shapes for the RPC surface. Field names match the contract schemas
// in internal/monitor/schemas; the monitor validates the raw bytes before
// these are decoded.

type cardDTO struct {
	Number     string `json:"number"`
	ExpMonth   string `json:"exp_month"`
	ExpYear    string `json:"exp_year"`
	CVC        string `json:"cvc"`
	HolderName string `json:"holder_name"`
	Network    string `json:"network"`
}

type savedTokenDTO struct {
	Token        string `json:"token"`
	Last4        string `json:"last4"`
	Network      string `json:"network"`
	NetworkToken bool   `json:"network_token"`
}

type paymentMethodDTO struct {
	Type       string         `json:"type"`
	Card       *cardDTO       `json:"card,omitempty"`
	SavedToken *savedTokenDTO `json:"saved_token,omitempty"`
}

func (pm paymentMethodDTO) card() domain.Card {
	c := pm.Card
	if c == nil {
		return domain.Card{}
	}
	return domain.Card{
		Number:      domain.NewSecret(c.Number),
		ExpMonth:    c.ExpMonth,
		ExpYear:     c.ExpYear,
		CVC:         domain.NewSecret(c.CVC),
		HolderName:  c.HolderName,
		CardNetwork: c.Network,
	}
}

func (pm paymentMethodDTO) savedToken() domain.SavedToken {
	t := pm.SavedToken
	if t == nil {
		return domain.SavedToken{}
	}
	return domain.SavedToken{
		Token:        domain.NewSecret(t.Token),
		Last4:        t.Last4,
		CardNetwork:  t.Network,
		NetworkToken: t.NetworkToken,
	}
}

type authorizeDTO struct {
	PaymentID              string            `json:"payment_id"`
	MerchantID             string            `json:"merchant_id"`
	CustomerID             string            `json:"customer_id"`
	Amount                 int64             `json:"amount"`
	Currency               string            `json:"currency"`
	CaptureMethod          string            `json:"capture_method"`
	PaymentMethod          paymentMethodDTO  `json:"payment_method"`
	Email                  string            `json:"email"`
	CustomerName           string            `json:"customer_name"`
	ReturnURL              string            `json:"return_url"`
	WebhookURL             string            `json:"webhook_url"`
	SetupFutureUsage       bool              `json:"setup_future_usage"`
	OffSession             bool              `json:"off_session"`
	MerchantOrderReference string            `json:"merchant_order_reference"`
	Metadata               map[string]string `json:"metadata"`
}

type getDTO struct {
	PaymentID              string `json:"payment_id"`
	ConnectorTransactionID string `json:"connector_transaction_id"`
	EncodedData            string `json:"encoded_data"`
	Amount                 int64  `json:"amount"`
	Currency               string `json:"currency"`
}

func (d getDTO) resourceID() domain.ResponseID {
	switch {
	case d.ConnectorTransactionID != "":
		return domain.NewConnectorTransactionID(d.ConnectorTransactionID)
	case d.EncodedData != "":
		return domain.NewEncodedDataID(d.EncodedData)
	}
	return domain.ResponseID{}
}

type voidDTO struct {
	PaymentID              string `json:"payment_id"`
	ConnectorTransactionID string `json:"connector_transaction_id"`
	CancellationReason     string `json:"cancellation_reason"`
}

type captureDTO struct {
	PaymentID              string `json:"payment_id"`
	ConnectorTransactionID string `json:"connector_transaction_id"`
	Amount                 int64  `json:"amount"`
	Currency               string `json:"currency"`
}

type refundDTO struct {
	PaymentID              string `json:"payment_id"`
	RefundID               string `json:"refund_id"`
	ConnectorTransactionID string `json:"connector_transaction_id"`
	Amount                 int64  `json:"amount"`
	Currency               string `json:"currency"`
	Reason                 string `json:"reason"`
	MerchantOrderReference string `json:"merchant_order_reference"`
}

type refundGetDTO struct {
	RefundID               string `json:"refund_id"`
	ConnectorTransactionID string `json:"connector_transaction_id"`
	ConnectorRefundID      string `json:"connector_refund_id"`
}

type registerDTO struct {
	PaymentID        string           `json:"payment_id"`
	Currency         string           `json:"currency"`
	PaymentMethod    paymentMethodDTO `json:"payment_method"`
	Email            string           `json:"email"`
	ReturnURL        string           `json:"return_url"`
	SetupFutureUsage bool             `json:"setup_future_usage"`
}

type repeatDTO struct {
	PaymentID              string            `json:"payment_id"`
	Amount                 int64             `json:"amount"`
	Currency               string            `json:"currency"`
	ConnectorMandateID     string            `json:"connector_mandate_id"`
	NetworkTransactionID   string            `json:"network_transaction_id"`
	MerchantOrderReference string            `json:"merchant_order_reference"`
	Metadata               map[string]string `json:"metadata"`
}

func (d repeatDTO) mandate() domain.MandateReference {
	if d.ConnectorMandateID != "" {
		return domain.NewConnectorMandateID(d.ConnectorMandateID)
	}
	if d.NetworkTransactionID != "" {
		return domain.NewNetworkTxnID(d.NetworkTransactionID)
	}
	return domain.MandateReference{}
}

type acceptDisputeDTO struct {
	DisputeID              string `json:"dispute_id"`
	ConnectorDisputeID     string `json:"connector_dispute_id"`
	ConnectorTransactionID string `json:"connector_transaction_id"`
}

type submitEvidenceDTO struct {
	DisputeID              string   `json:"dispute_id"`
	ConnectorDisputeID     string   `json:"connector_dispute_id"`
	ConnectorTransactionID string   `json:"connector_transaction_id"`
	Explanation            string   `json:"explanation"`
	EvidenceFileIDs        []string `json:"evidence_file_ids"`
}

// Response shapes.

type errorDTO struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Reason     string `json:"reason,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

type paymentResultDTO struct {
	PaymentID                    string               `json:"payment_id,omitempty"`
	Status                       string               `json:"status"`
	ConnectorTransactionID       string               `json:"connector_transaction_id,omitempty"`
	Redirect                     *domain.RedirectForm `json:"redirect,omitempty"`
	ConnectorResponseReferenceID string               `json:"connector_response_reference_id,omitempty"`
	NetworkTransactionID         string               `json:"network_transaction_id,omitempty"`
	ConnectorMandateID           string               `json:"connector_mandate_id,omitempty"`
	Error                        *errorDTO            `json:"error,omitempty"`
}

type refundResultDTO struct {
	RefundID          string    `json:"refund_id,omitempty"`
	Status            string    `json:"status"`
	ConnectorRefundID string    `json:"connector_refund_id,omitempty"`
	Error             *errorDTO `json:"error,omitempty"`
}

type disputeResultDTO struct {
	DisputeID                    string    `json:"dispute_id,omitempty"`
	Status                       string    `json:"status"`
	ConnectorDisputeID           string    `json:"connector_dispute_id,omitempty"`
	ConnectorResponseReferenceID string    `json:"connector_response_reference_id,omitempty"`
	Error                        *errorDTO `json:"error,omitempty"`
}

type webhookResultDTO struct {
	EventType string             `json:"event_type"`
	Payment   *paymentEventDTO   `json:"payment,omitempty"`
	Refund    *refundEventDTO    `json:"refund,omitempty"`
	Dispute   *disputeEventDTO   `json:"dispute,omitempty"`
}

type paymentEventDTO struct {
	ConnectorTransactionID       string `json:"connector_transaction_id,omitempty"`
	Status                       string `json:"status"`
	ConnectorResponseReferenceID string `json:"connector_response_reference_id,omitempty"`
	ErrorCode                    string `json:"error_code,omitempty"`
	ErrorMessage                 string `json:"error_message,omitempty"`
}

type refundEventDTO struct {
	ConnectorRefundID            string `json:"connector_refund_id,omitempty"`
	Status                       string `json:"status"`
	ConnectorResponseReferenceID string `json:"connector_response_reference_id,omitempty"`
	ErrorCode                    string `json:"error_code,omitempty"`
	ErrorMessage                 string `json:"error_message,omitempty"`
}

type disputeEventDTO struct {
	ConnectorDisputeID           string `json:"connector_dispute_id,omitempty"`
	Status                       string `json:"status"`
	ConnectorResponseReferenceID string `json:"connector_response_reference_id,omitempty"`
	Message                      string `json:"message,omitempty"`
}

func webhookResultFrom(result domain.WebhookTransformResult) webhookResultDTO {
	out := webhookResultDTO{EventType: string(result.Event)}
	if result.Payment != nil {
		out.Payment = &paymentEventDTO{
			ConnectorTransactionID:       result.Payment.ResourceID.Value(),
			Status:                       string(result.Payment.Status),
			ConnectorResponseReferenceID: result.Payment.ConnectorResponseReferenceID,
			ErrorCode:                    result.Payment.ErrorCode,
			ErrorMessage:                 result.Payment.ErrorMessage,
		}
	}
	if result.Refund != nil {
		out.Refund = &refundEventDTO{
			ConnectorRefundID:            result.Refund.ConnectorRefundID,
			Status:                       string(result.Refund.Status),
			ConnectorResponseReferenceID: result.Refund.ConnectorResponseReferenceID,
			ErrorCode:                    result.Refund.ErrorCode,
			ErrorMessage:                 result.Refund.ErrorMessage,
		}
	}
	if result.Dispute != nil {
		out.Dispute = &disputeEventDTO{
			ConnectorDisputeID:           result.Dispute.ConnectorDisputeID,
			Status:                       string(result.Dispute.Status),
			ConnectorResponseReferenceID: result.Dispute.ConnectorResponseReferenceID,
			Message:                      result.Dispute.Message,
		}
	}
	return out
}

func errorDTOFrom(record domain.ErrorResponse) *errorDTO {
	return &errorDTO{
		Code:       record.Code,
		Message:    record.Message,
		Reason:     record.Reason,
		StatusCode: record.StatusCode,
	}
}
