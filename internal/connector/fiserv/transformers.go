package fiserv

import (
	"encoding/json"
	"fmt"

	"github.com/payorch/connector-gateway/internal/amount"
	"github.com/payorch/connector-gateway/internal/connector"
	"github.com/payorch/connector-gateway/internal/domain"
)

// Wire shapes for the Commerce Hub charge surface. Field names and casing
// are the processor's contract.

type wireAmount struct {
	Total    amount.StringMajorUnit `json:"total"`
	Currency string                 `json:"currency"`
}

type cardData struct {
	CardData        string `json:"cardData"`
	ExpirationMonth string `json:"expirationMonth"`
	ExpirationYear  string `json:"expirationYear"`
	SecurityCode    string `json:"securityCode,omitempty"`
}

type paymentSource struct {
	SourceType string    `json:"sourceType"`
	Card       *cardData `json:"card,omitempty"`
}

type transactionDetails struct {
	CaptureFlag           *bool  `json:"captureFlag,omitempty"`
	ReversalReasonCode    string `json:"reversalReasonCode,omitempty"`
	MerchantTransactionID string `json:"merchantTransactionId"`
}

type merchantDetails struct {
	MerchantID string `json:"merchantId"`
	TerminalID string `json:"terminalId,omitempty"`
}

type transactionInteraction struct {
	Origin           string `json:"origin"`
	EciIndicator     string `json:"eciIndicator"`
	PosConditionCode string `json:"posConditionCode"`
}

func defaultInteraction() transactionInteraction {
	return transactionInteraction{
		Origin:           "ECOM",
		EciIndicator:     "CHANNEL_ENCRYPTED",
		PosConditionCode: "CARD_NOT_PRESENT_ECOM",
	}
}

type referenceTransactionDetails struct {
	ReferenceTransactionID string `json:"referenceTransactionId"`
}

type paymentsRequest struct {
	Amount                 wireAmount             `json:"amount"`
	Source                 paymentSource          `json:"source"`
	TransactionDetails     transactionDetails     `json:"transactionDetails"`
	MerchantDetails        merchantDetails        `json:"merchantDetails"`
	TransactionInteraction transactionInteraction `json:"transactionInteraction"`
}

type captureRequest struct {
	Amount                      wireAmount                  `json:"amount"`
	TransactionDetails          transactionDetails          `json:"transactionDetails"`
	MerchantDetails             merchantDetails             `json:"merchantDetails"`
	ReferenceTransactionDetails referenceTransactionDetails `json:"referenceTransactionDetails"`
}

type voidRequest struct {
	TransactionDetails          transactionDetails          `json:"transactionDetails"`
	MerchantDetails             merchantDetails             `json:"merchantDetails"`
	ReferenceTransactionDetails referenceTransactionDetails `json:"referenceTransactionDetails"`
}

type refundRequest struct {
	Amount                      wireAmount                  `json:"amount"`
	MerchantDetails             merchantDetails             `json:"merchantDetails"`
	ReferenceTransactionDetails referenceTransactionDetails `json:"referenceTransactionDetails"`
}

type inquiryRequest struct {
	MerchantDetails             merchantDetails             `json:"merchantDetails"`
	ReferenceTransactionDetails referenceTransactionDetails `json:"referenceTransactionDetails"`
}

type transactionProcessingDetails struct {
	OrderID       string `json:"orderId"`
	TransactionID string `json:"transactionId"`
}

type gatewayResponse struct {
	GatewayTransactionID         string                       `json:"gatewayTransactionId"`
	TransactionState             string                       `json:"transactionState"`
	TransactionProcessingDetails transactionProcessingDetails `json:"transactionProcessingDetails"`
}

type paymentsResponse struct {
	GatewayResponse gatewayResponse `json:"gatewayResponse"`
}

type errorDetail struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

type errorResponse struct {
	Details []errorDetail `json:"details"`
	Error   []errorDetail `json:"error"`
}

// attemptStatusFrom maps the processor's transactionState vocabulary onto
// the canonical attempt statuses. Unrecognized states map to Failure; this
// connector's declared default.
func attemptStatusFrom(state string) domain.AttemptStatus {
	switch state {
	case "CAPTURED", "SUCCEEDED":
		return domain.AttemptCharged
	case "AUTHORIZED":
		return domain.AttemptAuthorized
	case "PROCESSING":
		return domain.AttemptAuthorizing
	case "VOIDED":
		return domain.AttemptVoided
	case "DECLINED", "FAILED":
		return domain.AttemptFailure
	default:
		return domain.AttemptFailure
	}
}

// refundStatusFrom maps transactionState onto the canonical refund
// statuses. Unrecognized states map to Failure.
func refundStatusFrom(state string) domain.RefundStatus {
	switch state {
	case "CAPTURED", "SUCCEEDED", "AUTHORIZED":
		return domain.RefundSuccess
	case "VOIDED", "PROCESSING":
		return domain.RefundPending
	case "DECLINED", "FAILED":
		return domain.RefundFailure
	default:
		return domain.RefundFailure
	}
}

// transactionID picks the gateway id, falling back to the processing
// details id the way the processor documents.
func (g gatewayResponse) transactionID() string {
	if g.GatewayTransactionID != "" {
		return g.GatewayTransactionID
	}
	return g.TransactionProcessingDetails.TransactionID
}

var amountConvertor = amount.StringMajorUnitConvertor{}

func wireAmountFrom(v amount.MinorUnit, currency amount.Currency, flow string) (wireAmount, error) {
	total, err := amountConvertor.Convert(v, currency)
	if err != nil {
		return wireAmount{}, domain.NewConnectorError(domain.ErrAmountConversionFailed, Name, flow, "", err)
	}
	return wireAmount{Total: total, Currency: string(currency)}, nil
}

// expiryYear4 widens a two digit expiry year; four digit years pass
// through.
func expiryYear4(year string) (string, error) {
	switch len(year) {
	case 2:
		return "20" + year, nil
	case 4:
		return year, nil
	default:
		return "", fmt.Errorf("invalid card expiry year %q: expected YY or YYYY", year)
	}
}

func cardSource[PM domain.PaymentMethodData](pm PM, flow string) (paymentSource, error) {
	card, ok := domain.AsCard(pm)
	if !ok {
		return paymentSource{}, domain.NewConnectorError(domain.ErrNotImplemented, Name, flow, "payment method not supported", nil)
	}
	year, err := expiryYear4(card.ExpYear)
	if err != nil {
		return paymentSource{}, domain.NewConnectorError(domain.ErrRequestEncodingFailed, Name, flow, "", err)
	}
	return paymentSource{
		SourceType: "PaymentCard",
		Card: &cardData{
			CardData:        card.Number.Peek(),
			ExpirationMonth: card.ExpMonth,
			ExpirationYear:  year,
			SecurityCode:    card.CVC.Peek(),
		},
	}, nil
}

func jsonUnmarshal(body []byte, v any, flow string) error {
	if err := json.Unmarshal(body, v); err != nil {
		return domain.NewConnectorError(domain.ErrResponseDeserializationFailed, Name, flow, "", err)
	}
	return nil
}

// parseGatewayBody decodes one charge-shaped reply.
func parseGatewayBody(body []byte, flow string) (paymentsResponse, error) {
	var parsed paymentsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return paymentsResponse{}, domain.NewConnectorError(domain.ErrResponseDeserializationFailed, Name, flow, "", err)
	}
	return parsed, nil
}

// settlePayment writes the canonical outcome for a charge-shaped reply.
// Failure and voided states settle as error records carrying the attempt
// status; everything else is a transaction response.
func settlePayment[F domain.Flow, Req any](
	e *connector.Envelope[F, *domain.PaymentFlowData, Req, domain.PaymentsResponse],
	g gatewayResponse,
	httpStatus int,
) {
	status := attemptStatusFrom(g.TransactionState)
	e.Common.Status = status

	if status == domain.AttemptFailure {
		e.Fail(domain.ErrorResponse{
			StatusCode:     httpStatus,
			Code:           g.TransactionProcessingDetails.TransactionID,
			Message:        "payment state: " + g.TransactionState,
			AttemptStatus:  &status,
			ConnectorTxnID: g.GatewayTransactionID,
		})
		return
	}
	e.Succeed(successPayload(g))
}

func successPayload(g gatewayResponse) domain.PaymentsResponse {
	return domain.PaymentsResponse{
		ResourceID:                   domain.NewConnectorTransactionID(g.transactionID()),
		ConnectorResponseReferenceID: g.TransactionProcessingDetails.OrderID,
	}
}

// settleRefund writes the canonical outcome for a refund-shaped reply.
func settleRefund[F domain.Flow, Req any](
	e *connector.Envelope[F, *domain.RefundFlowData, Req, domain.RefundResponse],
	g gatewayResponse,
	httpStatus int,
) {
	status := refundStatusFrom(g.TransactionState)
	e.Common.Status = status

	if status == domain.RefundFailure {
		e.Fail(domain.ErrorResponse{
			StatusCode:     httpStatus,
			Code:           g.TransactionProcessingDetails.TransactionID,
			Message:        "refund state: " + g.TransactionState,
			ConnectorTxnID: g.GatewayTransactionID,
		})
		return
	}
	e.Succeed(domain.RefundResponse{
		ConnectorRefundID: g.transactionID(),
		Status:            status,
	})
}

// errorResponseFrom parses the processor's error body into the canonical
// record. Both the details and error arrays are observed in the wild; the
// first entry of whichever is present wins.
func errorResponseFrom(body []byte, httpStatus int) (domain.ErrorResponse, error) {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.ErrorResponse{}, domain.NewConnectorError(domain.ErrResponseDeserializationFailed, Name, "", "error body", err)
	}
	details := parsed.Error
	if len(details) == 0 {
		details = parsed.Details
	}
	record := domain.ErrorResponse{
		StatusCode: httpStatus,
		Code:       domain.NoErrorCode,
		Message:    domain.NoErrorMessage,
	}
	if len(details) > 0 {
		first := details[0]
		if first.Code != "" {
			record.Code = first.Code
		}
		if first.Message != "" {
			record.Message = first.Message
		}
		record.Reason = first.Field
	}
	return record, nil
}
