package razorpay

import (
	"encoding/json"

	"github.com/payorch/connector-gateway/internal/amount"
	"github.com/payorch/connector-gateway/internal/domain"
)

// Razorpay takes amounts as plain minor-unit integers, so the canonical
// value goes on the wire unconverted.

const (
	methodCard = "card"

	// Filled in when the caller supplies no client context. Razorpay
	// insists on these fields even for server-initiated payments.
	defaultClientIP  = "127.0.0.1"
	defaultUserAgent = "Mozilla/5.0"

	channelApp = "app"
)

type cardDetails struct {
	Number      string `json:"number"`
	Name        string `json:"name,omitempty"`
	ExpiryMonth string `json:"expiry_month,omitempty"`
	ExpiryYear  string `json:"expiry_year"`
	CVV         string `json:"cvv,omitempty"`
}

type authenticationDetails struct {
	AuthenticationChannel string `json:"authentication_channel"`
}

type paymentRequest struct {
	Amount         amount.MinorUnit      `json:"amount"`
	Currency       string                `json:"currency"`
	Contact        string                `json:"contact"`
	Email          string                `json:"email"`
	OrderID        string                `json:"order_id"`
	Method         string                `json:"method"`
	Card           cardDetails           `json:"card"`
	Authentication authenticationDetails `json:"authentication"`
	IP             string                `json:"ip"`
	Referer        string                `json:"referer"`
	UserAgent      string                `json:"user_agent"`
}

type orderRequest struct {
	Amount         amount.MinorUnit `json:"amount"`
	Currency       string           `json:"currency"`
	Receipt        string           `json:"receipt"`
	PaymentCapture bool             `json:"payment_capture"`
}

type captureRequest struct {
	Amount   amount.MinorUnit `json:"amount"`
	Currency string           `json:"currency"`
}

type refundRequest struct {
	Amount amount.MinorUnit `json:"amount"`
}

type nextAction struct {
	Action string `json:"action"`
	URL    string `json:"url"`
}

type paymentResponse struct {
	RazorpayPaymentID string       `json:"razorpay_payment_id"`
	Next              []nextAction `json:"next"`
}

type orderResponse struct {
	ID         string           `json:"id"`
	Entity     string           `json:"entity"`
	Amount     amount.MinorUnit `json:"amount"`
	AmountPaid amount.MinorUnit `json:"amount_paid"`
	AmountDue  amount.MinorUnit `json:"amount_due"`
	Currency   string           `json:"currency"`
	Receipt    string           `json:"receipt"`
	Status     string           `json:"status"`
	Attempts   int              `json:"attempts"`
	CreatedAt  int64            `json:"created_at"`
}

type psyncResponse struct {
	ID               string           `json:"id"`
	Entity           string           `json:"entity"`
	Amount           amount.MinorUnit `json:"amount"`
	Currency         string           `json:"currency"`
	Status           string           `json:"status"`
	Method           string           `json:"method"`
	OrderID          string           `json:"order_id"`
	Captured         bool             `json:"captured"`
	AmountRefunded   amount.MinorUnit `json:"amount_refunded"`
	ErrorCode        string           `json:"error_code"`
	ErrorDescription string           `json:"error_description"`
	ErrorReason      string           `json:"error_reason"`
}

type captureResponse struct {
	ID               string           `json:"id"`
	Entity           string           `json:"entity"`
	Amount           amount.MinorUnit `json:"amount"`
	Currency         string           `json:"currency"`
	Status           string           `json:"status"`
	OrderID          string           `json:"order_id"`
	Captured         bool             `json:"captured"`
	ErrorCode        string           `json:"error_code"`
	ErrorDescription string           `json:"error_description"`
	ErrorReason      string           `json:"error_reason"`
}

type refundResponse struct {
	ID       string           `json:"id"`
	Status   string           `json:"status"`
	Receipt  string           `json:"receipt"`
	Amount   amount.MinorUnit `json:"amount"`
	Currency string           `json:"currency"`
}

// paymentStatusFrom maps the payment-object state reported by inquiry and
// capture replies. Authorized means the money is committed on an
// automatic-capture payment, so it lands on Charged; an authorized state on
// a manual-capture payment only appears in capture replies, which use
// captureStatusFrom instead.
func paymentStatusFrom(state string) (domain.AttemptStatus, bool) {
	switch state {
	case "created":
		return domain.AttemptPending, true
	case "authorized", "captured", "refunded":
		return domain.AttemptCharged, true
	case "failed":
		return domain.AttemptFailure, true
	}
	return "", false
}

func captureStatusFrom(state string) (domain.AttemptStatus, bool) {
	switch state {
	case "captured":
		return domain.AttemptCharged, true
	case "authorized":
		return domain.AttemptAuthorized, true
	case "failed":
		return domain.AttemptFailure, true
	}
	return "", false
}

func refundStatusFrom(state string) (domain.RefundStatus, bool) {
	switch state {
	case "processed":
		return domain.RefundSuccess, true
	case "created", "pending":
		return domain.RefundPending, true
	case "failed":
		return domain.RefundFailure, true
	}
	return "", false
}

type errorDetail struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Source      string `json:"source"`
	Step        string `json:"step"`
	Reason      string `json:"reason"`
}

// errorBody covers both reply shapes: the structured {"error": {...}} most
// endpoints use and the bare {"message": "..."} some edges return.
type errorBody struct {
	Error   *errorDetail `json:"error"`
	Message string       `json:"message"`
}

func errorResponseFrom(body []byte, httpStatus int) domain.ErrorResponse {
	var parsed errorBody
	_ = json.Unmarshal(body, &parsed)

	er := domain.ErrorResponse{
		StatusCode: httpStatus,
		Code:       domain.NoErrorCode,
		Message:    domain.NoErrorMessage,
	}
	switch {
	case parsed.Error != nil:
		if parsed.Error.Code != "" {
			er.Code = parsed.Error.Code
		}
		if parsed.Error.Description != "" {
			er.Message = parsed.Error.Description
		}
		er.Reason = parsed.Error.Reason
	case parsed.Message != "":
		er.Message = parsed.Message
	}
	return er
}

func jsonUnmarshal(body []byte, v any, flow string) error {
	if err := json.Unmarshal(body, v); err != nil {
		return domain.NewConnectorError(domain.ErrResponseDeserializationFailed, Name, flow, "", err)
	}
	return nil
}

// cardSource narrows the parametric payment method. Razorpay's server-side
// create endpoint takes raw cards only.
func cardSource[PM domain.PaymentMethodData](pm PM, holderName, flow string) (cardDetails, error) {
	card, ok := domain.AsCard(pm)
	if !ok {
		return cardDetails{}, domain.NewConnectorError(domain.ErrNotImplemented, Name, flow, "payment method not supported", nil)
	}
	return cardDetails{
		Number:      card.Number.Peek(),
		Name:        holderName,
		ExpiryMonth: card.ExpMonth,
		ExpiryYear:  card.ExpYear,
		CVV:         card.CVC.Peek(),
	}, nil
}

// Webhook notification shapes. Exactly one of payload.payment and
// payload.refund is populated per event.

type webhookEnvelope struct {
	AccountID string         `json:"account_id"`
	Contains  []string       `json:"contains"`
	Entity    string         `json:"entity"`
	Event     string         `json:"event"`
	Payload   webhookPayload `json:"payload"`
}

type webhookPayload struct {
	Payment *paymentWrapper `json:"payment"`
	Refund  *refundWrapper  `json:"refund"`
}

type paymentWrapper struct {
	Entity paymentEntity `json:"entity"`
}

type refundWrapper struct {
	Entity refundEntity `json:"entity"`
}

type paymentEntity struct {
	ID          string           `json:"id"`
	Amount      amount.MinorUnit `json:"amount"`
	Currency    string           `json:"currency"`
	Status      string           `json:"status"`
	OrderID     string           `json:"order_id"`
	Method      string           `json:"method"`
	Captured    bool             `json:"captured"`
	ErrorCode   string           `json:"error_code"`
	ErrorReason string           `json:"error_reason"`
}

type refundEntity struct {
	ID        string           `json:"id"`
	Amount    amount.MinorUnit `json:"amount"`
	Currency  string           `json:"currency"`
	PaymentID string           `json:"payment_id"`
	Status    string           `json:"status"`
}

func paymentWebhookStatusFrom(state string) (domain.AttemptStatus, bool) {
	switch state {
	case "authorized":
		return domain.AttemptAuthorized, true
	case "captured":
		return domain.AttemptCharged, true
	case "failed":
		return domain.AttemptAuthorizationFailed, true
	}
	return "", false
}
