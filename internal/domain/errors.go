package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure a connector integration can produce.
type ErrorKind string

const (
	ErrAuthTypeResolutionFailed      ErrorKind = "auth_type_resolution_failed"
	ErrRequestEncodingFailed         ErrorKind = "request_encoding_failed"
	ErrResponseDeserializationFailed ErrorKind = "response_deserialization_failed"
	ErrResponseHandlingFailed        ErrorKind = "response_handling_failed"
	ErrMissingRequiredField          ErrorKind = "missing_required_field"
	ErrMissingConnectorTxnID         ErrorKind = "missing_connector_transaction_id"
	ErrCaptureMethodNotSupported     ErrorKind = "capture_method_not_supported"
	ErrFlowNotSupported              ErrorKind = "flow_not_supported"
	ErrNotImplemented                ErrorKind = "not_implemented"
	ErrAmountConversionFailed        ErrorKind = "amount_conversion_failed"
	ErrUnexpectedResponse            ErrorKind = "unexpected_response"
	ErrRequestTimeout                ErrorKind = "request_timeout"
	ErrConnectorUnavailable          ErrorKind = "connector_unavailable"
	ErrWebhookVerificationFailed     ErrorKind = "webhook_source_verification_failed"
	ErrPolicyBlocked                 ErrorKind = "policy_blocked"
)

// ConnectorError attaches the failing connector and flow to a classified
// failure. It wraps the underlying cause when one exists.
type ConnectorError struct {
	Kind      ErrorKind
	Connector string
	Flow      string
	Reason    string
	Err       error
}

func (e *ConnectorError) Error() string {
	msg := fmt.Sprintf("%s/%s: %s", e.Connector, e.Flow, e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConnectorError) Unwrap() error { return e.Err }

// NewConnectorError builds a classified error. Reason is optional human
// context; err is the optional underlying cause.
func NewConnectorError(kind ErrorKind, connector, flow, reason string, err error) *ConnectorError {
	return &ConnectorError{Kind: kind, Connector: connector, Flow: flow, Reason: reason, Err: err}
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind ErrorKind) bool {
	var ce *ConnectorError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// KindOf extracts the classification, defaulting to ErrUnexpectedResponse
// for unclassified errors.
func KindOf(err error) ErrorKind {
	var ce *ConnectorError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrUnexpectedResponse
}

const (
	// NoErrorCode and NoErrorMessage fill mandatory error-record fields when
	// the processor's reply carries neither.
	NoErrorCode    = "no_error_code"
	NoErrorMessage = "no_error_message"

	// notAttemptedCode marks the sentinel state of a fresh response slot.
	notAttemptedCode = "ir_no_response"
)

// ErrorResponse is the canonical error record written into an envelope's
// response slot for a failed call. Code and Message are always non-empty.
type ErrorResponse struct {
	StatusCode       int            `json:"status_code"`
	Code             string         `json:"code"`
	Message          string         `json:"message"`
	Reason           string         `json:"reason,omitempty"`
	AttemptStatus    *AttemptStatus `json:"attempt_status,omitempty"`
	ConnectorTxnID   string         `json:"connector_transaction_id,omitempty"`
	NetworkErrorKind ErrorKind      `json:"error_kind,omitempty"`
}

// NotAttempted is the sentinel initial value of every response slot.
func NotAttempted() ErrorResponse {
	return ErrorResponse{
		Code:    notAttemptedCode,
		Message: "no response from connector yet",
	}
}

// Attempted reports whether the record represents a real connector outcome
// rather than the initial sentinel.
func (e ErrorResponse) Attempted() bool { return e.Code != notAttemptedCode }

// ErrorResponseFrom converts a classified error into a canonical record,
// defaulting the attempt status to Failure when the connector could not
// supply a finer one.
func ErrorResponseFrom(err error, httpStatus int) ErrorResponse {
	kind := KindOf(err)
	failure := AttemptFailure
	return ErrorResponse{
		StatusCode:       httpStatus,
		Code:             string(kind),
		Message:          err.Error(),
		AttemptStatus:    &failure,
		NetworkErrorKind: kind,
	}
}
