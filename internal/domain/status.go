package domain

// AttemptStatus is the canonical lifecycle status of a payment attempt.
// Connector integrations map their native vocabulary onto exactly these
// values; no integration introduces its own.
type AttemptStatus string

const (
	AttemptStarted               AttemptStatus = "started"
	AttemptAuthenticationPending AttemptStatus = "authentication_pending"
	AttemptAuthorizing           AttemptStatus = "authorizing"
	AttemptAuthorized            AttemptStatus = "authorized"
	AttemptAuthorizationFailed   AttemptStatus = "authorization_failed"
	AttemptCharged               AttemptStatus = "charged"
	AttemptCaptureFailed         AttemptStatus = "capture_failed"
	AttemptVoided                AttemptStatus = "voided"
	AttemptVoidFailed            AttemptStatus = "void_failed"
	AttemptPending               AttemptStatus = "pending"
	AttemptFailure               AttemptStatus = "failure"
)

// Terminal reports whether no further transition is expected for the attempt.
func (s AttemptStatus) Terminal() bool {
	switch s {
	case AttemptCharged, AttemptVoided, AttemptFailure, AttemptAuthorizationFailed:
		return true
	}
	return false
}

// RefundStatus is the canonical lifecycle status of a refund.
type RefundStatus string

const (
	RefundPending            RefundStatus = "pending"
	RefundSuccess            RefundStatus = "success"
	RefundFailure            RefundStatus = "failure"
	RefundManualReview       RefundStatus = "manual_review"
	RefundTransactionFailure RefundStatus = "transaction_failure"
)

// DisputeStatus is the canonical lifecycle status of a dispute.
type DisputeStatus string

const (
	DisputeOpened     DisputeStatus = "opened"
	DisputeChallenged DisputeStatus = "challenged"
	DisputeAccepted   DisputeStatus = "accepted"
	DisputeWon        DisputeStatus = "won"
	DisputeLost       DisputeStatus = "lost"
	DisputeExpired    DisputeStatus = "expired"
	DisputeCancelled  DisputeStatus = "cancelled"
)

// EventType classifies an inbound webhook notification.
type EventType string

const (
	EventPayment EventType = "payment"
	EventRefund  EventType = "refund"
	EventDispute EventType = "dispute"
)

// CaptureMethod selects when an authorized amount is captured.
type CaptureMethod string

const (
	CaptureAutomatic CaptureMethod = "automatic"
	CaptureManual    CaptureMethod = "manual"
)
