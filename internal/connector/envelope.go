package connector

import (
	"github.com/payorch/connector-gateway/internal/domain"
)

// Envelope carries one flow invocation through the pipeline: the shared
// flow data, resolved credentials, the operation request, and a response
// slot that starts as the not-attempted sentinel and is written exactly
// once. The flow tag F is phantom; it exists so an envelope built for one
// flow cannot reach an integration compiled for another.
type Envelope[F domain.Flow, C CommonData, Req any, Resp any] struct {
	Common  C
	Auth    domain.AuthType
	Request Req

	resp      Resp
	errResp   domain.ErrorResponse
	succeeded bool
	settled   bool
}

// NewEnvelope builds an envelope with the response slot in its sentinel
// state.
func NewEnvelope[F domain.Flow, C CommonData, Req any, Resp any](common C, auth domain.AuthType, req Req) *Envelope[F, C, Req, Resp] {
	return &Envelope[F, C, Req, Resp]{
		Common:  common,
		Auth:    auth,
		Request: req,
		errResp: domain.NotAttempted(),
	}
}

// FlowName returns the wire-stable name of the envelope's flow tag.
func (e *Envelope[F, C, Req, Resp]) FlowName() string {
	return domain.FlowNameOf[F]()
}

// Succeed writes the success response. The slot is write-once; a second
// settlement is ignored so the first outcome of a handler chain survives.
func (e *Envelope[F, C, Req, Resp]) Succeed(resp Resp) {
	if e.settled {
		return
	}
	e.resp = resp
	e.succeeded = true
	e.settled = true
}

// Fail writes the canonical error record.
func (e *Envelope[F, C, Req, Resp]) Fail(er domain.ErrorResponse) {
	if e.settled {
		return
	}
	e.errResp = er
	e.settled = true
}

// Settled reports whether either outcome has been written.
func (e *Envelope[F, C, Req, Resp]) Settled() bool { return e.settled }

// Response returns the success payload; ok is false when the envelope
// failed or was never attempted.
func (e *Envelope[F, C, Req, Resp]) Response() (Resp, bool) {
	return e.resp, e.succeeded
}

// ErrorResponse returns the error record. For a succeeded or unattempted
// envelope this is the sentinel; check Attempted and Response first.
func (e *Envelope[F, C, Req, Resp]) ErrorResponse() domain.ErrorResponse {
	return e.errResp
}
