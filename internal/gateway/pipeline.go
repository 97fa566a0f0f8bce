// Package gateway executes connector flows: it drives an integration
// through the build-sign-send-handle sequence, gates calls on policy and
// connector health, and sequences the pre-steps some processors require
// before authorization.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/payorch/connector-gateway/internal/connector"
	"github.com/payorch/connector-gateway/internal/domain"
	"github.com/payorch/connector-gateway/internal/observability"
)

// Pipeline holds the shared machinery every flow execution uses.
type Pipeline struct {
	Client  *http.Client
	Breaker *Breaker
	Metrics *observability.Metrics
	Logger  *zap.Logger
}

// NewPipeline wires the pipeline. Nil client gets a default with a thirty
// second timeout.
func NewPipeline(client *http.Client, breaker *Breaker, metrics *observability.Metrics, logger *zap.Logger) *Pipeline {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{Client: client, Breaker: breaker, Metrics: metrics, Logger: logger}
}

// Execute runs one flow end to end. Build-phase failures (URL, body,
// headers) are returned as errors with the envelope unsettled; everything
// after the request leaves the process settles the envelope instead. The
// request body is finalized before headers are computed so signatures cover
// the exact bytes sent.
func Execute[F domain.Flow, C connector.CommonData, Req any, Resp any](
	ctx context.Context,
	p *Pipeline,
	connectorName string,
	integ connector.Integration[F, C, Req, Resp],
	env *connector.Envelope[F, C, Req, Resp],
) error {
	flow := env.FlowName()

	tracer := otel.Tracer("gateway")
	ctx, span := tracer.Start(ctx, connectorName+"."+flow)
	defer span.End()
	span.SetAttributes(
		attribute.String("connector", connectorName),
		attribute.String("flow", flow),
	)

	if p.Breaker != nil && !p.Breaker.Allow(connectorName) {
		if p.Metrics != nil {
			p.Metrics.ObserveBlockedFlow(connectorName, flow, "circuit_open")
		}
		err := domain.NewConnectorError(domain.ErrConnectorUnavailable, connectorName, flow, "circuit open", nil)
		env.Fail(domain.ErrorResponseFrom(err, http.StatusServiceUnavailable))
		return nil
	}

	targetURL, err := integ.URL(env)
	if err != nil {
		return err
	}
	body, err := integ.Body(env)
	if err != nil {
		return err
	}
	headers, err := integ.Headers(env, body)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body.Kind != connector.NoBody {
		reader = bytes.NewReader(body.Body)
	}
	req, err := http.NewRequestWithContext(ctx, integ.HTTPMethod(), targetURL, reader)
	if err != nil {
		return domain.NewConnectorError(domain.ErrRequestEncodingFailed, connectorName, flow, "building http request", err)
	}
	if ct := body.ContentType(); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	for _, h := range headers {
		req.Header.Set(h.Name, h.Value)
	}

	p.Logger.Debug("connector call",
		zap.String("connector", connectorName),
		zap.String("flow", flow),
		zap.String("method", integ.HTTPMethod()),
		zap.String("url", targetURL),
		zap.Any("headers", maskedHeaders(headers)),
	)

	start := time.Now()
	httpResp, err := p.Client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		if p.Breaker != nil {
			p.Breaker.RecordFailure(connectorName)
		}
		if p.Metrics != nil {
			p.Metrics.ObserveExternalCall(connectorName, flow, "transport_error", elapsed)
		}
		cerr := classifyTransportError(err, connectorName, flow)
		p.Logger.Warn("connector transport failure",
			zap.String("connector", connectorName),
			zap.String("flow", flow),
			zap.Error(err),
		)
		env.Fail(domain.ErrorResponseFrom(cerr, 0))
		return nil
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if p.Breaker != nil {
			p.Breaker.RecordFailure(connectorName)
		}
		if p.Metrics != nil {
			p.Metrics.ObserveExternalCall(connectorName, flow, "transport_error", elapsed)
		}
		cerr := domain.NewConnectorError(domain.ErrConnectorUnavailable, connectorName, flow, "reading response body", err)
		env.Fail(domain.ErrorResponseFrom(cerr, httpResp.StatusCode))
		return nil
	}

	env.Common.RecordRawResponse(respBody, httpResp.StatusCode)
	resp := connector.Response{StatusCode: httpResp.StatusCode, Body: respBody, Headers: httpResp.Header}

	if p.Breaker != nil {
		if resp.ServerError() {
			p.Breaker.RecordFailure(connectorName)
		} else {
			p.Breaker.RecordSuccess(connectorName)
		}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if herr := integ.HandleResponse(env, resp); herr != nil {
			observeCall(p, connectorName, flow, "error", elapsed)
			env.Fail(domain.ErrorResponseFrom(herr, resp.StatusCode))
			return nil
		}
		observeCall(p, connectorName, flow, "success", elapsed)
		return nil

	case resp.ServerError():
		observeCall(p, connectorName, flow, "server_error", elapsed)
		if responder, ok := any(integ).(connector.ServerErrorResponder); ok {
			env.Fail(responder.ServerErrorResponse(resp, flow))
			return nil
		}
		fallthrough

	default:
		if resp.StatusCode < 500 {
			observeCall(p, connectorName, flow, "error", elapsed)
		}
		er, herr := integ.HandleError(env, resp)
		if herr != nil {
			env.Fail(domain.ErrorResponseFrom(herr, resp.StatusCode))
			return nil
		}
		env.Fail(er)
		return nil
	}
}

func observeCall(p *Pipeline, connectorName, flow, outcome string, elapsed time.Duration) {
	if p.Metrics != nil {
		p.Metrics.ObserveExternalCall(connectorName, flow, outcome, elapsed)
	}
}

func classifyTransportError(err error, connectorName, flow string) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return domain.NewConnectorError(domain.ErrRequestTimeout, connectorName, flow, "request timed out", err)
	}
	return domain.NewConnectorError(domain.ErrConnectorUnavailable, connectorName, flow, "request failed", err)
}

func maskedHeaders(headers []connector.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		if h.Sensitive || observability.SensitiveHeader(h.Name) {
			out[h.Name] = observability.MaskAuthorization(h.Value)
			continue
		}
		out[h.Name] = h.Value
	}
	return out
}
