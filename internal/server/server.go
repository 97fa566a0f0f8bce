// Package server exposes the gateway's RPC surface over HTTP. Each route
// maps one canonical operation onto the matching flow; merchant credentials
// for the downstream processor arrive out of band in request headers and
// never appear in the payload or the logs.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/payorch/connector-gateway/internal/connector"
	"github.com/payorch/connector-gateway/internal/domain"
	"github.com/payorch/connector-gateway/internal/gateway"
	"github.com/payorch/connector-gateway/internal/monitor"
	"github.com/payorch/connector-gateway/internal/observability"
)

// Out-of-band request headers. Credentials ride here so payloads stay free
// of secret material and the contract schemas never describe keys.
const (
	headerConnector        = "X-Connector"
	headerAuthKind         = "X-Auth-Type"
	headerAPIKey           = "X-Api-Key"
	headerKey1             = "X-Key1"
	headerAPISecret        = "X-Api-Secret"
	headerRequestID        = "X-Request-Id"
	headerWebhookSecret    = "X-Webhook-Secret"
	headerWebhookSecondary = "X-Webhook-Additional-Secret"
)

const serviceName = "connector-gateway"

// Server holds the wired gateway and its registries. One registry per
// payment-method representation; the payload's payment_method.type picks
// which one serves the request.
type Server struct {
	gateway   *gateway.Gateway
	monitor   *monitor.ContractMonitor
	cards     *connector.Registry[domain.Card]
	tokens    *connector.Registry[domain.SavedToken]
	endpoints domain.Connectors
	metrics   *observability.Metrics
	logger    *zap.Logger
	testMode  bool
}

// New wires the transport layer.
func New(
	gw *gateway.Gateway,
	mon *monitor.ContractMonitor,
	cards *connector.Registry[domain.Card],
	tokens *connector.Registry[domain.SavedToken],
	endpoints domain.Connectors,
	metrics *observability.Metrics,
	logger *zap.Logger,
	testMode bool,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		gateway:   gw,
		monitor:   mon,
		cards:     cards,
		tokens:    tokens,
		endpoints: endpoints,
		metrics:   metrics,
		logger:    logger,
		testMode:  testMode,
	}
}

// Engine builds the routed gin engine.
func (s *Server) Engine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))

	r.GET("/health", s.health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/v1")
	payments := v1.Group("/payments")
	payments.POST("/authorize", s.authorize)
	payments.POST("/get", s.get)
	payments.POST("/void", s.void)
	payments.POST("/capture", s.capture)
	payments.POST("/register", s.register)
	payments.POST("/repeat", s.repeat)

	refunds := v1.Group("/refunds")
	refunds.POST("", s.refund)
	refunds.POST("/get", s.refundGet)

	disputes := v1.Group("/disputes")
	disputes.POST("/accept", s.acceptDispute)
	disputes.POST("/evidence", s.submitEvidence)

	v1.POST("/webhooks/:connector", s.transformWebhook)
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"connectors": s.cards.Names(),
	})
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": errorDTO{Code: code, Message: message, StatusCode: status}})
}

func writeClassified(c *gin.Context, err error) {
	writeError(c, httpStatusFor(err), string(domain.KindOf(err)), err.Error())
}

// httpStatusFor maps a build-phase failure onto a transport status. Settled
// processor declines never reach this path; they return 200 with an error
// record in the body.
func httpStatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.ErrMissingRequiredField,
		domain.ErrMissingConnectorTxnID,
		domain.ErrRequestEncodingFailed,
		domain.ErrAmountConversionFailed:
		return http.StatusBadRequest
	case domain.ErrAuthTypeResolutionFailed,
		domain.ErrWebhookVerificationFailed:
		return http.StatusUnauthorized
	case domain.ErrCaptureMethodNotSupported,
		domain.ErrPolicyBlocked:
		return http.StatusUnprocessableEntity
	case domain.ErrFlowNotSupported,
		domain.ErrNotImplemented:
		return http.StatusNotImplemented
	case domain.ErrRequestTimeout:
		return http.StatusGatewayTimeout
	case domain.ErrConnectorUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

// bind reads the body, runs it through the contract monitor and decodes it.
// It writes the error response itself and reports whether to proceed.
func (s *Server) bind(c *gin.Context, operation string, dst any) bool {
	body, err := c.GetRawData()
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", "reading request body: "+err.Error())
		return false
	}
	if s.monitor != nil {
		valid, validationErrors, err := s.monitor.Validate(operation, body)
		if err != nil {
			writeError(c, http.StatusInternalServerError, "contract_validation_failed", err.Error())
			return false
		}
		if !valid {
			writeError(c, http.StatusBadRequest, "invalid_request", monitor.FormatErrors(validationErrors))
			return false
		}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", "decoding request body: "+err.Error())
		return false
	}
	return true
}

// authFromHeaders assembles the connector credential from the out-of-band
// headers. The shape is chosen by X-Auth-Type and must match what the
// target connector expects; mismatches surface as classified errors when
// the integration resolves the credential.
func authFromHeaders(c *gin.Context) (domain.AuthType, error) {
	kind := domain.AuthKind(c.GetHeader(headerAuthKind))
	apiKey := domain.NewSecret(c.GetHeader(headerAPIKey))
	key1 := domain.NewSecret(c.GetHeader(headerKey1))
	apiSecret := domain.NewSecret(c.GetHeader(headerAPISecret))
	switch kind {
	case domain.AuthHeaderKey:
		return domain.NewHeaderKeyAuth(apiKey), nil
	case domain.AuthBodyKey:
		return domain.NewBodyKeyAuth(apiKey, key1), nil
	case domain.AuthSignatureKey:
		return domain.NewSignatureKeyAuth(apiKey, key1, apiSecret), nil
	case domain.AuthNone:
		return domain.NewNoAuth(), nil
	}
	return domain.AuthType{}, domain.NewConnectorError(
		domain.ErrAuthTypeResolutionFailed, c.GetHeader(headerConnector), "",
		"unknown auth type "+c.GetHeader(headerAuthKind), nil)
}

// lookupConnector resolves the target connector from the X-Connector header.
func lookupConnector[PM domain.PaymentMethodData](c *gin.Context, reg *connector.Registry[PM]) (connector.Connector[PM], bool) {
	name := c.GetHeader(headerConnector)
	if name == "" {
		writeError(c, http.StatusBadRequest, "invalid_request", "X-Connector header is required")
		return nil, false
	}
	conn, err := reg.Lookup(name)
	if err != nil {
		writeError(c, http.StatusNotFound, string(domain.ErrNotImplemented), err.Error())
		return nil, false
	}
	return conn, true
}

func (s *Server) paymentFlowData(c *gin.Context, merchantID, customerID, paymentID, returnURL string) *domain.PaymentFlowData {
	requestID := c.GetHeader(headerRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return &domain.PaymentFlowData{
		MerchantID:                  merchantID,
		CustomerID:                  customerID,
		PaymentID:                   paymentID,
		AttemptID:                   uuid.NewString(),
		ReturnURL:                   returnURL,
		ConnectorRequestReferenceID: requestID,
		TestMode:                    s.testMode,
		Connectors:                  s.endpoints,
	}
}

func captureMethodFrom(raw string) domain.CaptureMethod {
	if raw == "" {
		return domain.CaptureAutomatic
	}
	return domain.CaptureMethod(raw)
}

// respondPayment writes a settled payment envelope. Both connector-reported
// outcomes are 200s; the error record distinguishes a processor decline.
func respondPayment[F domain.Flow, Req any](
	c *gin.Context,
	paymentID string,
	env *connector.Envelope[F, *domain.PaymentFlowData, Req, domain.PaymentsResponse],
) {
	if resp, ok := env.Response(); ok {
		out := paymentResultDTO{
			PaymentID:                    paymentID,
			Status:                       string(env.Common.Status),
			ConnectorTransactionID:       resp.ResourceID.Value(),
			Redirect:                     resp.Redirect,
			ConnectorResponseReferenceID: resp.ConnectorResponseReferenceID,
			NetworkTransactionID:         resp.NetworkTxnID,
		}
		if resp.Mandate != nil {
			if id, ok := resp.Mandate.ConnectorMandateID(); ok {
				out.ConnectorMandateID = id
			}
		}
		c.JSON(http.StatusOK, out)
		return
	}
	record := env.ErrorResponse()
	status := env.Common.Status
	if record.AttemptStatus != nil {
		status = *record.AttemptStatus
	}
	c.JSON(http.StatusOK, paymentResultDTO{
		PaymentID:              paymentID,
		Status:                 string(status),
		ConnectorTransactionID: record.ConnectorTxnID,
		Error:                  errorDTOFrom(record),
	})
}

func respondRefund[F domain.Flow, Req any](
	c *gin.Context,
	refundID string,
	env *connector.Envelope[F, *domain.RefundFlowData, Req, domain.RefundResponse],
) {
	if resp, ok := env.Response(); ok {
		c.JSON(http.StatusOK, refundResultDTO{
			RefundID:          refundID,
			Status:            string(resp.Status),
			ConnectorRefundID: resp.ConnectorRefundID,
		})
		return
	}
	record := env.ErrorResponse()
	c.JSON(http.StatusOK, refundResultDTO{
		RefundID: refundID,
		Status:   string(domain.RefundFailure),
		Error:    errorDTOFrom(record),
	})
}

func respondDispute[F domain.Flow, Req any](
	c *gin.Context,
	disputeID string,
	env *connector.Envelope[F, *domain.DisputeFlowData, Req, domain.DisputeResponse],
) {
	if resp, ok := env.Response(); ok {
		c.JSON(http.StatusOK, disputeResultDTO{
			DisputeID:                    disputeID,
			Status:                       string(resp.Status),
			ConnectorDisputeID:           resp.ConnectorDisputeID,
			ConnectorResponseReferenceID: resp.ConnectorResponseReferenceID,
		})
		return
	}
	record := env.ErrorResponse()
	c.JSON(http.StatusOK, disputeResultDTO{
		DisputeID: disputeID,
		Status:    string(env.Common.Status),
		Error:     errorDTOFrom(record),
	})
}
