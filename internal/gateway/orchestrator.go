package gateway

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/payorch/connector-gateway/internal/amount"
	"github.com/payorch/connector-gateway/internal/connector"
	"github.com/payorch/connector-gateway/internal/domain"
	"github.com/payorch/connector-gateway/internal/policy"
)

// Gateway sequences flows across their pre-steps and gates them on policy
// before any network activity.
type Gateway struct {
	Pipeline *Pipeline
	Policy   *policy.Enforcer
	Logger   *zap.Logger
}

// NewGateway wires the orchestration layer.
func NewGateway(pipeline *Pipeline, enforcer *policy.Enforcer, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{Pipeline: pipeline, Policy: enforcer, Logger: logger}
}

// failBlocked settles an envelope for a flow stopped before the network.
func failBlocked[F domain.Flow, C connector.CommonData, Req any, Resp any](
	g *Gateway, env *connector.Envelope[F, C, Req, Resp], connectorName, reason string,
) {
	flow := env.FlowName()
	if g.Pipeline != nil && g.Pipeline.Metrics != nil {
		g.Pipeline.Metrics.ObserveBlockedFlow(connectorName, flow, "policy")
	}
	err := domain.NewConnectorError(domain.ErrPolicyBlocked, connectorName, flow, reason, nil)
	env.Fail(domain.ErrorResponseFrom(err, http.StatusUnprocessableEntity))
}

// gate evaluates policy for one flow. It settles the envelope and returns
// false when the flow must not proceed.
func gate[F domain.Flow, C connector.CommonData, Req any, Resp any](
	g *Gateway, env *connector.Envelope[F, C, Req, Resp], connectorName string, params policy.Parameters,
) (bool, error) {
	if g.Policy == nil {
		return true, nil
	}
	params.Connector = connectorName
	params.Flow = env.FlowName()
	decision, err := g.Policy.Evaluate(params)
	if err != nil {
		return false, err
	}
	if decision.Block {
		g.Logger.Info("flow blocked by policy",
			zap.String("connector", connectorName),
			zap.String("flow", params.Flow),
			zap.String("rule", decision.RuleID),
		)
		failBlocked(g, env, connectorName, decision.Reason)
		return false, nil
	}
	if decision.Review {
		g.Logger.Info("flow flagged for review",
			zap.String("connector", connectorName),
			zap.String("flow", params.Flow),
			zap.String("rule", decision.RuleID),
		)
	}
	return true, nil
}

// runGated is the common gate-then-execute path for single-call flows.
func runGated[F domain.Flow, C connector.CommonData, Req any, Resp any](
	ctx context.Context,
	g *Gateway,
	connectorName string,
	params policy.Parameters,
	integ connector.Integration[F, C, Req, Resp],
	env *connector.Envelope[F, C, Req, Resp],
) error {
	proceed, err := gate(g, env, connectorName, params)
	if err != nil || !proceed {
		return err
	}
	return Execute(ctx, g.Pipeline, connectorName, integ, env)
}

// runPreSteps performs the connector's declared pre-steps for a payment
// flow, folding their outputs into the shared flow data. A failed pre-step
// settles env with the pre-step's error record and stops the sequence; the
// main call is never attempted.
func runPreSteps[PM domain.PaymentMethodData, F domain.Flow, Req any, Resp any](
	ctx context.Context,
	g *Gateway,
	conn connector.Connector[PM],
	flowData *domain.PaymentFlowData,
	auth domain.AuthType,
	minorAmount int64,
	currency string,
	returnURL string,
	env *connector.Envelope[F, *domain.PaymentFlowData, Req, Resp],
) (bool, error) {
	name := conn.Name()

	if conn.ShouldCreateOrder() {
		orderEnv := connector.NewEnvelope[domain.CreateOrder, *domain.PaymentFlowData, domain.CreateOrderRequest, domain.CreateOrderResponse](
			flowData, auth, domain.CreateOrderRequest{
				MinorAmount: amount.MinorUnit(minorAmount),
				Currency:    amount.Currency(currency),
			})
		if err := Execute(ctx, g.Pipeline, name, conn.CreateOrder(), orderEnv); err != nil {
			return false, err
		}
		resp, ok := orderEnv.Response()
		if !ok {
			env.Fail(orderEnv.ErrorResponse())
			return false, nil
		}
		flowData.ReferenceID = resp.OrderID
	}

	if conn.ShouldCreateSessionToken() {
		tokenEnv := connector.NewEnvelope[domain.CreateSessionToken, *domain.PaymentFlowData, domain.SessionTokenRequest, domain.SessionTokenResponse](
			flowData, auth, domain.SessionTokenRequest{
				MinorAmount: amount.MinorUnit(minorAmount),
				Currency:    amount.Currency(currency),
				ReturnURL:   returnURL,
			})
		if err := Execute(ctx, g.Pipeline, name, conn.CreateSessionToken(), tokenEnv); err != nil {
			return false, err
		}
		resp, ok := tokenEnv.Response()
		if !ok {
			env.Fail(tokenEnv.ErrorResponse())
			return false, nil
		}
		flowData.SessionToken = resp.SessionToken
	}

	return true, nil
}

// AuthorizePayment gates, runs the connector's pre-steps and executes the
// authorize call. The outcome lands in env.
func AuthorizePayment[PM domain.PaymentMethodData](
	ctx context.Context,
	g *Gateway,
	conn connector.Connector[PM],
	env *connector.Envelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[PM], domain.PaymentsResponse],
) error {
	name := conn.Name()
	req := env.Request

	if err := conn.ValidateCapture(req.CaptureMethod); err != nil {
		if g.Pipeline != nil && g.Pipeline.Metrics != nil {
			g.Pipeline.Metrics.ObserveBlockedFlow(name, env.FlowName(), "capture_method")
		}
		env.Fail(domain.ErrorResponseFrom(err, http.StatusUnprocessableEntity))
		return nil
	}

	params := policy.Parameters{
		MinorAmount:   int64(req.MinorAmount),
		Currency:      string(req.Currency),
		CaptureMethod: string(req.CaptureMethod),
		PaymentMethod: req.PaymentMethod.MethodKind(),
		TestMode:      env.Common.TestMode,
	}
	proceed, err := gate(g, env, name, params)
	if err != nil || !proceed {
		return err
	}

	proceed, err = runPreSteps(ctx, g, conn, env.Common, env.Auth,
		int64(req.MinorAmount), string(req.Currency), req.ReturnURL, env)
	if err != nil || !proceed {
		return err
	}

	return Execute(ctx, g.Pipeline, name, conn.Authorize(), env)
}

// SetupMandate registers a stored-credential agreement, running the same
// pre-steps as authorization for connectors that need them.
func SetupMandate[PM domain.PaymentMethodData](
	ctx context.Context,
	g *Gateway,
	conn connector.Connector[PM],
	env *connector.Envelope[domain.SetupMandate, *domain.PaymentFlowData, domain.SetupMandateRequest[PM], domain.PaymentsResponse],
) error {
	name := conn.Name()
	req := env.Request

	params := policy.Parameters{
		Currency:      string(req.Currency),
		PaymentMethod: req.PaymentMethod.MethodKind(),
		TestMode:      env.Common.TestMode,
	}
	proceed, err := gate(g, env, name, params)
	if err != nil || !proceed {
		return err
	}

	proceed, err = runPreSteps(ctx, g, conn, env.Common, env.Auth, 0, string(req.Currency), req.ReturnURL, env)
	if err != nil || !proceed {
		return err
	}

	return Execute(ctx, g.Pipeline, name, conn.SetupMandate(), env)
}

// CapturePayment finalizes a previously authorized amount.
func CapturePayment[PM domain.PaymentMethodData](
	ctx context.Context,
	g *Gateway,
	conn connector.Connector[PM],
	env *connector.Envelope[domain.Capture, *domain.PaymentFlowData, domain.CaptureRequest, domain.PaymentsResponse],
) error {
	params := policy.Parameters{
		MinorAmount: int64(env.Request.MinorAmount),
		Currency:    string(env.Request.Currency),
		TestMode:    env.Common.TestMode,
	}
	return runGated(ctx, g, conn.Name(), params, conn.Capture(), env)
}

// VoidPayment cancels an authorization before capture.
func VoidPayment[PM domain.PaymentMethodData](
	ctx context.Context,
	g *Gateway,
	conn connector.Connector[PM],
	env *connector.Envelope[domain.Void, *domain.PaymentFlowData, domain.VoidRequest, domain.PaymentsResponse],
) error {
	params := policy.Parameters{TestMode: env.Common.TestMode}
	return runGated(ctx, g, conn.Name(), params, conn.Void(), env)
}

// SyncPayment fetches the payment's current state from the connector.
func SyncPayment[PM domain.PaymentMethodData](
	ctx context.Context,
	g *Gateway,
	conn connector.Connector[PM],
	env *connector.Envelope[domain.PaymentSync, *domain.PaymentFlowData, domain.PaymentSyncRequest, domain.PaymentsResponse],
) error {
	params := policy.Parameters{
		MinorAmount: int64(env.Request.MinorAmount),
		Currency:    string(env.Request.Currency),
		TestMode:    env.Common.TestMode,
	}
	return runGated(ctx, g, conn.Name(), params, conn.PaymentSync(), env)
}

// RepeatPayment charges an existing mandate without customer interaction.
func RepeatPayment[PM domain.PaymentMethodData](
	ctx context.Context,
	g *Gateway,
	conn connector.Connector[PM],
	env *connector.Envelope[domain.RepeatPayment, *domain.PaymentFlowData, domain.RepeatPaymentRequest, domain.PaymentsResponse],
) error {
	if err := env.Request.Mandate.Validate(); err != nil {
		env.Fail(domain.ErrorResponseFrom(
			domain.NewConnectorError(domain.ErrMissingRequiredField, conn.Name(), env.FlowName(), "mandate reference", err),
			http.StatusUnprocessableEntity))
		return nil
	}
	params := policy.Parameters{
		MinorAmount: int64(env.Request.MinorAmount),
		Currency:    string(env.Request.Currency),
		TestMode:    env.Common.TestMode,
	}
	return runGated(ctx, g, conn.Name(), params, conn.RepeatPayment(), env)
}

// RefundPayment returns part or all of a captured payment.
func RefundPayment[PM domain.PaymentMethodData](
	ctx context.Context,
	g *Gateway,
	conn connector.Connector[PM],
	env *connector.Envelope[domain.Refund, *domain.RefundFlowData, domain.RefundRequest, domain.RefundResponse],
) error {
	params := policy.Parameters{
		MinorAmount: int64(env.Request.MinorRefundAmount),
		Currency:    string(env.Request.Currency),
	}
	return runGated(ctx, g, conn.Name(), params, conn.Refund(), env)
}

// SyncRefund fetches the refund's current state from the connector.
func SyncRefund[PM domain.PaymentMethodData](
	ctx context.Context,
	g *Gateway,
	conn connector.Connector[PM],
	env *connector.Envelope[domain.RefundSync, *domain.RefundFlowData, domain.RefundSyncRequest, domain.RefundResponse],
) error {
	return runGated(ctx, g, conn.Name(), policy.Parameters{}, conn.RefundSync(), env)
}

// AcceptDispute concedes a dispute without contest.
func AcceptDispute[PM domain.PaymentMethodData](
	ctx context.Context,
	g *Gateway,
	conn connector.Connector[PM],
	env *connector.Envelope[domain.AcceptDispute, *domain.DisputeFlowData, domain.AcceptDisputeRequest, domain.DisputeResponse],
) error {
	return runGated(ctx, g, conn.Name(), policy.Parameters{}, conn.AcceptDispute(), env)
}

// SubmitEvidence contests a dispute with supporting material.
func SubmitEvidence[PM domain.PaymentMethodData](
	ctx context.Context,
	g *Gateway,
	conn connector.Connector[PM],
	env *connector.Envelope[domain.SubmitEvidence, *domain.DisputeFlowData, domain.SubmitEvidenceRequest, domain.DisputeResponse],
) error {
	return runGated(ctx, g, conn.Name(), policy.Parameters{}, conn.SubmitEvidence(), env)
}
