package gateway

import (
	"go.uber.org/zap"

	"github.com/payorch/connector-gateway/internal/connector"
	"github.com/payorch/connector-gateway/internal/domain"
)

// ProcessWebhook verifies, classifies and transforms one inbound processor
// notification. Verification failures are terminal: an unverifiable
// notification is never transformed.
func (g *Gateway) ProcessWebhook(
	handler connector.WebhookHandler,
	connectorName string,
	req domain.RequestDetails,
	secrets domain.WebhookSecrets,
) (domain.WebhookTransformResult, error) {
	flow := domain.FlowNameOf[domain.IncomingWebhook]()

	verified, err := handler.VerifyWebhookSource(req, secrets)
	if err != nil {
		return domain.WebhookTransformResult{}, err
	}
	if !verified {
		g.Logger.Warn("webhook source verification failed",
			zap.String("connector", connectorName),
		)
		return domain.WebhookTransformResult{}, domain.NewConnectorError(
			domain.ErrWebhookVerificationFailed, connectorName, flow, "signature mismatch", nil)
	}

	result, err := handler.TransformWebhook(req)
	if err != nil {
		return domain.WebhookTransformResult{}, err
	}

	if g.Pipeline != nil && g.Pipeline.Metrics != nil {
		g.Pipeline.Metrics.ObserveWebhookEvent(connectorName, string(result.Event))
	}
	g.Logger.Info("webhook processed",
		zap.String("connector", connectorName),
		zap.String("event_type", string(result.Event)),
	)
	return result, nil
}
