package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/payorch/connector-gateway/internal/amount"
	"github.com/payorch/connector-gateway/internal/connector"
	"github.com/payorch/connector-gateway/internal/domain"
	"github.com/payorch/connector-gateway/internal/gateway"
)

func (s *Server) authorize(c *gin.Context) {
	var dto authorizeDTO
	if !s.bind(c, "authorize", &dto) {
		return
	}
	auth, err := authFromHeaders(c)
	if err != nil {
		writeClassified(c, err)
		return
	}
	switch dto.PaymentMethod.Type {
	case "card":
		authorizeWith(s, c, s.cards, dto.PaymentMethod.card(), dto, auth)
	case "saved_token":
		authorizeWith(s, c, s.tokens, dto.PaymentMethod.savedToken(), dto, auth)
	default:
		writeError(c, http.StatusBadRequest, "invalid_request",
			"unsupported payment method type "+dto.PaymentMethod.Type)
	}
}

func authorizeWith[PM domain.PaymentMethodData](
	s *Server, c *gin.Context, reg *connector.Registry[PM], pm PM, dto authorizeDTO, auth domain.AuthType,
) {
	conn, ok := lookupConnector(c, reg)
	if !ok {
		return
	}
	flowData := s.paymentFlowData(c, dto.MerchantID, dto.CustomerID, dto.PaymentID, dto.ReturnURL)
	req := domain.AuthorizeRequest[PM]{
		PaymentMethod:          pm,
		MinorAmount:            amount.MinorUnit(dto.Amount),
		Currency:               amount.Currency(dto.Currency),
		CaptureMethod:          captureMethodFrom(dto.CaptureMethod),
		Email:                  dto.Email,
		CustomerName:           dto.CustomerName,
		ReturnURL:              dto.ReturnURL,
		WebhookURL:             dto.WebhookURL,
		SetupFutureUsage:       dto.SetupFutureUsage,
		OffSession:             dto.OffSession,
		MerchantOrderReference: dto.MerchantOrderReference,
		Metadata:               dto.Metadata,
	}
	env := connector.NewEnvelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[PM], domain.PaymentsResponse](flowData, auth, req)
	if err := gateway.AuthorizePayment(c.Request.Context(), s.gateway, conn, env); err != nil {
		writeClassified(c, err)
		return
	}
	respondPayment(c, dto.PaymentID, env)
}

func (s *Server) get(c *gin.Context) {
	var dto getDTO
	if !s.bind(c, "get", &dto) {
		return
	}
	auth, err := authFromHeaders(c)
	if err != nil {
		writeClassified(c, err)
		return
	}
	conn, ok := lookupConnector(c, s.cards)
	if !ok {
		return
	}
	flowData := s.paymentFlowData(c, "", "", dto.PaymentID, "")
	req := domain.PaymentSyncRequest{
		ResourceID:  dto.resourceID(),
		MinorAmount: amount.MinorUnit(dto.Amount),
		Currency:    amount.Currency(dto.Currency),
	}
	env := connector.NewEnvelope[domain.PaymentSync, *domain.PaymentFlowData, domain.PaymentSyncRequest, domain.PaymentsResponse](flowData, auth, req)
	if err := gateway.SyncPayment(c.Request.Context(), s.gateway, conn, env); err != nil {
		writeClassified(c, err)
		return
	}
	respondPayment(c, dto.PaymentID, env)
}

func (s *Server) void(c *gin.Context) {
	var dto voidDTO
	if !s.bind(c, "void", &dto) {
		return
	}
	auth, err := authFromHeaders(c)
	if err != nil {
		writeClassified(c, err)
		return
	}
	conn, ok := lookupConnector(c, s.cards)
	if !ok {
		return
	}
	flowData := s.paymentFlowData(c, "", "", dto.PaymentID, "")
	req := domain.VoidRequest{
		ConnectorTxnID:     dto.ConnectorTransactionID,
		CancellationReason: dto.CancellationReason,
	}
	env := connector.NewEnvelope[domain.Void, *domain.PaymentFlowData, domain.VoidRequest, domain.PaymentsResponse](flowData, auth, req)
	if err := gateway.VoidPayment(c.Request.Context(), s.gateway, conn, env); err != nil {
		writeClassified(c, err)
		return
	}
	respondPayment(c, dto.PaymentID, env)
}

func (s *Server) capture(c *gin.Context) {
	var dto captureDTO
	if !s.bind(c, "capture", &dto) {
		return
	}
	auth, err := authFromHeaders(c)
	if err != nil {
		writeClassified(c, err)
		return
	}
	conn, ok := lookupConnector(c, s.cards)
	if !ok {
		return
	}
	flowData := s.paymentFlowData(c, "", "", dto.PaymentID, "")
	req := domain.CaptureRequest{
		ConnectorTxnID: dto.ConnectorTransactionID,
		MinorAmount:    amount.MinorUnit(dto.Amount),
		Currency:       amount.Currency(dto.Currency),
	}
	env := connector.NewEnvelope[domain.Capture, *domain.PaymentFlowData, domain.CaptureRequest, domain.PaymentsResponse](flowData, auth, req)
	if err := gateway.CapturePayment(c.Request.Context(), s.gateway, conn, env); err != nil {
		writeClassified(c, err)
		return
	}
	respondPayment(c, dto.PaymentID, env)
}

func (s *Server) register(c *gin.Context) {
	var dto registerDTO
	if !s.bind(c, "register", &dto) {
		return
	}
	auth, err := authFromHeaders(c)
	if err != nil {
		writeClassified(c, err)
		return
	}
	switch dto.PaymentMethod.Type {
	case "card":
		registerWith(s, c, s.cards, dto.PaymentMethod.card(), dto, auth)
	case "saved_token":
		registerWith(s, c, s.tokens, dto.PaymentMethod.savedToken(), dto, auth)
	default:
		writeError(c, http.StatusBadRequest, "invalid_request",
			"unsupported payment method type "+dto.PaymentMethod.Type)
	}
}

func registerWith[PM domain.PaymentMethodData](
	s *Server, c *gin.Context, reg *connector.Registry[PM], pm PM, dto registerDTO, auth domain.AuthType,
) {
	conn, ok := lookupConnector(c, reg)
	if !ok {
		return
	}
	flowData := s.paymentFlowData(c, "", "", dto.PaymentID, dto.ReturnURL)
	req := domain.SetupMandateRequest[PM]{
		PaymentMethod:    pm,
		Currency:         amount.Currency(dto.Currency),
		Email:            dto.Email,
		ReturnURL:        dto.ReturnURL,
		SetupFutureUsage: dto.SetupFutureUsage,
	}
	env := connector.NewEnvelope[domain.SetupMandate, *domain.PaymentFlowData, domain.SetupMandateRequest[PM], domain.PaymentsResponse](flowData, auth, req)
	if err := gateway.SetupMandate(c.Request.Context(), s.gateway, conn, env); err != nil {
		writeClassified(c, err)
		return
	}
	respondPayment(c, dto.PaymentID, env)
}

func (s *Server) repeat(c *gin.Context) {
	var dto repeatDTO
	if !s.bind(c, "repeat", &dto) {
		return
	}
	auth, err := authFromHeaders(c)
	if err != nil {
		writeClassified(c, err)
		return
	}
	conn, ok := lookupConnector(c, s.tokens)
	if !ok {
		return
	}
	flowData := s.paymentFlowData(c, "", "", dto.PaymentID, "")
	req := domain.RepeatPaymentRequest{
		Mandate:                dto.mandate(),
		MinorAmount:            amount.MinorUnit(dto.Amount),
		Currency:               amount.Currency(dto.Currency),
		MerchantOrderReference: dto.MerchantOrderReference,
		Metadata:               dto.Metadata,
	}
	env := connector.NewEnvelope[domain.RepeatPayment, *domain.PaymentFlowData, domain.RepeatPaymentRequest, domain.PaymentsResponse](flowData, auth, req)
	if err := gateway.RepeatPayment(c.Request.Context(), s.gateway, conn, env); err != nil {
		writeClassified(c, err)
		return
	}
	respondPayment(c, dto.PaymentID, env)
}

func (s *Server) refund(c *gin.Context) {
	var dto refundDTO
	if !s.bind(c, "refund", &dto) {
		return
	}
	auth, err := authFromHeaders(c)
	if err != nil {
		writeClassified(c, err)
		return
	}
	conn, ok := lookupConnector(c, s.cards)
	if !ok {
		return
	}
	flowData := &domain.RefundFlowData{RefundID: dto.RefundID, Connectors: s.endpoints}
	req := domain.RefundRequest{
		ConnectorTxnID:         dto.ConnectorTransactionID,
		RefundID:               dto.RefundID,
		MinorRefundAmount:      amount.MinorUnit(dto.Amount),
		Currency:               amount.Currency(dto.Currency),
		Reason:                 dto.Reason,
		MerchantOrderReference: dto.MerchantOrderReference,
	}
	env := connector.NewEnvelope[domain.Refund, *domain.RefundFlowData, domain.RefundRequest, domain.RefundResponse](flowData, auth, req)
	if err := gateway.RefundPayment(c.Request.Context(), s.gateway, conn, env); err != nil {
		writeClassified(c, err)
		return
	}
	respondRefund(c, dto.RefundID, env)
}

func (s *Server) refundGet(c *gin.Context) {
	var dto refundGetDTO
	if !s.bind(c, "refund_get", &dto) {
		return
	}
	auth, err := authFromHeaders(c)
	if err != nil {
		writeClassified(c, err)
		return
	}
	conn, ok := lookupConnector(c, s.cards)
	if !ok {
		return
	}
	flowData := &domain.RefundFlowData{RefundID: dto.RefundID, Connectors: s.endpoints}
	req := domain.RefundSyncRequest{
		ConnectorTxnID:    dto.ConnectorTransactionID,
		ConnectorRefundID: dto.ConnectorRefundID,
	}
	env := connector.NewEnvelope[domain.RefundSync, *domain.RefundFlowData, domain.RefundSyncRequest, domain.RefundResponse](flowData, auth, req)
	if err := gateway.SyncRefund(c.Request.Context(), s.gateway, conn, env); err != nil {
		writeClassified(c, err)
		return
	}
	respondRefund(c, dto.RefundID, env)
}

func (s *Server) acceptDispute(c *gin.Context) {
	var dto acceptDisputeDTO
	if !s.bind(c, "dispute_accept", &dto) {
		return
	}
	auth, err := authFromHeaders(c)
	if err != nil {
		writeClassified(c, err)
		return
	}
	conn, ok := lookupConnector(c, s.cards)
	if !ok {
		return
	}
	flowData := &domain.DisputeFlowData{
		DisputeID:          dto.DisputeID,
		ConnectorDisputeID: dto.ConnectorDisputeID,
		Connectors:         s.endpoints,
	}
	req := domain.AcceptDisputeRequest{
		ConnectorDisputeID: dto.ConnectorDisputeID,
		ConnectorTxnID:     dto.ConnectorTransactionID,
	}
	env := connector.NewEnvelope[domain.AcceptDispute, *domain.DisputeFlowData, domain.AcceptDisputeRequest, domain.DisputeResponse](flowData, auth, req)
	if err := gateway.AcceptDispute(c.Request.Context(), s.gateway, conn, env); err != nil {
		writeClassified(c, err)
		return
	}
	respondDispute(c, dto.DisputeID, env)
}

func (s *Server) submitEvidence(c *gin.Context) {
	var dto submitEvidenceDTO
	if !s.bind(c, "dispute_evidence", &dto) {
		return
	}
	auth, err := authFromHeaders(c)
	if err != nil {
		writeClassified(c, err)
		return
	}
	conn, ok := lookupConnector(c, s.cards)
	if !ok {
		return
	}
	flowData := &domain.DisputeFlowData{
		DisputeID:          dto.DisputeID,
		ConnectorDisputeID: dto.ConnectorDisputeID,
		Connectors:         s.endpoints,
	}
	req := domain.SubmitEvidenceRequest{
		ConnectorDisputeID: dto.ConnectorDisputeID,
		ConnectorTxnID:     dto.ConnectorTransactionID,
		Explanation:        dto.Explanation,
		EvidenceFileIDs:    dto.EvidenceFileIDs,
	}
	env := connector.NewEnvelope[domain.SubmitEvidence, *domain.DisputeFlowData, domain.SubmitEvidenceRequest, domain.DisputeResponse](flowData, auth, req)
	if err := gateway.SubmitEvidence(c.Request.Context(), s.gateway, conn, env); err != nil {
		writeClassified(c, err)
		return
	}
	respondDispute(c, dto.DisputeID, env)
}

// transformWebhook verifies and classifies one inbound processor
// notification. The webhook secret arrives out of band like the flow
// credentials; the raw body is passed to verification untouched.
func (s *Server) transformWebhook(c *gin.Context) {
	name := c.Param("connector")
	conn, err := s.cards.Lookup(name)
	if err != nil {
		writeError(c, http.StatusNotFound, string(domain.ErrNotImplemented), err.Error())
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", "reading request body: "+err.Error())
		return
	}
	headers := make(map[string]string, len(c.Request.Header))
	for key, values := range c.Request.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}
	req := domain.RequestDetails{
		Method:      c.Request.Method,
		URI:         c.Request.URL.Path,
		Headers:     headers,
		Body:        body,
		QueryParams: c.Request.URL.RawQuery,
	}
	secrets := domain.WebhookSecrets{
		Secret:           domain.NewSecret(c.GetHeader(headerWebhookSecret)),
		AdditionalSecret: domain.NewSecret(c.GetHeader(headerWebhookSecondary)),
	}
	result, err := s.gateway.ProcessWebhook(conn, name, req, secrets)
	if err != nil {
		writeClassified(c, err)
		return
	}
	c.JSON(http.StatusOK, webhookResultFrom(result))
}
