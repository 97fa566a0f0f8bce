// Package paytm speaks the Paytm v2 transaction API. Authorization is a
// two step dance: an initiate call issues a transaction token which the
// process call then spends, so the session-token pre-step is mandatory.
// Initiate and status requests carry an AES-CBC salted checksum computed
// over the body under the merchant key.
package paytm

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/payorch/connector-gateway/internal/amount"
	"github.com/payorch/connector-gateway/internal/connector"
	"github.com/payorch/connector-gateway/internal/domain"
)

const Name = "paytm"

const (
	initiatePath = "/theia/api/v1/initiateTransaction"
	processPath  = "/theia/api/v1/processTransaction"
	statusPath   = "/v3/order/status"
)

var amountConvertor = amount.StringMajorUnitConvertor{}

// Connector implements session-token issuance, authorization and payment
// sync. The processor has no gateway-side capture, void or refund on this
// API surface; those flows stay on the embedded defaults.
type Connector[PM domain.PaymentMethodData] struct {
	connector.Base[PM]
}

func New[PM domain.PaymentMethodData]() *Connector[PM] {
	return &Connector[PM]{Base: connector.NewBase[PM](Name)}
}

func (c *Connector[PM]) ShouldCreateSessionToken() bool { return true }

func (c *Connector[PM]) CreateSessionToken() connector.SessionTokenIntegration {
	return sessionTokenIntegration{}
}

func (c *Connector[PM]) Authorize() connector.AuthorizeIntegration[PM] {
	return authorizeIntegration[PM]{}
}

func (c *Connector[PM]) PaymentSync() connector.PaymentSyncIntegration {
	return psyncIntegration{}
}

// credentials unpacks the signature-key triple: merchant id, the checksum
// key and the registered website name.
func credentials(auth domain.AuthType, flow string) (merchantID, merchantKey, website domain.Secret, err error) {
	merchantID, merchantKey, website, err = auth.SignatureKey()
	if err != nil {
		err = domain.NewConnectorError(domain.ErrAuthTypeResolutionFailed, Name, flow, "", err)
	}
	return
}

func transactionURL(base, path, merchantID, orderID string) string {
	query := url.Values{}
	query.Set("mid", merchantID)
	query.Set("orderId", orderID)
	return strings.TrimRight(base, "/") + path + "?" + query.Encode()
}

// serverErrors routes 5xx replies through the shared error normalizer; the
// processor emits its usual JSON shapes even when degraded.
type serverErrors struct{}

func (serverErrors) ServerErrorResponse(resp connector.Response, _ string) domain.ErrorResponse {
	return errorResponseFrom(resp.Body, resp.StatusCode)
}

type sessionTokenIntegration struct{ serverErrors }

func (sessionTokenIntegration) HTTPMethod() string { return http.MethodPost }

func (sessionTokenIntegration) URL(e *sessionEnvelope) (string, error) {
	const flow = "create_session_token"
	merchantID, _, _, err := credentials(e.Auth, flow)
	if err != nil {
		return "", err
	}
	return transactionURL(e.Common.Connectors.Paytm.BaseURL, initiatePath, merchantID.Peek(), e.Common.ConnectorRequestReferenceID), nil
}

func (sessionTokenIntegration) Body(e *sessionEnvelope) (connector.RequestContent, error) {
	const flow = "create_session_token"
	merchantID, merchantKey, website, err := credentials(e.Auth, flow)
	if err != nil {
		return connector.RequestContent{}, err
	}
	value, err := amountConvertor.Convert(e.Request.MinorAmount, e.Request.Currency)
	if err != nil {
		return connector.RequestContent{}, domain.NewConnectorError(domain.ErrAmountConversionFailed, Name, flow, "", err)
	}

	customerID := e.Common.CustomerID
	if customerID == "" {
		customerID = defaultCustomerID
	}
	callbackURL := e.Request.ReturnURL
	if callbackURL == "" {
		callbackURL = defaultCallbackURL
	}

	body, err := json.Marshal(initiateBody{
		RequestType: requestTypePayment,
		MID:         merchantID.Peek(),
		OrderID:     e.Common.ConnectorRequestReferenceID,
		WebsiteName: website.Peek(),
		TxnAmount:   txnAmount{Value: value, Currency: string(e.Request.Currency)},
		UserInfo:    userInfo{CustID: customerID},
		EnablePaymentMode: []enableMethod{
			{Mode: "UPI", Channels: []string{"UPIPUSH", "UPI"}},
		},
		CallbackURL: callbackURL,
	})
	if err != nil {
		return connector.RequestContent{}, domain.NewConnectorError(domain.ErrRequestEncodingFailed, Name, flow, "", err)
	}

	head, err := signedHead(body, merchantKey, flow)
	if err != nil {
		return connector.RequestContent{}, err
	}
	return connector.JSONContent(signedRequest{Head: head, Body: body})
}

func (sessionTokenIntegration) Headers(*sessionEnvelope, connector.RequestContent) ([]connector.Header, error) {
	return nil, nil
}

func (sessionTokenIntegration) HandleResponse(e *sessionEnvelope, resp connector.Response) error {
	const flow = "create_session_token"
	var parsed initiateResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return domain.NewConnectorError(domain.ErrResponseDeserializationFailed, Name, flow, "", err)
	}

	info := parsed.Body.ResultInfo
	if (info.ResultCode == codeSuccess || info.ResultCode == codeDuplicate) && parsed.Body.TxnToken != "" {
		e.Succeed(domain.SessionTokenResponse{SessionToken: parsed.Body.TxnToken})
		return nil
	}
	e.Fail(fillErrorDefaults(domain.ErrorResponse{
		StatusCode: resp.StatusCode,
		Code:       info.ResultCode,
		Message:    info.ResultMsg,
	}))
	return nil
}

func (sessionTokenIntegration) HandleError(e *sessionEnvelope, resp connector.Response) (domain.ErrorResponse, error) {
	return errorResponseFrom(resp.Body, resp.StatusCode), nil
}

type authorizeIntegration[PM domain.PaymentMethodData] struct{ serverErrors }

func (authorizeIntegration[PM]) HTTPMethod() string { return http.MethodPost }

func (authorizeIntegration[PM]) URL(e *connector.Envelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[PM], domain.PaymentsResponse]) (string, error) {
	const flow = "authorize"
	merchantID, _, _, err := credentials(e.Auth, flow)
	if err != nil {
		return "", err
	}
	return transactionURL(e.Common.Connectors.Paytm.BaseURL, processPath, merchantID.Peek(), e.Common.ConnectorRequestReferenceID), nil
}

func (authorizeIntegration[PM]) Body(e *connector.Envelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[PM], domain.PaymentsResponse]) (connector.RequestContent, error) {
	const flow = "authorize"
	if e.Common.SessionToken == "" {
		return connector.RequestContent{}, domain.NewConnectorError(domain.ErrMissingRequiredField, Name, flow, "session token", nil)
	}
	merchantID, _, _, err := credentials(e.Auth, flow)
	if err != nil {
		return connector.RequestContent{}, err
	}
	return connector.JSONContent(processRequest{
		Head: processHead{
			Version:          apiVersion,
			RequestTimestamp: unixTimestamp(),
			ChannelID:        channelID,
			TxnToken:         e.Common.SessionToken,
		},
		Body: processBody{
			MID:         merchantID.Peek(),
			OrderID:     e.Common.ConnectorRequestReferenceID,
			RequestType: requestTypePayment,
			PaymentMode: paymentModeIntent,
			PaymentFlow: paymentFlowNone,
		},
	})
}

func (authorizeIntegration[PM]) Headers(*connector.Envelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[PM], domain.PaymentsResponse], connector.RequestContent) ([]connector.Header, error) {
	return nil, nil
}

// HandleResponse settles the process reply. The processor answers with the
// status still in flight; a UPI deep link, when present, becomes the
// redirect the customer must follow.
func (authorizeIntegration[PM]) HandleResponse(e *connector.Envelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[PM], domain.PaymentsResponse], resp connector.Response) error {
	const flow = "authorize"
	var parsed processResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return domain.NewConnectorError(domain.ErrResponseDeserializationFailed, Name, flow, "", err)
	}

	e.Common.Status = attemptStatusFromCode(parsed.Body.ResultInfo.ResultCode)

	result := domain.PaymentsResponse{
		ResourceID: domain.NewConnectorTransactionID(e.Common.ConnectorRequestReferenceID),
	}
	if link := parsed.Body.DeepLinkInfo; link != nil {
		if link.OrderID != "" {
			result.ResourceID = domain.NewConnectorTransactionID(link.OrderID)
		}
		result.ConnectorResponseReferenceID = link.TransID
		if link.DeepLink != "" {
			result.Redirect = &domain.RedirectForm{URL: link.DeepLink, Method: http.MethodGet}
		}
	}
	e.Succeed(result)
	return nil
}

func (authorizeIntegration[PM]) HandleError(e *connector.Envelope[domain.Authorize, *domain.PaymentFlowData, domain.AuthorizeRequest[PM], domain.PaymentsResponse], resp connector.Response) (domain.ErrorResponse, error) {
	return errorResponseFrom(resp.Body, resp.StatusCode), nil
}

type psyncIntegration struct{ serverErrors }

func (psyncIntegration) HTTPMethod() string { return http.MethodPost }

func (psyncIntegration) URL(e *psyncEnvelope) (string, error) {
	return strings.TrimRight(e.Common.Connectors.Paytm.BaseURL, "/") + statusPath, nil
}

func (psyncIntegration) Body(e *psyncEnvelope) (connector.RequestContent, error) {
	const flow = "payment_sync"
	orderID, err := e.Request.ResourceID.TransactionID()
	if err != nil {
		return connector.RequestContent{}, domain.NewConnectorError(domain.ErrMissingConnectorTxnID, Name, flow, "", err)
	}
	merchantID, merchantKey, _, err := credentials(e.Auth, flow)
	if err != nil {
		return connector.RequestContent{}, err
	}
	body, err := json.Marshal(statusBody{MID: merchantID.Peek(), OrderID: orderID})
	if err != nil {
		return connector.RequestContent{}, domain.NewConnectorError(domain.ErrRequestEncodingFailed, Name, flow, "", err)
	}
	head, err := signedHead(body, merchantKey, flow)
	if err != nil {
		return connector.RequestContent{}, err
	}
	return connector.JSONContent(signedRequest{Head: head, Body: body})
}

func (psyncIntegration) Headers(*psyncEnvelope, connector.RequestContent) ([]connector.Header, error) {
	return nil, nil
}

func (psyncIntegration) HandleResponse(e *psyncEnvelope, resp connector.Response) error {
	const flow = "payment_sync"
	var parsed statusResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return domain.NewConnectorError(domain.ErrResponseDeserializationFailed, Name, flow, "", err)
	}

	status := attemptStatusFromCode(parsed.Body.ResultInfo.ResultCode)
	e.Common.Status = status

	if status == domain.AttemptFailure {
		e.Fail(fillErrorDefaults(domain.ErrorResponse{
			StatusCode:     resp.StatusCode,
			Code:           parsed.Body.ResultInfo.ResultCode,
			Message:        parsed.Body.ResultInfo.ResultMsg,
			AttemptStatus:  &status,
			ConnectorTxnID: parsed.Body.TxnID,
		}))
		return nil
	}

	orderID := parsed.Body.OrderID
	if orderID == "" {
		orderID = e.Common.ConnectorRequestReferenceID
	}
	e.Succeed(domain.PaymentsResponse{
		ResourceID:                   domain.NewConnectorTransactionID(orderID),
		ConnectorResponseReferenceID: parsed.Body.TxnID,
	})
	return nil
}

func (psyncIntegration) HandleError(e *psyncEnvelope, resp connector.Response) (domain.ErrorResponse, error) {
	return errorResponseFrom(resp.Body, resp.StatusCode), nil
}

type (
	sessionEnvelope = connector.Envelope[domain.CreateSessionToken, *domain.PaymentFlowData, domain.SessionTokenRequest, domain.SessionTokenResponse]
	psyncEnvelope   = connector.Envelope[domain.PaymentSync, *domain.PaymentFlowData, domain.PaymentSyncRequest, domain.PaymentsResponse]
)
