package paytm

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/payorch/connector-gateway/internal/amount"
	"github.com/payorch/connector-gateway/internal/domain"
	"github.com/payorch/connector-gateway/internal/signing"
)

const (
	apiVersion = "v2"
	channelID  = "WEB"

	requestTypePayment = "Payment"
	paymentModeIntent  = "UPI_INTENT"
	paymentFlowNone    = "NONE"

	defaultCustomerID  = "guest"
	defaultCallbackURL = "https://default-callback.com"
)

// Result codes the processor returns in resultInfo.
const (
	codeTxnSuccess         = "01"
	codeSuccess            = "0000"
	codeDuplicate          = "0002"
	codePending            = "400"
	codePendingBankConfirm = "402"
	codeNoRecordFound      = "331"
)

// paytmIV is the fixed AES-CBC initialization vector of the checksum
// scheme. It is part of the processor's wire contract.
var paytmIV = []byte("@@@@&&&&####$$$$")

// requestHeader is the signed head element carried by initiate and status
// calls. clientId is always serialized, null when absent.
type requestHeader struct {
	ClientID         *string `json:"clientId"`
	Version          string  `json:"version"`
	RequestTimestamp string  `json:"requestTimestamp"`
	ChannelID        string  `json:"channelId"`
	Signature        string  `json:"signature"`
}

// signedRequest wraps an already-marshaled body so the checksum covers the
// exact bytes that go on the wire.
type signedRequest struct {
	Head requestHeader   `json:"head"`
	Body json.RawMessage `json:"body"`
}

func unixTimestamp() string {
	return strconv.FormatInt(time.Now().Unix(), 10)
}

// signedHead computes the head element for a marshaled body: a random
// salt, the salted SHA-256 checksum AES-encrypted under the merchant key.
func signedHead(bodyJSON []byte, merchantKey domain.Secret, flow string) (requestHeader, error) {
	salt, err := signing.NewSalt()
	if err != nil {
		return requestHeader{}, domain.NewConnectorError(domain.ErrRequestEncodingFailed, Name, flow, "salt generation", err)
	}
	signature, err := signing.SaltedChecksum(string(bodyJSON), []byte(merchantKey.Peek()), paytmIV, salt)
	if err != nil {
		return requestHeader{}, domain.NewConnectorError(domain.ErrRequestEncodingFailed, Name, flow, "checksum", err)
	}
	return requestHeader{
		Version:          apiVersion,
		RequestTimestamp: unixTimestamp(),
		ChannelID:        channelID,
		Signature:        signature,
	}, nil
}

type txnAmount struct {
	Value    amount.StringMajorUnit `json:"value"`
	Currency string                 `json:"currency"`
}

type userInfo struct {
	CustID    string `json:"custId"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
}

type enableMethod struct {
	Mode     string   `json:"mode"`
	Channels []string `json:"channels,omitempty"`
}

type initiateBody struct {
	RequestType       string         `json:"requestType"`
	MID               string         `json:"mid"`
	OrderID           string         `json:"orderId"`
	WebsiteName       string         `json:"websiteName"`
	TxnAmount         txnAmount      `json:"txnAmount"`
	UserInfo          userInfo       `json:"userInfo"`
	EnablePaymentMode []enableMethod `json:"enablePaymentMode"`
	CallbackURL       string         `json:"callbackUrl"`
}

type processHead struct {
	Version          string `json:"version"`
	RequestTimestamp string `json:"requestTimestamp"`
	ChannelID        string `json:"channelId"`
	TxnToken         string `json:"txnToken"`
}

type processBody struct {
	MID         string `json:"mid"`
	OrderID     string `json:"orderId"`
	RequestType string `json:"requestType"`
	PaymentMode string `json:"paymentMode"`
	PaymentFlow string `json:"paymentFlow"`
}

type processRequest struct {
	Head processHead `json:"head"`
	Body processBody `json:"body"`
}

type statusBody struct {
	MID     string `json:"mid"`
	OrderID string `json:"orderId"`
	TxnType string `json:"txnType,omitempty"`
}

type resultInfo struct {
	ResultStatus string `json:"resultStatus"`
	ResultCode   string `json:"resultCode"`
	ResultMsg    string `json:"resultMsg"`
}

type responseHead struct {
	ResponseTimestamp string `json:"responseTimestamp"`
	Version           string `json:"version"`
}

type initiateResponse struct {
	Head responseHead `json:"head"`
	Body struct {
		ResultInfo resultInfo `json:"resultInfo"`
		TxnToken   string     `json:"txnToken"`
	} `json:"body"`
}

type deepLinkInfo struct {
	DeepLink         string `json:"deepLink"`
	OrderID          string `json:"orderId"`
	CashierRequestID string `json:"cashierRequestId"`
	TransID          string `json:"transId"`
}

type processResponse struct {
	Head responseHead `json:"head"`
	Body struct {
		ResultInfo   resultInfo    `json:"resultInfo"`
		DeepLinkInfo *deepLinkInfo `json:"deepLinkInfo"`
	} `json:"body"`
}

type statusResponse struct {
	Head responseHead `json:"head"`
	Body struct {
		ResultInfo resultInfo `json:"resultInfo"`
		TxnID      string     `json:"txnId"`
		BankTxnID  string     `json:"bankTxnId"`
		OrderID    string     `json:"orderId"`
	} `json:"body"`
}

// attemptStatusFromCode maps resultInfo.resultCode onto the canonical
// attempt statuses. Codes outside the documented vocabulary map to
// Pending; the processor keeps transactions alive until a terminal code
// arrives.
func attemptStatusFromCode(code string) domain.AttemptStatus {
	switch code {
	case codeTxnSuccess:
		return domain.AttemptCharged
	case codeSuccess:
		return domain.AttemptAuthenticationPending
	case codePending, codePendingBankConfirm, codeNoRecordFound:
		return domain.AttemptPending
	case "227", "235", "267", "295", "334", "335", "401", "501", "810", "820", "843":
		return domain.AttemptFailure
	default:
		return domain.AttemptPending
	}
}

// attemptStatusFromHTTP classifies an error reply by transport status:
// processor-side 5xx failures stay pending for retry, everything else is
// final.
func attemptStatusFromHTTP(httpStatus int) domain.AttemptStatus {
	if httpStatus >= 500 && httpStatus <= 599 {
		return domain.AttemptPending
	}
	return domain.AttemptFailure
}

// errorBody is the superset of the three error shapes the processor emits:
// the initiate error (body.resultInfo), the callback error
// (body.txnInfo) and the flat errorCode form.
type errorBody struct {
	Body *struct {
		ResultInfo *resultInfo `json:"resultInfo"`
		TxnInfo    *struct {
			OrderID  string `json:"orderId"`
			RespCode string `json:"respCode"`
			RespMsg  string `json:"respMsg"`
		} `json:"txnInfo"`
	} `json:"body"`
	ErrorCode        string `json:"errorCode"`
	ErrorMessage     string `json:"errorMessage"`
	ErrorDescription string `json:"errorDescription"`
	TransactionID    string `json:"transactionId"`
}

// errorResponseFrom normalizes whichever error shape arrived. Unparseable
// bodies (HTML error pages and the like) fall back to the HTTP status with
// a truncated raw excerpt as the reason.
func errorResponseFrom(body []byte, httpStatus int) domain.ErrorResponse {
	status := attemptStatusFromHTTP(httpStatus)
	record := domain.ErrorResponse{
		StatusCode:    httpStatus,
		AttemptStatus: &status,
	}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case parsed.Body != nil && parsed.Body.TxnInfo != nil:
			info := parsed.Body.TxnInfo
			record.Code = info.RespCode
			record.Message = info.RespMsg
			record.ConnectorTxnID = info.OrderID
			if record.Code == "" && parsed.Body.ResultInfo != nil {
				record.Code = parsed.Body.ResultInfo.ResultCode
				record.Message = parsed.Body.ResultInfo.ResultMsg
			}
			return fillErrorDefaults(record)
		case parsed.Body != nil && parsed.Body.ResultInfo != nil:
			record.Code = parsed.Body.ResultInfo.ResultCode
			record.Message = parsed.Body.ResultInfo.ResultMsg
			return fillErrorDefaults(record)
		case parsed.ErrorCode != "" || parsed.ErrorMessage != "":
			record.Code = parsed.ErrorCode
			record.Message = parsed.ErrorMessage
			record.Reason = parsed.ErrorDescription
			record.ConnectorTxnID = parsed.TransactionID
			return fillErrorDefaults(record)
		}
	}

	record.Code = strconv.Itoa(httpStatus)
	record.Message = httpStatusMessage(httpStatus)
	record.Reason = "raw response: " + truncate(string(body), 200)
	return record
}

func fillErrorDefaults(record domain.ErrorResponse) domain.ErrorResponse {
	if record.Code == "" {
		record.Code = domain.NoErrorCode
	}
	if record.Message == "" {
		record.Message = domain.NoErrorMessage
	}
	return record
}

func httpStatusMessage(httpStatus int) string {
	switch httpStatus {
	case 400:
		return "Bad request"
	case 404:
		return "Not found"
	case 500:
		return "Internal server error"
	case 502:
		return "Bad gateway"
	case 503:
		return "Service temporarily unavailable"
	default:
		return "HTTP " + strconv.Itoa(httpStatus) + " error"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
