package domain

// DisputeFlowData is the shared context for the dispute-domain flows.
type DisputeFlowData struct {
	DisputeID          string
	ConnectorDisputeID string
	Status             DisputeStatus
	Connectors         Connectors

	rawResponse []byte
	httpStatus  int
}

func (d *DisputeFlowData) RecordRawResponse(body []byte, status int) {
	if d.rawResponse != nil || d.httpStatus != 0 {
		return
	}
	d.rawResponse = body
	d.httpStatus = status
}

func (d *DisputeFlowData) RawResponse() ([]byte, int) {
	return d.rawResponse, d.httpStatus
}

// AcceptDisputeRequest concedes a dispute without contest.
type AcceptDisputeRequest struct {
	ConnectorDisputeID string
	ConnectorTxnID     string
}

// SubmitEvidenceRequest contests a dispute with supporting material.
// Evidence is textual here; file attachments ride through the connector's
// own upload surface and are referenced by id.
type SubmitEvidenceRequest struct {
	ConnectorDisputeID string
	ConnectorTxnID     string
	Explanation        string
	EvidenceFileIDs    []string
}

// DisputeResponse is the canonical success payload for dispute flows.
type DisputeResponse struct {
	ConnectorDisputeID           string
	Status                       DisputeStatus
	ConnectorResponseReferenceID string
}
