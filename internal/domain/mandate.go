package domain

import "errors"

// MandateReference identifies a stored-credential agreement. Exactly one
// variant is populated; construction through the New* helpers keeps the
// invariant.
type MandateReference struct {
	connectorMandateID string
	networkTxnID       string
	networkTokenWithID *NetworkTokenWithID
}

// NetworkTokenWithID pairs a network token with the transaction id that
// established it, for network-initiated retries.
type NetworkTokenWithID struct {
	Token Secret
	TxnID string
}

func NewConnectorMandateID(id string) MandateReference {
	return MandateReference{connectorMandateID: id}
}

func NewNetworkTxnID(id string) MandateReference {
	return MandateReference{networkTxnID: id}
}

func NewNetworkTokenWithID(token Secret, txnID string) MandateReference {
	return MandateReference{networkTokenWithID: &NetworkTokenWithID{Token: token, TxnID: txnID}}
}

func (m MandateReference) ConnectorMandateID() (string, bool) {
	return m.connectorMandateID, m.connectorMandateID != ""
}

func (m MandateReference) NetworkTxnID() (string, bool) {
	return m.networkTxnID, m.networkTxnID != ""
}

func (m MandateReference) NetworkTokenWithID() (*NetworkTokenWithID, bool) {
	return m.networkTokenWithID, m.networkTokenWithID != nil
}

// Empty reports whether no variant is populated.
func (m MandateReference) Empty() bool {
	return m.connectorMandateID == "" && m.networkTxnID == "" && m.networkTokenWithID == nil
}

// Validate rejects references with zero populated variants.
func (m MandateReference) Validate() error {
	if m.Empty() {
		return errors.New("mandate reference has no populated variant")
	}
	return nil
}
