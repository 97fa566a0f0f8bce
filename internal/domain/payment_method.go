package domain

// Card is the PCI-scoped raw card variant of payment method data.
type Card struct {
	Number      Secret
	ExpMonth    string
	ExpYear     string
	CVC         Secret
	HolderName  string
	CardNetwork string
}

// SavedToken is the vaulted variant: a pre-tokenized reference issued by the
// processor or a network token, with optional display metadata.
type SavedToken struct {
	Token        Secret
	Last4        string
	CardNetwork  string
	NetworkToken bool
}

// PaymentMethodData constrains the parametric payment-method slot on the
// authorize, mandate-setup and repeat flows. The variant is chosen once at
// the service boundary and threaded through the pipeline as a type
// parameter; integrations never branch on it at arbitrary depths.
type PaymentMethodData interface {
	Card | SavedToken

	// MethodKind labels the variant for logs and capability checks.
	MethodKind() string
	// Credential is the wire credential: the PAN for raw cards, the vault
	// token otherwise.
	Credential() Secret
}

func (c Card) MethodKind() string { return "card" }
func (c Card) Credential() Secret { return c.Number }

func (t SavedToken) MethodKind() string { return "saved_token" }
func (t SavedToken) Credential() Secret { return t.Token }

// AsCard recovers the structured card fields when an integration needs more
// than the bare credential (expiry, CVC). This is the single sanctioned
// narrowing point for the parametric slot.
func AsCard[PM PaymentMethodData](pm PM) (Card, bool) {
	c, ok := any(pm).(Card)
	return c, ok
}

// AsSavedToken mirrors AsCard for the vaulted variant.
func AsSavedToken[PM PaymentMethodData](pm PM) (SavedToken, bool) {
	t, ok := any(pm).(SavedToken)
	return t, ok
}
