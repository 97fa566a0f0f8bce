package domain

// Secret holds credential material. It never serializes or prints its value;
// integrations reach the raw string only through Peek when assembling auth
// headers or signatures.
type Secret struct {
	value string
}

const maskedValue = "*** redacted ***"

func NewSecret(v string) Secret { return Secret{value: v} }

// Peek exposes the raw value. Call sites are the audit surface for credential
// use; keep them inside connector transformers and signing code.
func (s Secret) Peek() string { return s.value }

func (s Secret) Empty() bool { return s.value == "" }

// Zero clears the underlying value.
func (s *Secret) Zero() { s.value = "" }

func (s Secret) String() string { return maskedValue }

func (s Secret) MarshalJSON() ([]byte, error) { return []byte(`"` + maskedValue + `"`), nil }
