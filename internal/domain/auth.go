package domain

import "fmt"

// AuthKind discriminates the supported credential shapes.
type AuthKind string

const (
	// AuthHeaderKey carries a single API key placed in a request header.
	AuthHeaderKey AuthKind = "header_key"
	// AuthBodyKey carries an API key plus one auxiliary key embedded in the
	// request body.
	AuthBodyKey AuthKind = "body_key"
	// AuthSignatureKey carries the triple used by signing connectors:
	// API key, auxiliary key (merchant id or similar) and signing secret.
	AuthSignatureKey AuthKind = "signature_key"
	// AuthNone is for connectors that authenticate by other means entirely.
	AuthNone AuthKind = "no_key"
)

// AuthType is a tagged union over the credential shapes a connector may
// require. Values are passed into each envelope by value and are never
// retained by the framework after the call completes.
type AuthType struct {
	kind      AuthKind
	apiKey    Secret
	key1      Secret
	apiSecret Secret
}

func NewHeaderKeyAuth(apiKey Secret) AuthType {
	return AuthType{kind: AuthHeaderKey, apiKey: apiKey}
}

func NewBodyKeyAuth(apiKey, key1 Secret) AuthType {
	return AuthType{kind: AuthBodyKey, apiKey: apiKey, key1: key1}
}

func NewSignatureKeyAuth(apiKey, key1, apiSecret Secret) AuthType {
	return AuthType{kind: AuthSignatureKey, apiKey: apiKey, key1: key1, apiSecret: apiSecret}
}

func NewNoAuth() AuthType { return AuthType{kind: AuthNone} }

func (a AuthType) Kind() AuthKind { return a.kind }

// HeaderKey returns the API key for header-key credentials.
func (a AuthType) HeaderKey() (Secret, error) {
	if a.kind != AuthHeaderKey {
		return Secret{}, fmt.Errorf("auth type is %s, not %s", a.kind, AuthHeaderKey)
	}
	return a.apiKey, nil
}

// BodyKey returns the API key and auxiliary key for body-key credentials.
func (a AuthType) BodyKey() (Secret, Secret, error) {
	if a.kind != AuthBodyKey {
		return Secret{}, Secret{}, fmt.Errorf("auth type is %s, not %s", a.kind, AuthBodyKey)
	}
	return a.apiKey, a.key1, nil
}

// SignatureKey returns the full signing triple.
func (a AuthType) SignatureKey() (apiKey, key1, apiSecret Secret, err error) {
	if a.kind != AuthSignatureKey {
		return Secret{}, Secret{}, Secret{}, fmt.Errorf("auth type is %s, not %s", a.kind, AuthSignatureKey)
	}
	return a.apiKey, a.key1, a.apiSecret, nil
}

// Zero clears all credential material in place.
func (a *AuthType) Zero() {
	a.apiKey.Zero()
	a.key1.Zero()
	a.apiSecret.Zero()
}
