// Package signing implements the two request-authentication families shared
// by connector integrations: keyed-hash signatures over a canonical field
// string, and salted-digest checksums encrypted with a symmetric key.
// Nonces and salts come from crypto/rand and are generated fresh per call;
// reusing one across calls is a defect.
package signing

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// SignHMACSHA256 signs the byte-exact concatenation of fields (in the given
// order) with HMAC-SHA256 and returns the base64 signature. Field order is
// part of each connector's wire contract; callers pass fields already
// ordered.
func SignHMACSHA256(secret []byte, fields ...string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strings.Join(fields, "")))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyHMACSHA256Hex checks a hex-encoded HMAC-SHA256 signature over
// payload in constant time. Used for webhook source verification.
func VerifyHMACSHA256Hex(secret, payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// ClientRequestID returns the fresh per-call nonce included in keyed-hash
// canonical strings.
func ClientRequestID() string {
	return uuid.NewString()
}

// RandomBytes returns n cryptographically random bytes.
func RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("reading random bytes: %w", err)
	}
	return buf, nil
}
