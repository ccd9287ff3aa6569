// Package domain defines the identity and value types shared across the
// registry. Parsing happens once at trust boundaries; everything past the
// boundary works with the typed, normalized values.
package domain

import (
	"encoding/hex"
	"strings"

	dErrors "credentry/pkg/domain-errors"
)

// addressHexLength is the length of the textual form: "0x" + 40 hex chars.
const addressHexLength = 42

// Address is the opaque, globally unique identity of a registry participant
// (institution or holder). Internally a fixed 20-byte value; equality is
// byte equality, so case differences in the textual form never matter.
type Address [20]byte

// ZeroAddress is the invalid all-zero identity. It is rejected at parse time
// and acts as the "no address" value internally.
var ZeroAddress Address

// ParseAddress validates and normalizes a textual address.
// Accepted form: 0x-prefixed, 40 hex characters, any case. The zero address
// is rejected because it can never identify a real participant.
func ParseAddress(raw string) (Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "address is required")
	}
	if len(raw) != addressHexLength || !strings.HasPrefix(raw, "0x") {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "address must be a 0x-prefixed 40-character hex string")
	}
	decoded, err := hex.DecodeString(raw[2:])
	if err != nil {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "address contains non-hex characters")
	}
	var a Address
	copy(a[:], decoded)
	if a.IsZero() {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "zero address is not a valid identity")
	}
	return a, nil
}

// IsZero reports whether the address is the all-zero (absent) identity.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// String renders the canonical lowercase 0x-prefixed form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler so addresses serialize in
// canonical form in JSON payloads and event envelopes.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler with boundary validation.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
