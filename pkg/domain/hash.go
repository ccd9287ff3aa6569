package domain

import (
	"encoding/hex"
	"strings"

	dErrors "credentry/pkg/domain-errors"
)

// hashHexLength is the length of the textual form: "0x" + 64 hex chars.
const hashHexLength = 66

// Hash256 is a fixed 32-byte content fingerprint. The registry never computes
// fingerprints itself; it stores and compares them byte-for-byte.
type Hash256 [32]byte

// ParseHash256 validates a textual fingerprint: 0x-prefixed, 64 hex
// characters. Case is normalized away by decoding into bytes.
func ParseHash256(raw string) (Hash256, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Hash256{}, dErrors.New(dErrors.CodeInvalidInput, "document hash is required")
	}
	if len(raw) != hashHexLength || !strings.HasPrefix(raw, "0x") {
		return Hash256{}, dErrors.New(dErrors.CodeInvalidInput, "document hash must be a 0x-prefixed 64-character hex string")
	}
	decoded, err := hex.DecodeString(raw[2:])
	if err != nil {
		return Hash256{}, dErrors.New(dErrors.CodeInvalidInput, "document hash contains non-hex characters")
	}
	var h Hash256
	copy(h[:], decoded)
	return h, nil
}

// String renders the canonical lowercase 0x-prefixed form.
func (h Hash256) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash256) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler with boundary validation.
func (h *Hash256) UnmarshalText(text []byte) error {
	parsed, err := ParseHash256(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// CertificateID indexes the append-only certificate log. IDs are assigned
// sequentially from 0 and never reused.
type CertificateID uint64
