// Package hasher derives fixed-length content fingerprints for documents.
// The registry core treats fingerprints as opaque 32-byte values; this is the
// single place that knows how they are computed.
package hasher

import (
	"golang.org/x/crypto/sha3"

	"credentry/pkg/domain"
)

// Sum returns the SHA3-256 fingerprint of content. Deterministic and
// collision-resistant; comparison downstream is plain byte equality.
func Sum(content []byte) domain.Hash256 {
	return domain.Hash256(sha3.Sum256(content))
}
