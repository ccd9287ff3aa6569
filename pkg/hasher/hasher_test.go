package hasher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum(t *testing.T) {
	a := Sum([]byte("diploma v1"))
	b := Sum([]byte("diploma v1"))
	c := Sum([]byte("diploma v2"))

	assert.Equal(t, a, b, "fingerprint must be deterministic")
	assert.NotEqual(t, a, c, "different content must fingerprint differently")
	assert.Len(t, a.String(), 66, "boundary form is 0x plus 64 hex chars")
}
