package domain

import (
	"strings"
	"testing"
)

// FuzzParseAddress checks that parsing never panics on arbitrary input and
// that every accepted address round-trips through its canonical form.
func FuzzParseAddress(f *testing.F) {
	f.Add("")
	f.Add("0x00000000000000000000000000000000000000aa")
	f.Add("0x0000000000000000000000000000000000000000")
	f.Add("0X00000000000000000000000000000000000000AA")
	f.Add("not-an-address")
	f.Add("0x" + strings.Repeat("ff", 20) + "ff")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		addr, err := ParseAddress(input)
		if err != nil {
			if addr != ZeroAddress {
				t.Fatalf("ParseAddress(%q) returned error and non-zero address %s", input, addr)
			}
			return
		}
		if addr.IsZero() {
			t.Fatalf("ParseAddress(%q) accepted the zero address", input)
		}
		again, err := ParseAddress(addr.String())
		if err != nil {
			t.Fatalf("canonical form %q failed to re-parse: %v", addr, err)
		}
		if again != addr {
			t.Fatalf("round trip changed address: %s != %s", again, addr)
		}
	})
}

// FuzzParseHash256 checks hash parsing on arbitrary input the same way.
func FuzzParseHash256(f *testing.F) {
	f.Add("")
	f.Add(strings.Repeat("ab", 32))
	f.Add("0x" + strings.Repeat("ab", 32))
	f.Add(strings.Repeat("zz", 32))

	f.Fuzz(func(t *testing.T, input string) {
		hash, err := ParseHash256(input)
		if err != nil {
			return
		}
		again, err := ParseHash256(hash.String())
		if err != nil {
			t.Fatalf("canonical form %q failed to re-parse: %v", hash, err)
		}
		if again != hash {
			t.Fatalf("round trip changed hash: %s != %s", again, hash)
		}
	})
}
