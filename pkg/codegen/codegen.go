package codegen

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Alphabet excludes characters that are easy to misread when copied by hand
// (0/O, 1/I/l).
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length is the number of characters in a generated access code.
const Length = 6

// Generate produces a random access code drawn uniformly from Alphabet using a
// cryptographically secure source. Uniqueness is the caller's concern.
func Generate() (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	buf := make([]byte, Length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate access code: %w", err)
		}
		buf[i] = Alphabet[n.Int64()]
	}
	return string(buf), nil
}
