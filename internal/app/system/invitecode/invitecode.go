// internal/app/system/invitecode/invitecode.go
package invitecode

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// Invite codes are short, human-relayable tokens. The alphabet drops the
// look-alike characters 0/O and 1/I so a code read over the phone or copied
// by hand survives the trip.
const (
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ234567"
	Length   = 8

	// MaxAttempts bounds the insert-retry loop when a generated code
	// collides with a live group's code.
	MaxAttempts = 5
)

// ErrSpaceExhausted is returned when MaxAttempts consecutive generated codes
// all collided. With a 30^8 code space this indicates something is broken,
// not that the space is actually full.
var ErrSpaceExhausted = errors.New("could not generate a unique invite code")

// Generate returns a new random invite code.
func Generate() (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	var b strings.Builder
	b.Grow(Length)
	for i := 0; i < Length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Valid reports whether s has the shape of a code this package generates.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(Alphabet, rune(s[i])) {
			return false
		}
	}
	return true
}
