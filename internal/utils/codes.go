package utils // package utils provides helpers for booking codes and QR images

import (
	"crypto/rand"  // secure random number generation
	"encoding/hex" // hex encoding of random bytes
	"math/big"     // bounds for uniform draws
	"strings"
)

const (
	bookingLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	bookingDigits  = "0123456789"
)

// NewBookingNumber returns the human-facing booking code: three upper-case
// letters followed by three digits, each drawn uniformly.  Codes are short
// enough to read over the phone and are not unique.
func NewBookingNumber() (string, error) {
	var b strings.Builder
	b.Grow(6)
	for i := 0; i < 3; i++ {
		c, err := pick(bookingLetters)
		if err != nil {
			return "", err
		}
		b.WriteByte(c)
	}
	for i := 0; i < 3; i++ {
		c, err := pick(bookingDigits)
		if err != nil {
			return "", err
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

// NewBookingURL returns the opaque lookup token of a booking: six random
// bytes from crypto/rand, hex encoded and upper-cased (12 characters).
func NewBookingURL() (string, error) {
	raw, err := randomHex(6)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(raw), nil
}

// pick returns one byte of alphabet chosen uniformly.
func pick(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, err
	}
	return alphabet[n.Int64()], nil
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
