package util

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	digits       = "0123456789"
	alphanumeric = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// RandomString returns n characters drawn uniformly from charset.
func RandomString(n int, charset string) (string, error) {
	var b strings.Builder
	b.Grow(n)
	max := big.NewInt(int64(len(charset)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(charset[idx.Int64()])
	}
	return b.String(), nil
}

// RandomDigits returns n decimal digits, leading zeros allowed.
func RandomDigits(n int) (string, error) {
	return RandomString(n, digits)
}

// RandomCode returns n upper-case letters and digits without look-alikes.
func RandomCode(n int) (string, error) {
	return RandomString(n, alphanumeric)
}

// NewSessionToken returns an opaque 64 character token for session cookies.
func NewSessionToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
