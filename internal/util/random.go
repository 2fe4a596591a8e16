package util

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateSecret returns n characters drawn uniformly from an alphanumeric
// alphabet using crypto/rand.
func GenerateSecret(n int) (string, error) {
	if n <= 0 {
		n = 24
	}
	limit := big.NewInt(int64(len(secretAlphabet)))
	var builder strings.Builder
	builder.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		builder.WriteByte(secretAlphabet[idx.Int64()])
	}
	return builder.String(), nil
}
