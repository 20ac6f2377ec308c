package utils

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateSecureToken creates a cryptographically secure random token.
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// RandomBase36 returns n random characters from [0-9a-z].
func RandomBase36(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(base36)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = base36[idx.Int64()]
	}
	return string(out), nil
}
