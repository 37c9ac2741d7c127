package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// GenerateSecret returns a hex-encoded random secret of the given byte length.
func GenerateSecret(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = 32
	}
	secret := make([]byte, byteLength)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(secret), nil
}
