package internal

import (
	"crypto/rand"
	"encoding/base64"
)

const opaqueTokenBytes = 32

// NewOpaqueToken returns 32 random bytes encoded as unpadded base64url.
func NewOpaqueToken() (string, error) {
	var raw [opaqueTokenBytes]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ValidOpaqueToken reports whether s has the shape NewOpaqueToken produces.
func ValidOpaqueToken(s string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil && len(raw) == opaqueTokenBytes
}
