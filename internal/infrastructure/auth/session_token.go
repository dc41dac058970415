package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const sessionTokenBytes = 32

// SessionTokens creates opaque cookie tokens. Only a keyed hash of a token
// is stored, so a leaked sessions table cannot be replayed as cookies.
type SessionTokens struct {
	secret string
}

// NewSessionTokens creates a token generator keyed by the session secret
func NewSessionTokens(secret string) *SessionTokens {
	return &SessionTokens{secret: secret}
}

// Generate returns a new URL-safe token and its storage hash
func (s *SessionTokens) Generate() (token, hash string, err error) {
	token, err = RandomToken()
	if err != nil {
		return "", "", err
	}
	return token, s.Hash(token), nil
}

// Hash returns the hex sha256 of secret+token
func (s *SessionTokens) Hash(token string) string {
	sum := sha256.Sum256([]byte(s.secret + token))
	return hex.EncodeToString(sum[:])
}

// RandomToken returns 32 random bytes in unpadded URL-safe base64.
// It is also used for anonymous cart session cookies.
func RandomToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
