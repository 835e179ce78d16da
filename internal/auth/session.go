// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ResumeSigner signs and verifies resume tokens. A token binds a client id to the
// room it was issued in, so a reconnecting client keeps its identity.
type ResumeSigner struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	ttl        time.Duration // 0 => never expires
}

// NewResumeSigner generates a fresh ed25519 key pair at runtime. Tokens do not
// survive a restart, which only costs a client its seat.
func NewResumeSigner(ttl time.Duration) (*ResumeSigner, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &ResumeSigner{privateKey: priv, publicKey: pub, ttl: ttl}, nil
}

// LoadResumeSigner reads ed25519 private/public keys from file.
func LoadResumeSigner(privatePath, publicPath string, ttl time.Duration) (*ResumeSigner, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("malformed ed25519 key files")
	}
	return &ResumeSigner{
		privateKey: ed25519.PrivateKey(privateKeyData),
		publicKey:  ed25519.PublicKey(publicKeyData),
		ttl:        ttl,
	}, nil
}

// CreateResumeToken signs a token with "sub" = clientID and "room" = roomID.
func (s *ResumeSigner) CreateResumeToken(clientID, roomID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  clientID,
		"room": roomID,
		"iat":  now.Unix(),
	}
	if s.ttl != 0 {
		claims["exp"] = now.Add(s.ttl).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.privateKey)
}

// AuthenticateResumeToken verifies a token for roomID and returns its client id.
func (s *ResumeSigner) AuthenticateResumeToken(tokenString, roomID string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid jwt claims")
	}
	clientID, ok := claims["sub"].(string)
	if !ok || clientID == "" {
		return "", fmt.Errorf("missing sub in jwt")
	}
	if room, _ := claims["room"].(string); room != roomID {
		return "", fmt.Errorf("token was issued for room %q", room)
	}
	return clientID, nil
}
