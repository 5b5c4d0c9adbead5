// internal/service/identity/resolver.go
package identity

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	domain "checkout-service/internal/domain/payment"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the session token claims the checkout cares about. Email is the
// only identity attribute that reaches the payment processor.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// VerifyAudience checks if the expected audience is listed in the claims.
func (c *Claims) VerifyAudience(audience string, required bool) bool {
	if len(c.Audience) == 0 {
		return !required
	}
	for _, aud := range c.Audience {
		if aud == audience {
			return true
		}
	}
	return false
}

// Resolver extracts the customer identity from a signed session token. An
// invalid or absent token is an anonymous checkout, not an error surface the
// buyer ever sees.
type Resolver struct {
	pub      *rsa.PublicKey
	issuer   string
	audience string
}

func NewResolver(pub *rsa.PublicKey, issuer, audience string) *Resolver {
	return &Resolver{
		pub:      pub,
		issuer:   issuer,
		audience: audience,
	}
}

// Resolve validates the session token and returns the customer identity.
func (r *Resolver) Resolve(tokenString string) (*domain.Identity, error) {
	if r.pub == nil {
		return nil, fmt.Errorf("identity resolver has nil public key")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return r.pub, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.Issuer != r.issuer {
		return nil, fmt.Errorf("invalid issuer: expected %s, got %s", r.issuer, claims.Issuer)
	}
	if !claims.VerifyAudience(r.audience, true) {
		return nil, fmt.Errorf("invalid audience")
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("token carries no email claim")
	}

	return &domain.Identity{CustomerEmail: claims.Email}, nil
}

// LoadRSAPublicKeyFromPEM reads the session verification key.
func LoadRSAPublicKeyFromPEM(path string) (*rsa.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}

	block, _ := pem.Decode(b)
	if block == nil || (block.Type != "RSA PUBLIC KEY" && block.Type != "PUBLIC KEY") {
		return nil, fmt.Errorf("invalid PEM public key type")
	}

	if block.Type == "PUBLIC KEY" {
		// PKIX format
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKIX public key: %w", err)
		}
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("not an RSA public key")
		}
		return rsaKey, nil
	}

	return x509.ParsePKCS1PublicKey(block.Bytes)
}
