package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// DispatchClaims is the claim set attached to every outbound webhook request.
type DispatchClaims struct {
	ClinicID string `json:"clinic_id"`
	jwt.RegisteredClaims
}

// Signer mints short-lived bearer tokens for the downstream endpoint. Tokens
// are recomputed per invocation, never cached, since expiry is
// invocation-relative.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner builds a Signer. The secret is mandatory; there is no default.
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("signing secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Mint issues a signed HS256 token scoped to the clinic.
func (s *Signer) Mint(clinicID uuid.UUID) (string, error) {
	if clinicID == uuid.Nil {
		return "", fmt.Errorf("clinic id is required")
	}

	now := s.now()
	claims := DispatchClaims{
		ClinicID: clinicID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token minted by Mint and returns its claims. Used by
// tests and operational tooling; the downstream endpoint does its own
// verification.
func ParseToken(secret, tokenString string) (*DispatchClaims, error) {
	claims := &DispatchClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
