package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the body of an issued token
type Claims struct {
	Workflows []string       `json:"workflows"`
	Context   string         `json:"context,omitempty"`
	Payload   map[string]any `json:"payload"`
	jwt.RegisteredClaims
}

// Signer issues HS256 tokens that expire after ttl
type Signer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "question-bank-service",
		now:    time.Now,
	}
}

func (s *Signer) TTL() time.Duration { return s.ttl }

// Sign returns the encoded token and its expiry
func (s *Signer) Sign(userID string, workflows []string, contextCode string, payload map[string]any) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := Claims{
		Workflows: workflows,
		Context:   contextCode,
		Payload:   payload,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies signature and expiry and returns the claims
func (s *Signer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}

	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
