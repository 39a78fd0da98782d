package jwt

import (
	"context"
	"errors"
	"strings"
	"time"

	"clinic-records/internal/domain/access"
	"clinic-records/internal/ports/auth"

	gojwt "github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrEmptySecret  = errors.New("jwt secret required")
)

type tokenClaims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Name     string `json:"name,omitempty"`
	gojwt.RegisteredClaims
}

// Signer firma y verifica tokens HS256. Implementa auth.AuthVerifier
// y auth.TokenIssuer.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func New(secret string, ttl time.Duration) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (s *Signer) Issue(actor auth.Actor) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := tokenClaims{
		UserID:   actor.ID,
		Username: actor.Username,
		Role:     string(actor.Role),
		Name:     actor.Name,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(exp),
		},
	}
	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (s *Signer) Verify(_ context.Context, token string) (auth.Claims, error) {
	parsed, err := gojwt.ParseWithClaims(token, &tokenClaims{}, func(t *gojwt.Token) (any, error) {
		if t.Method != gojwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, gojwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return auth.Claims{}, ErrInvalidToken
	}
	c, ok := parsed.Claims.(*tokenClaims)
	if !ok || strings.TrimSpace(c.UserID) == "" {
		return auth.Claims{}, ErrInvalidToken
	}
	role, _ := access.ParseRole(c.Role)
	return auth.Claims{UserID: c.UserID, Username: c.Username, Role: role}, nil
}
