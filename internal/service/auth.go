package service

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sumii/sumii-core/internal/apierr"
)

// AuthService verifies bearer tokens minted by the external auth boundary
// (spec §9 "Framework-dependent auth → boundary service") and maps their
// subject claim to a User id. It never issues tokens itself.
type AuthService struct {
	signingSecret []byte
}

func NewAuthService(signingSecret string) *AuthService {
	return &AuthService{signingSecret: []byte(signingSecret)}
}

// VerifyToken parses and validates a bearer JWT, returning its subject
// (the User id) on success.
func (s *AuthService) VerifyToken(ctx context.Context, tokenString string) (string, error) {
	if tokenString == "" {
		return "", apierr.New(apierr.KindAuth, "token is empty")
	}

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signingSecret, nil
	})
	if err != nil || !token.Valid {
		return "", apierr.Wrap(apierr.KindAuth, "invalid or expired token", err)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return "", apierr.New(apierr.KindAuth, "token has no subject")
	}

	return subject, nil
}
