package mockapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenIssuer はHS256のJWTを発行・検証する。
// fixedが設定されている場合、そのトークンはfixedUserIDとして常に受け付ける。
type tokenIssuer struct {
	secret      []byte
	ttl         time.Duration
	fixed       string
	fixedUserID string
	now         func() time.Time
}

func (ti *tokenIssuer) issue(userID string) (string, error) {
	if ti.fixed != "" && userID == ti.fixedUserID {
		return ti.fixed, nil
	}
	now := ti.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (ti *tokenIssuer) parse(raw string) (string, error) {
	if ti.fixed != "" && raw == ti.fixed {
		return ti.fixedUserID, nil
	}
	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		return "", err
	}
	if !tok.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}
