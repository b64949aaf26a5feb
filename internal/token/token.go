// Package token mints identity tokens in the shape the identity provider
// issues them, for local development and tests.  Production tokens come
// from the provider; the service only verifies them.
package token

import (
    "errors"
    "strings"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// Token is a signed HS256 JWT and its expiry.
type Token struct {
    Raw string
    Exp time.Time
}

// Mint signs a token for email valid for ttl.  The email is carried in both
// the email and sub claims.
func Mint(secret, email string, ttl time.Duration) (Token, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    if email == "" || !strings.Contains(email, "@") {
        return Token{}, errors.New("token: email required")
    }
    if secret == "" {
        return Token{}, errors.New("token: secret required")
    }
    if ttl <= 0 {
        ttl = time.Hour
    }
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := jwt.MapClaims{
        "sub":   email,
        "email": email,
        "iat":   now.Unix(),
        "exp":   exp.Unix(),
    }
    raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return Token{}, err
    }
    return Token{Raw: raw, Exp: exp}, nil
}
