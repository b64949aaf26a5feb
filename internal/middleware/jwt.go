package middleware

import (
    "net/http"
    "strings"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// JWTAuth validates an HS256 Bearer token issued by the identity provider
// and stores the caller's email in the context under ActorKey.  The email
// comes from the "email" claim, or from "sub" when it looks like an email.
func JWTAuth(secret string) echo.MiddlewareFunc {
    key := []byte(secret)
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "missing bearer token"})
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                return key, nil
            }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid token"})
            }
            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid claims"})
            }
            email := emailFromClaims(claims)
            if email == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "token carries no email"})
            }
            c.Set(ActorKey, email)
            return next(c)
        }
    }
}

func emailFromClaims(claims jwt.MapClaims) string {
    if v, ok := claims["email"].(string); ok && strings.TrimSpace(v) != "" {
        return strings.ToLower(strings.TrimSpace(v))
    }
    if v, ok := claims["sub"].(string); ok && strings.Contains(v, "@") {
        return strings.ToLower(strings.TrimSpace(v))
    }
    return ""
}
