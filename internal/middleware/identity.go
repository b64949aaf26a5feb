package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// ActorKey is the context key JWTAuth stores the caller's email under.
const ActorKey = "actor"

// Admins reports whether an email is on the admin allow-list.
// *config.Config satisfies it.
type Admins interface {
    IsAdmin(email string) bool
}

// Actor returns the authenticated email, or "" for anonymous requests.
func Actor(c echo.Context) string {
    if s, ok := c.Get(ActorKey).(string); ok {
        return s
    }
    return ""
}

// RequireAdmin rejects callers that are not on the allow-list.  It must run
// after JWTAuth.
func RequireAdmin(admins Admins) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !admins.IsAdmin(Actor(c)) {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "admin only"})
            }
            return next(c)
        }
    }
}

// rateSubject names the caller for rate limiting.
func rateSubject(c echo.Context) string {
    if a := Actor(c); a != "" {
        return a
    }
    return "anon"
}
