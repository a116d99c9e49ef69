// Package middleware contains the Echo middleware shared by the MapIt
// routes: bearer-token authentication, role checks, the Redis token bucket,
// the Redis response cache and request logging.
package middleware

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/mapit/internal/utils"
)

// Context keys set by JWTAuth.
const (
    ctxSubjectID = "user_id"
    ctxRole      = "role"
)

func deny(c echo.Context, status int, msg string) error {
    return c.JSON(status, echo.Map{"success": false, "error": msg})
}

// JWTAuth validates the Bearer access token and stores its subject id
// (int64) and role in the context under "user_id" and "role".
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get(echo.HeaderAuthorization)
            if !strings.HasPrefix(auth, "Bearer ") {
                return deny(c, http.StatusUnauthorized, "missing bearer token")
            }
            claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
            if err != nil {
                return deny(c, http.StatusUnauthorized, "invalid token")
            }
            c.Set(ctxSubjectID, claims.SubjectID)
            c.Set(ctxRole, claims.Role)
            return next(c)
        }
    }
}

// RequireRole rejects requests whose token role is not one of roles. It
// must run after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, _ := c.Get(ctxRole).(string)
            if !allowed[role] {
                return deny(c, http.StatusForbidden, "forbidden")
            }
            return next(c)
        }
    }
}

// SubjectID returns the authenticated account id, if any.
func SubjectID(c echo.Context) (int64, bool) {
    id, ok := c.Get(ctxSubjectID).(int64)
    return id, ok
}
