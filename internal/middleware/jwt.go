package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/tour-backoffice/internal/utils"
)

// Context keys set by JWTAuth.
const (
    CtxStaffID = "staff_id"
    CtxRole    = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the staff id (uint64) and role into the request context.  The
// provided secret must match the one used when issuing tokens.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            // ParseAccessToken already checked the subject parses.
            id, _ := claims.StaffID()

            c.Set(CtxStaffID, id)
            c.Set(CtxRole, claims.Role)
            return next(c)
        }
    }
}

// StaffID returns the authenticated staff id, if any.
func StaffID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(CtxStaffID).(uint64)
    return id, ok
}
