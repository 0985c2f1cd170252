package api

import (
	echo "github.com/labstack/echo/v5"
)

// securityHeaders returns middleware that sets standard security response
// headers.
func securityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			return next(c)
		}
	}
}

// extractOrgID resolves the calling organisation from oauth2-proxy-style
// forwarded-auth headers. Authentication/authorisation is explicitly out of
// scope (spec §6: "external collaborator"); this mirrors the header
// convention of a reverse proxy sitting in front of the service and falls
// back to a fixed identity for callers that bypass one entirely (local
// development, direct-to-service integration tests).
func extractOrgID(c *echo.Context) string {
	if org := c.Request().Header.Get("X-Organization-ID"); org != "" {
		return org
	}
	if org := c.Request().Header.Get("X-Forwarded-Organization"); org != "" {
		return org
	}
	return "default-org"
}

// extractActor resolves the calling identity for audit trails, same
// fallback chain as extractOrgID.
func extractActor(c *echo.Context) string {
	if user := c.Request().Header.Get("X-Forwarded-User"); user != "" {
		return user
	}
	if email := c.Request().Header.Get("X-Forwarded-Email"); email != "" {
		return email
	}
	return "api-client"
}
