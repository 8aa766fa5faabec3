// Package middleware contains the echo middleware specific to the HTTP API.
package middleware

import (
	"strings"

	deliverycontext "warden/internal/delivery/context"
	"warden/internal/domain/policy"
	"warden/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const (
	// AccessTokenCookie carries the access token for cookie-capable clients.
	AccessTokenCookie = "access_token"
	// RefreshTokenCookie carries the refresh token for cookie-capable clients.
	RefreshTokenCookie = "refresh_token"

	bearerPrefix = "Bearer "
)

// AuthMiddlewareParams holds dependencies for AuthMiddleware, injected by Fx.
type AuthMiddlewareParams struct {
	fx.In

	Guard usecase.GuardUsecase
}

// AuthMiddleware authenticates requests and enforces the policy table.
type AuthMiddleware struct {
	guard usecase.GuardUsecase
}

func NewAuthMiddleware(params AuthMiddlewareParams) *AuthMiddleware {
	return &AuthMiddleware{guard: params.Guard}
}

// Authenticate verifies the access token and attaches the resulting AuthContext.
// The access_token cookie wins over the Authorization header.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ac, err := m.guard.Authenticate(c.Request().Context(), ExtractAccessToken(c))
		if err != nil {
			return err
		}
		deliverycontext.SetAuthContext(c, ac)

		return next(c)
	}
}

// RequireOperation rejects the request unless the authenticated role may perform op.
// It must be used after Authenticate.
func (m *AuthMiddleware) RequireOperation(op policy.Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac, _ := deliverycontext.GetAuthContext(c)
			if err := m.guard.Authorize(ac, op); err != nil {
				return err
			}

			return next(c)
		}
	}
}

// ExtractAccessToken returns the access token presented by the client, or "".
func ExtractAccessToken(c echo.Context) string {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) > len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}

	return ""
}
