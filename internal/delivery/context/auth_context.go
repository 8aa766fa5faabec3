package context

import (
	"context"

	"warden/internal/domain/entity"

	"github.com/labstack/echo/v4"
)

// KeyAuthContext is the key for the verified identity of the request.
const KeyAuthContext ContextKey = "auth_context"

// SetAuthContext attaches the verified identity to both the echo context and the request context.
// The value is copied, so later handlers cannot alter what earlier middleware established.
func SetAuthContext(c echo.Context, ac entity.AuthContext) {
	c.Set(string(KeyAuthContext), ac)
	c.SetRequest(c.Request().WithContext(WithAuthContext(c.Request().Context(), ac)))
}

// GetAuthContext returns the identity set by the auth middleware.
func GetAuthContext(c echo.Context) (entity.AuthContext, bool) {
	ac, ok := c.Get(string(KeyAuthContext)).(entity.AuthContext)
	if !ok || ac.IsZero() {
		return entity.AuthContext{}, false
	}

	return ac, true
}

func WithAuthContext(ctx context.Context, ac entity.AuthContext) context.Context {
	return context.WithValue(ctx, KeyAuthContext, ac)
}

// AuthContextFromContext returns the identity carried by a request context.
func AuthContextFromContext(ctx context.Context) (entity.AuthContext, bool) {
	ac, ok := ctx.Value(KeyAuthContext).(entity.AuthContext)
	if !ok || ac.IsZero() {
		return entity.AuthContext{}, false
	}

	return ac, true
}
