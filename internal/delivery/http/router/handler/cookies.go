package handler

import (
	"net/http"
	"time"

	"warden/config"
	"warden/internal/delivery/http/middleware"
	"warden/internal/domain/entity"

	"github.com/labstack/echo/v4"
)

func setTokenCookies(c echo.Context, cfg config.CookieConfig, pair *entity.TokenPair) {
	c.SetCookie(tokenCookie(cfg, middleware.AccessTokenCookie, pair.AccessToken, cfg.AccessMaxAge))
	c.SetCookie(tokenCookie(cfg, middleware.RefreshTokenCookie, pair.RefreshToken, cfg.RefreshMaxAge))
}

func clearTokenCookies(c echo.Context, cfg config.CookieConfig) {
	for _, name := range []string{middleware.AccessTokenCookie, middleware.RefreshTokenCookie} {
		cookie := tokenCookie(cfg, name, "", 0)
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
		c.SetCookie(cookie)
	}
}

func tokenCookie(cfg config.CookieConfig, name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   int(maxAge.Seconds()),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
