package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"

	"flipmail/utils"

	"github.com/gofiber/fiber/v2"
)

// CSRFConfig holds CSRF protection configuration
type CSRFConfig struct {
	TokenLength  int
	CookieName   string
	HeaderName   string
	FormField    string
	ContextKey   string
	CookieMaxAge int
	Skipper      func(*fiber.Ctx) bool
}

// DefaultCSRFConfig returns default CSRF configuration
func DefaultCSRFConfig() CSRFConfig {
	return CSRFConfig{
		TokenLength:  32,
		CookieName:   "csrf_token",
		HeaderName:   "X-CSRF-Token",
		FormField:    "_csrf",
		ContextKey:   "csrf",
		CookieMaxAge: 24 * 3600,
		Skipper:      nil,
	}
}

// CSRFProtection implements a double-submit cookie. Safe requests get a token
// cookie (and the token in Locals for templates); unsafe requests must echo
// the cookie in the header or the form field.
func CSRFProtection(config ...CSRFConfig) fiber.Handler {
	cfg := DefaultCSRFConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	return func(c *fiber.Ctx) error {
		if cfg.Skipper != nil && cfg.Skipper(c) {
			return c.Next()
		}

		cookieToken := c.Cookies(cfg.CookieName)

		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			if cookieToken == "" {
				GenerateCSRFToken(c, cfg)
			} else {
				c.Locals(cfg.ContextKey, cookieToken)
			}
			return c.Next()
		}

		requestToken := c.Get(cfg.HeaderName)
		if requestToken == "" {
			requestToken = c.FormValue(cfg.FormField)
		}

		if cookieToken == "" || requestToken == "" {
			return utils.ForbiddenError("error_csrf", nil).WithContext("reason", "missing")
		}
		if !tokensEqual(cookieToken, requestToken) {
			return utils.ForbiddenError("error_csrf", nil).WithContext("reason", "mismatch")
		}

		c.Locals(cfg.ContextKey, cookieToken)
		return c.Next()
	}
}

// GenerateCSRFToken generates a new CSRF token and sets it in a cookie
func GenerateCSRFToken(c *fiber.Ctx, config ...CSRFConfig) string {
	cfg := DefaultCSRFConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	token := generateToken(cfg.TokenLength)

	c.Cookie(&fiber.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		MaxAge:   cfg.CookieMaxAge,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})

	c.Locals(cfg.ContextKey, token)

	return token
}

func generateToken(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(b)
}

// tokensEqual performs constant-time comparison of tokens
func tokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
