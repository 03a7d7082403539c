package middleware

import (
	"flipmail/utils"

	"github.com/gofiber/fiber/v2"
)

// LocaleMiddleware detects and sets the user's locale
func LocaleMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// query parameter, then cookie, then Accept-Language
		lang := c.Query("lang")
		if lang == "" {
			lang = c.Cookies("lang")
		}
		if lang == "" {
			lang = c.Get(fiber.HeaderAcceptLanguage)
		}
		lang = utils.MatchLanguage(lang)

		if c.Query("lang") != "" {
			c.Cookie(&fiber.Cookie{
				Name:     "lang",
				Value:    lang,
				MaxAge:   365 * 24 * 3600,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}

		c.Locals("localizer", utils.GetLocalizer(lang))
		c.Locals("lang", lang)

		return c.Next()
	}
}
