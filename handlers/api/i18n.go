package api

import (
	"flipmail/utils"

	"github.com/gofiber/fiber/v2"
)

// clientMessages are the strings the browser needs for htmx swaps and errors
var clientMessages = []string{
	"email_loading",
	"email_no_messages",
	"email_body_unavailable",
	"email_favorited",
	"email_mark_favorite",
	"error_network",
	"error_csrf",
	"error_rate_limited",
	"error_404",
	"error_500",
}

// I18nHandler handles i18n-related requests
type I18nHandler struct{}

// GetTranslations returns translations for client-side scripts
func (h *I18nHandler) GetTranslations(c *fiber.Ctx) error {
	lang := utils.MatchLanguage(c.Params("lang"))
	localizer := utils.GetLocalizer(lang)

	translations := make(map[string]string, len(clientMessages))
	for _, id := range clientMessages {
		translations[id] = utils.T(localizer, id)
	}

	return c.JSON(fiber.Map{
		"lang":     lang,
		"messages": translations,
	})
}
