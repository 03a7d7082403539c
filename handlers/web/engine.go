package web

import (
	"time"

	"flipmail/inbox"
	"flipmail/utils"

	"github.com/gofiber/template/html/v2"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// dateLayout renders dates as dd/MM/yyyy hh:mm AM
const dateLayout = "02/01/2006 03:04 PM"

// NewEngine creates the template engine with the reader's helper functions
func NewEngine(dir string, reload bool) *html.Engine {
	engine := html.New(dir, ".html")

	engine.AddFunc("t", func(localizer *i18n.Localizer, messageID string) string {
		return utils.T(localizer, messageID)
	})

	engine.AddFunc("tPage", func(localizer *i18n.Localizer, page int) string {
		return utils.TWithData(localizer, "page_label", map[string]interface{}{"Page": page})
	})

	engine.AddFunc("filterKey", func(f inbox.Filter) string {
		return "filter_" + string(f)
	})

	engine.AddFunc("formatDate", FormatDate)

	engine.Reload(reload)
	return engine
}

// FormatDate formats an epoch-millisecond timestamp in local time
func FormatDate(ms int64) string {
	return time.UnixMilli(ms).Format(dateLayout)
}
