// handlers/web/email.go
package web

import (
	"flipmail/handlers/api"
	"flipmail/inbox"
	"flipmail/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// statusChangedEvent makes the htmx list refresh after read/favorite changes
const statusChangedEvent = "statusChanged"

type EmailHandler struct {
	store *session.Store
	views *inbox.Registry
}

func NewEmailHandler(store *session.Store, views *inbox.Registry) *EmailHandler {
	return &EmailHandler{
		store: store,
		views: views,
	}
}

// HandleInbox renders the full reader page. The page, filter and select
// query parameters are applied first, so the page works without scripts.
func (h *EmailHandler) HandleInbox(c *fiber.Ctx) error {
	view, err := api.SessionView(c, h.store, h.views)
	if err != nil {
		return err
	}

	if err := api.ApplyViewQuery(c, view); err != nil {
		return err
	}

	if id := c.Query("select"); id != "" {
		if err := api.ViewError(view.Select(c.UserContext(), id)); err != nil {
			return err
		}
	}

	return c.Render("inbox", h.viewData(c, view.Snapshot()))
}

// HandleEmailList renders the list partial
func (h *EmailHandler) HandleEmailList(c *fiber.Ctx) error {
	view, err := api.SessionView(c, h.store, h.views)
	if err != nil {
		return err
	}

	if err := api.ApplyViewQuery(c, view); err != nil {
		return err
	}

	return c.Render("partials/email-list", h.viewData(c, view.Snapshot()), "")
}

// HandleEmailView selects an email and renders the detail pane, or the
// whole page for non-htmx requests
func (h *EmailHandler) HandleEmailView(c *fiber.Ctx) error {
	view, err := api.SessionView(c, h.store, h.views)
	if err != nil {
		return err
	}
	if err := api.ViewError(view.Load(c.UserContext())); err != nil {
		return err
	}

	if err := api.ViewError(view.Select(c.UserContext(), c.Params("id"))); err != nil {
		return err
	}

	return h.renderViewer(c, view)
}

// HandleViewer renders the detail pane as it currently is
func (h *EmailHandler) HandleViewer(c *fiber.Ctx) error {
	view, err := api.SessionView(c, h.store, h.views)
	if err != nil {
		return err
	}

	return c.Render("partials/email-viewer", h.viewData(c, view.Snapshot()), "")
}

// HandleToggleFavorite toggles the selected email's favorite flag
func (h *EmailHandler) HandleToggleFavorite(c *fiber.Ctx) error {
	view, err := api.SessionView(c, h.store, h.views)
	if err != nil {
		return err
	}

	id, favorite, err := view.ToggleFavorite()
	if err != nil {
		return api.ViewError(err)
	}
	utils.Log.Debug("Email %s favorite=%t", id, favorite)

	if !isHTMX(c) {
		return c.Redirect("/", fiber.StatusSeeOther)
	}
	return h.renderViewer(c, view)
}

func (h *EmailHandler) renderViewer(c *fiber.Ctx, view *inbox.View) error {
	data := h.viewData(c, view.Snapshot())

	if isHTMX(c) {
		c.Set("HX-Trigger", statusChangedEvent)
		return c.Render("partials/email-viewer", data, "")
	}
	return c.Render("inbox", data)
}

func (h *EmailHandler) viewData(c *fiber.Ctx, snap inbox.Snapshot) fiber.Map {
	return fiber.Map{
		"View":      snap,
		"Filters":   inbox.Filters,
		"Localizer": c.Locals("localizer"),
		"Lang":      c.Locals("lang"),
		"CSRFToken": c.Locals("csrf"),
	}
}

func isHTMX(c *fiber.Ctx) bool {
	return c.Get("HX-Request") == "true"
}
