package api

import (
	"flipmail/inbox"
	"flipmail/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// EmailHandler serves the JSON API over a session's reader view
type EmailHandler struct {
	store *session.Store
	views *inbox.Registry
}

// NewEmailHandler creates a new JSON email handler
func NewEmailHandler(store *session.Store, views *inbox.Registry) *EmailHandler {
	return &EmailHandler{
		store: store,
		views: views,
	}
}

// ListEmails returns the current page, filtered, with the selection
func (h *EmailHandler) ListEmails(c *fiber.Ctx) error {
	view, err := SessionView(c, h.store, h.views)
	if err != nil {
		return err
	}

	if err := ApplyViewQuery(c, view); err != nil {
		return err
	}

	return c.JSON(view.Snapshot())
}

// EmailDetail is the JSON shape of a selected email
type EmailDetail struct {
	Email     inbox.EmailItem `json:"email"`
	Body      string          `json:"body"`
	BodyText  string          `json:"body_text"`
	BodyState inbox.BodyState `json:"body_state"`
}

// GetEmail selects an email on the current page and returns it with its body
func (h *EmailHandler) GetEmail(c *fiber.Ctx) error {
	view, err := SessionView(c, h.store, h.views)
	if err != nil {
		return err
	}
	if err := ViewError(view.Load(c.UserContext())); err != nil {
		return err
	}

	if err := ViewError(view.Select(c.UserContext(), c.Params("id"))); err != nil {
		return err
	}

	snap := view.Snapshot()
	if snap.Selected == nil {
		// the page changed while the body was loading
		return ViewError(inbox.ErrNoSelection)
	}

	return c.JSON(EmailDetail{
		Email:     *snap.Selected,
		Body:      string(snap.Body),
		BodyText:  snap.BodyText,
		BodyState: snap.BodyState,
	})
}

// ToggleFavorite flips the favorite flag of the selected email
func (h *EmailHandler) ToggleFavorite(c *fiber.Ctx) error {
	view, err := SessionView(c, h.store, h.views)
	if err != nil {
		return err
	}

	id, favorite, err := view.ToggleFavorite()
	if err != nil {
		return ViewError(err)
	}

	return c.JSON(fiber.Map{
		"id":       id,
		"favorite": favorite,
	})
}

// StatusResponse is the persisted status plus set sizes
type StatusResponse struct {
	models.EmailStatus
	ReadCount     int `json:"read_count"`
	FavoriteCount int `json:"favorite_count"`
}

// GetStatus returns the read and favorite sets
func (h *EmailHandler) GetStatus(c *fiber.Ctx) error {
	status := h.views.Status()
	read, favorites := status.Counts()

	return c.JSON(StatusResponse{
		EmailStatus:   status.Snapshot(),
		ReadCount:     read,
		FavoriteCount: favorites,
	})
}
