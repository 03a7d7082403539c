package api

import (
	"errors"
	"strconv"
	"time"

	"flipmail/inbox"
	"flipmail/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// SessionView returns the reader view bound to the caller's session,
// starting a session when the request carries none.
func SessionView(c *fiber.Ctx, store *session.Store, views *inbox.Registry) (*inbox.View, error) {
	sess, err := store.Get(c)
	if err != nil {
		return nil, utils.InternalServerError("error_500", err)
	}

	id := sess.ID()
	if sess.Fresh() {
		sess.Set("started", time.Now().Unix())
		// Save releases the session, so the id is read first
		if err := sess.Save(); err != nil {
			return nil, utils.InternalServerError("error_500", err)
		}
	}

	return views.View(id), nil
}

// ApplyViewQuery loads the view and applies the page and filter query parameters.
// Gateway failures are not returned; they show up in the view snapshot.
func ApplyViewQuery(c *fiber.Ctx, view *inbox.View) error {
	ctx := c.UserContext()

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return utils.BadRequestError("error_bad_page", err).WithContext("page", raw)
		}
		if err := ViewError(view.ChangePage(ctx, page)); err != nil {
			return err
		}
	} else if err := ViewError(view.Load(ctx)); err != nil {
		return err
	}

	if raw := c.Query("filter"); raw != "" {
		filter, err := inbox.ParseFilter(raw)
		if err != nil {
			return utils.BadRequestError("error_bad_filter", err).WithContext("filter", raw)
		}
		view.SetFilter(filter)
	}

	return nil
}

// ViewError maps view errors to HTTP errors. Gateway failures map to nil:
// the page still renders, with an empty list or body.
func ViewError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, inbox.ErrInvalidPage):
		return utils.BadRequestError("error_bad_page", err)
	case errors.Is(err, inbox.ErrInvalidFilter):
		return utils.BadRequestError("error_bad_filter", err)
	case errors.Is(err, inbox.ErrUnknownEmail):
		return utils.NotFoundError("error_unknown_email", err)
	case errors.Is(err, inbox.ErrNoSelection):
		return utils.ConflictError("error_no_selection", err)
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return nil
	}
	return utils.InternalServerError("error_500", err)
}
