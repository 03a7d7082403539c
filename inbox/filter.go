package inbox

import (
	"errors"
	"fmt"

	"flipmail/models"
)

// Filter selects which of the loaded emails are displayed
type Filter string

const (
	FilterAll       Filter = "all"
	FilterUnread    Filter = "unread"
	FilterRead      Filter = "read"
	FilterFavorites Filter = "favorites"
)

// Filters lists every filter in display order
var Filters = []Filter{FilterAll, FilterUnread, FilterRead, FilterFavorites}

// ErrInvalidFilter is returned by ParseFilter for unknown names
var ErrInvalidFilter = errors.New("invalid filter")

// ParseFilter maps a query value to a Filter; empty means all
func ParseFilter(s string) (Filter, error) {
	if s == "" {
		return FilterAll, nil
	}
	for _, f := range Filters {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFilter, s)
}

// StatusReader answers membership questions for filtering
type StatusReader interface {
	IsRead(id string) bool
	IsFavorite(id string) bool
}

// FilterEmails returns the emails matching filter, keeping their order
func FilterEmails(emails []models.Email, filter Filter, status StatusReader) []models.Email {
	if filter == FilterAll || filter == "" {
		return emails
	}

	out := make([]models.Email, 0, len(emails))
	for _, e := range emails {
		var keep bool
		switch filter {
		case FilterUnread:
			keep = !status.IsRead(e.ID)
		case FilterRead:
			keep = status.IsRead(e.ID)
		case FilterFavorites:
			keep = status.IsFavorite(e.ID)
		}
		if keep {
			out = append(out, e)
		}
	}
	return out
}
