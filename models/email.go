package models

import (
	"strings"
	"time"
)

// Sender identifies who an email is from
type Sender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Email is a message as listed by the remote mock API. Body is only
// populated once it has been fetched on demand.
type Email struct {
	ID               string `json:"id"`
	From             Sender `json:"from"`
	Date             int64  `json:"date"` // epoch milliseconds
	Subject          string `json:"subject"`
	ShortDescription string `json:"short_description"`
	Body             string `json:"body,omitempty"`
}

// Time converts Date to a time.Time
func (e Email) Time() time.Time {
	return time.UnixMilli(e.Date)
}

// Initial returns the uppercased first letter of the sender name, used for avatars
func (e Email) Initial() string {
	name := strings.TrimSpace(e.From.Name)
	if name == "" {
		name = strings.TrimSpace(e.From.Email)
	}
	for _, r := range name {
		return strings.ToUpper(string(r))
	}
	return "?"
}
