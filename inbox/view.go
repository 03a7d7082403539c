package inbox

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"sync"

	"flipmail/models"
	"flipmail/utils"
)

var (
	ErrInvalidPage  = errors.New("invalid page")
	ErrUnknownEmail = errors.New("email is not on the current page")
	ErrNoSelection  = errors.New("no email selected")
)

// Gateway is the remote source of email lists and bodies
type Gateway interface {
	ListEmails(ctx context.Context, page int) ([]models.Email, error)
	GetEmailBody(ctx context.Context, id string) (string, error)
}

// BodyState tracks the detail pane's body
type BodyState string

const (
	BodyIdle    BodyState = "idle"
	BodyLoading BodyState = "loading"
	BodyReady   BodyState = "ready"
	BodyFailed  BodyState = "failed"
)

// View is one reader's list and detail state: the current page of emails,
// the active filter and the selected email with its body.
//
// Gateway calls run without holding the lock. Each list or body request takes
// a ticket; a response whose ticket is no longer current is dropped, so a slow
// body for a previous selection never replaces the current one.
type View struct {
	mu      sync.Mutex
	gateway Gateway
	status  *StatusStore
	pages   int

	page          int
	filter        Filter
	emails        []models.Email
	loaded        bool
	listErr       error
	listTicket    uint64
	appliedTicket uint64 // differs from listTicket while a list fetch is pending

	selected   *models.Email
	body       template.HTML
	bodyText   string
	bodyState  BodyState
	bodyTicket uint64
}

// NewView creates a view on page 1 with no filter. pages bounds ChangePage.
func NewView(gateway Gateway, status *StatusStore, pages int) *View {
	if pages < 1 {
		pages = 1
	}
	return &View{
		gateway:   gateway,
		status:    status,
		pages:     pages,
		page:      1,
		filter:    FilterAll,
		bodyState: BodyIdle,
	}
}

// Load fetches the current page if no list has been loaded yet
func (v *View) Load(ctx context.Context) error {
	v.mu.Lock()
	loaded, page := v.loaded, v.page
	v.mu.Unlock()

	if loaded {
		return nil
	}
	return v.fetchPage(ctx, page)
}

// ChangePage loads page, replacing the list. Moving to a different page
// clears the selection. On failure the previous list and page stay in place
// and the error is reported in the snapshot. Only the most recent request
// applies: asking for the page already shown cancels a pending fetch.
func (v *View) ChangePage(ctx context.Context, page int) error {
	if page < 1 || page > v.pages {
		return fmt.Errorf("%w: %d", ErrInvalidPage, page)
	}

	v.mu.Lock()
	if v.loaded && v.page == page {
		if v.listTicket != v.appliedTicket {
			// the pending fetch was for another page and no longer applies
			v.listTicket++
			v.appliedTicket = v.listTicket
		}
		v.mu.Unlock()
		return nil
	}
	v.mu.Unlock()

	return v.fetchPage(ctx, page)
}

func (v *View) fetchPage(ctx context.Context, page int) error {
	v.mu.Lock()
	v.listTicket++
	ticket := v.listTicket
	v.mu.Unlock()

	emails, err := v.gateway.ListEmails(ctx, page)

	v.mu.Lock()
	defer v.mu.Unlock()

	if ticket != v.listTicket {
		utils.StaleResponses.WithLabelValues("list").Inc()
		utils.Log.Debug("Dropping stale list response for page %d", page)
		return nil
	}

	v.appliedTicket = ticket
	if err != nil {
		v.listErr = err
		utils.Log.WithField("page", page).Error("Failed to fetch emails: %v", err)
		return err
	}

	if v.page != page {
		v.clearSelectionLocked()
	}
	v.page = page
	v.emails = emails
	v.loaded = true
	v.listErr = nil
	return nil
}

// SetFilter changes which emails the snapshot lists
func (v *View) SetFilter(filter Filter) {
	v.mu.Lock()
	v.filter = filter
	v.mu.Unlock()
}

// Select makes id the selected email, marks it read and fetches its body.
// Selecting the already selected email fetches the body again.
func (v *View) Select(ctx context.Context, id string) error {
	v.mu.Lock()
	email, ok := v.findLocked(id)
	if !ok {
		v.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownEmail, id)
	}

	v.selected = &email
	v.body = ""
	v.bodyText = ""
	v.bodyState = BodyLoading
	v.bodyTicket++
	ticket := v.bodyTicket
	// request strings may alias reused buffers; the list copy owns its id
	id = email.ID
	v.status.MarkRead(id)
	v.mu.Unlock()

	body, err := v.gateway.GetEmailBody(ctx, id)

	v.mu.Lock()
	defer v.mu.Unlock()

	if ticket != v.bodyTicket {
		utils.StaleResponses.WithLabelValues("body").Inc()
		utils.Log.Debug("Dropping stale body for %s", id)
		return nil
	}

	if err != nil {
		v.bodyState = BodyFailed
		utils.Log.WithField("id", id).Error("Failed to fetch email body: %v", err)
		return err
	}

	v.body = utils.SanitizeBody(body)
	v.bodyText = utils.HTMLToText(body)
	v.bodyState = BodyReady
	return nil
}

// ToggleFavorite flips the favorite flag of the selected email
func (v *View) ToggleFavorite() (id string, favorite bool, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.selected == nil {
		return "", false, ErrNoSelection
	}
	id = v.selected.ID
	return id, v.status.ToggleFavorite(id), nil
}

func (v *View) findLocked(id string) (models.Email, bool) {
	for _, e := range v.emails {
		if e.ID == id {
			return e, true
		}
	}
	return models.Email{}, false
}

func (v *View) clearSelectionLocked() {
	v.selected = nil
	v.body = ""
	v.bodyText = ""
	v.bodyState = BodyIdle
	// any body request still in flight belongs to the old selection
	v.bodyTicket++
}

// EmailItem is an email decorated with its status for rendering
type EmailItem struct {
	models.Email
	Read     bool `json:"read"`
	Favorite bool `json:"favorite"`
	Selected bool `json:"selected"`
}

// Snapshot is a consistent copy of a View for rendering
type Snapshot struct {
	Pagination    models.Pagination `json:"pagination"`
	Filter        Filter            `json:"filter"`
	Loaded        bool              `json:"loaded"`
	ListError     string            `json:"list_error,omitempty"`
	Emails        []EmailItem       `json:"emails"`
	Total         int               `json:"total"`
	Selected      *EmailItem        `json:"selected,omitempty"`
	Body          template.HTML     `json:"body,omitempty"`
	BodyText      string            `json:"body_text,omitempty"`
	BodyState     BodyState         `json:"body_state"`
	ReadCount     int               `json:"read_count"`
	FavoriteCount int               `json:"favorite_count"`
}

// Snapshot returns the filtered list and the detail pane as they are now
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	selectedID := ""
	if v.selected != nil {
		selectedID = v.selected.ID
	}

	visible := FilterEmails(v.emails, v.filter, v.status)
	items := make([]EmailItem, 0, len(visible))
	for _, e := range visible {
		items = append(items, v.itemLocked(e, selectedID))
	}

	snap := Snapshot{
		Pagination: models.NewPagination(v.page, v.pages),
		Filter:     v.filter,
		Loaded:     v.loaded,
		Emails:     items,
		Total:      len(v.emails),
		Body:       v.body,
		BodyText:   v.bodyText,
		BodyState:  v.bodyState,
	}
	if v.listErr != nil {
		snap.ListError = v.listErr.Error()
	}
	if v.selected != nil {
		item := v.itemLocked(*v.selected, selectedID)
		snap.Selected = &item
	}
	snap.ReadCount, snap.FavoriteCount = v.status.Counts()

	return snap
}

func (v *View) itemLocked(e models.Email, selectedID string) EmailItem {
	return EmailItem{
		Email:    e,
		Read:     v.status.IsRead(e.ID),
		Favorite: v.status.IsFavorite(e.ID),
		Selected: e.ID == selectedID,
	}
}
