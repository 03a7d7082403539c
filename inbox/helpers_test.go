package inbox

import (
	"context"
	"errors"
	"sync"

	"flipmail/models"
)

type memoryPersister struct {
	mu      sync.Mutex
	saved   []models.EmailStatus
	initial *models.EmailStatus
	saveErr error
}

func (p *memoryPersister) Save(status models.EmailStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, status)
	return p.saveErr
}

func (p *memoryPersister) Load() (*models.EmailStatus, bool) {
	if p.initial == nil {
		return nil, false
	}
	return p.initial, true
}

func (p *memoryPersister) last() models.EmailStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saved[len(p.saved)-1]
}

func (p *memoryPersister) saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.saved)
}

var errGateway = errors.New("connection refused")

// fakeGateway serves fixed pages. A body id listed in hold, or a page listed
// in holdPages, blocks until released through its channel.
type fakeGateway struct {
	mu        sync.Mutex
	pages     map[int][]models.Email
	bodies    map[string]string
	listErr   error
	bodyErr   error
	hold      map[string]chan struct{}
	holdPages map[int]chan struct{}
	listCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		pages: map[int][]models.Email{
			1: {email("a"), email("b")},
			2: {email("c"), email("d"), email("e")},
		},
		bodies: map[string]string{
			"a": "<p>Body A</p>",
			"b": "<p>Body B</p><script>alert(1)</script>",
			"c": "<p>Body C</p>",
		},
		hold:      make(map[string]chan struct{}),
		holdPages: make(map[int]chan struct{}),
	}
}

func email(id string) models.Email {
	return models.Email{
		ID:               id,
		From:             models.Sender{Email: id + "@example.com", Name: "sender " + id},
		Date:             1582729505000,
		Subject:          "Subject " + id,
		ShortDescription: "Short " + id,
	}
}

func (g *fakeGateway) holdBody(id string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := make(chan struct{})
	g.hold[id] = ch
	return ch
}

func (g *fakeGateway) holdPage(page int) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := make(chan struct{})
	g.holdPages[page] = ch
	return ch
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.listCalls
}

func (g *fakeGateway) ListEmails(ctx context.Context, page int) ([]models.Email, error) {
	g.mu.Lock()
	g.listCalls++
	ch := g.holdPages[page]
	emails, err := g.pages[page], g.listErr
	g.mu.Unlock()

	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return emails, nil
}

func (g *fakeGateway) GetEmailBody(ctx context.Context, id string) (string, error) {
	g.mu.Lock()
	ch := g.hold[id]
	body, err := g.bodies[id], g.bodyErr
	g.mu.Unlock()

	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return body, err
}

func ids(items []EmailItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
