package inbox

import (
	"time"

	"flipmail/utils"
)

// Registry hands out one View per browser session. Views idle for longer
// than the ttl are dropped and start over on page 1.
type Registry struct {
	views   *utils.MemoryCache[*View]
	gateway Gateway
	status  *StatusStore
	pages   int
}

func NewRegistry(gateway Gateway, status *StatusStore, pages int, ttl time.Duration) *Registry {
	return &Registry{
		views:   utils.NewMemoryCache[*View](ttl),
		gateway: gateway,
		status:  status,
		pages:   pages,
	}
}

// View returns the view for a session key, creating it on first use
func (r *Registry) View(key string) *View {
	return r.views.GetOrCreate(key, func() *View {
		return NewView(r.gateway, r.status, r.pages)
	})
}

// Status exposes the shared status store
func (r *Registry) Status() *StatusStore {
	return r.status
}

// Forget drops a session's view
func (r *Registry) Forget(key string) {
	r.views.Delete(key)
}

func (r *Registry) Close() {
	r.views.Close()
}
