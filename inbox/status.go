package inbox

import (
	"sort"
	"sync"

	"flipmail/models"
	"flipmail/utils"
)

// StatusPersister is the durable slot behind a StatusStore
type StatusPersister interface {
	Save(status models.EmailStatus) error
	Load() (*models.EmailStatus, bool)
}

const (
	ChangeRead     = "read"
	ChangeFavorite = "favorite"
)

// StatusChange is a single mutation of the status sets
type StatusChange struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Value bool   `json:"value"`
}

// StatusStore owns the read and favorite sets. Every mutation rewrites the
// persisted snapshot; write failures are logged and otherwise ignored.
type StatusStore struct {
	mu        sync.RWMutex
	read      map[string]struct{}
	favorites map[string]struct{}
	persister StatusPersister
	listeners []func(StatusChange)
}

// NewStatusStore loads the persisted snapshot, starting empty when there is
// none. A nil persister keeps status in memory only.
func NewStatusStore(persister StatusPersister) *StatusStore {
	s := &StatusStore{
		read:      make(map[string]struct{}),
		favorites: make(map[string]struct{}),
		persister: persister,
	}

	if persister == nil {
		return s
	}

	if snapshot, ok := persister.Load(); ok {
		for _, id := range snapshot.Read {
			s.read[id] = struct{}{}
		}
		for _, id := range snapshot.Favorites {
			s.favorites[id] = struct{}{}
		}
		utils.Log.Info("Loaded email status: %d read, %d favorites", len(s.read), len(s.favorites))
	}

	return s
}

// MarkRead adds id to the read set and reports whether it was newly added.
// Read status is never removed.
func (s *StatusStore) MarkRead(id string) bool {
	s.mu.Lock()
	if _, ok := s.read[id]; ok {
		s.mu.Unlock()
		return false
	}
	s.read[id] = struct{}{}
	utils.StatusMutations.WithLabelValues("read").Inc()
	s.persistLocked()
	s.mu.Unlock()

	s.notify(StatusChange{ID: id, Kind: ChangeRead, Value: true})
	return true
}

// ToggleFavorite flips id's favorite membership and returns the new state
func (s *StatusStore) ToggleFavorite(id string) bool {
	s.mu.Lock()
	_, favorite := s.favorites[id]
	if favorite {
		delete(s.favorites, id)
		utils.StatusMutations.WithLabelValues("unfavorite").Inc()
	} else {
		s.favorites[id] = struct{}{}
		utils.StatusMutations.WithLabelValues("favorite").Inc()
	}
	s.persistLocked()
	s.mu.Unlock()

	s.notify(StatusChange{ID: id, Kind: ChangeFavorite, Value: !favorite})
	return !favorite
}

// OnChange registers fn to run after every mutation, outside the store lock
func (s *StatusStore) OnChange(fn func(StatusChange)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *StatusStore) notify(change StatusChange) {
	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(change)
	}
}

func (s *StatusStore) IsRead(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.read[id]
	return ok
}

func (s *StatusStore) IsFavorite(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.favorites[id]
	return ok
}

// Counts returns the sizes of the read and favorite sets
func (s *StatusStore) Counts() (read, favorites int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.read), len(s.favorites)
}

// Snapshot returns the persisted form, ids sorted
func (s *StatusStore) Snapshot() models.EmailStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *StatusStore) snapshotLocked() models.EmailStatus {
	return models.EmailStatus{
		Read:      sortedKeys(s.read),
		Favorites: sortedKeys(s.favorites),
	}
}

// persistLocked runs under the write lock so saves land in mutation order
func (s *StatusStore) persistLocked() {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(s.snapshotLocked()); err != nil {
		utils.StatusPersistFailures.Inc()
		utils.Log.Error("Failed to persist email status: %v", err)
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
