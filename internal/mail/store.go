package mail

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultStaleTTL is used when a Store is built without a TTL.
const DefaultStaleTTL = 3 * time.Minute

// Store owns the folder -> context map and the active folder.
// All writes replace whole contexts; readers always receive copies.
type Store struct {
	mu       sync.RWMutex
	contexts map[FolderID]FolderContext
	active   FolderID

	ttl   time.Duration
	clock func() time.Time

	// gen hands out context epochs. It outlives Clear so a dropped
	// context's epoch is never handed out again.
	gen atomic.Uint64
}

// State is a point-in-time copy of the store.
type State struct {
	Contexts map[FolderID]FolderContext
	Active   FolderID
}

// InSearchMode reports whether the active folder is a search variant.
func (s State) InSearchMode() bool {
	return s.Active.IsSearch()
}

// NewStore creates an empty store with Inbox active.
func NewStore(ttl time.Duration, clock func() time.Time) *Store {
	if ttl <= 0 {
		ttl = DefaultStaleTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		contexts: make(map[FolderID]FolderContext),
		active:   Inbox,
		ttl:      ttl,
		clock:    clock,
	}
}

// Get returns a copy of the folder's context, if it was ever loaded.
func (s *Store) Get(folder FolderID) (FolderContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contexts[folder]
	if !ok {
		return FolderContext{}, false
	}
	return c.Clone(), true
}

// Update replaces the folder's context. UnreadCount is always recomputed
// from the items so callers cannot make them disagree.
func (s *Store) Update(folder FolderID, c FolderContext) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(folder, c)
}

func (s *Store) put(folder FolderID, c FolderContext) {
	c = c.Clone()
	c.UnreadCount = countUnread(c.Items)
	if c.Page < 1 {
		c.Page = 1
	}
	s.contexts[folder] = c
}

// Modify atomically reads the folder's context and lets fn decide on a
// replacement. fn receives a copy and whether the context existed; when it
// returns false nothing is written. Modify returns the committed context.
func (s *Store) Modify(folder FolderID, fn func(c FolderContext, ok bool) (FolderContext, bool)) (FolderContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.contexts[folder]
	if ok {
		cur = cur.Clone()
	}
	next, write := fn(cur, ok)
	if !write {
		return cur, false
	}
	s.put(folder, next)
	return s.contexts[folder].Clone(), true
}

// Apply runs a multi-folder transaction: fn is called for every cached
// context and returns a replacement when the folder is affected. All
// replacements are committed together under a single lock.
// It returns the folders that changed.
func (s *Store) Apply(fn func(folder FolderID, c FolderContext) (FolderContext, bool)) []FolderID {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make(map[FolderID]FolderContext)
	for folder, c := range s.contexts {
		if next, changed := fn(folder, c.Clone()); changed {
			pending[folder] = next
		}
	}
	changed := make([]FolderID, 0, len(pending))
	for folder, c := range pending {
		s.put(folder, c)
		changed = append(changed, folder)
	}
	return changed
}

// Clear drops the named contexts, or every context when none are named.
func (s *Store) Clear(folders ...FolderID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(folders) == 0 {
		s.contexts = make(map[FolderID]FolderContext)
		return
	}
	for _, f := range folders {
		delete(s.contexts, f)
	}
}

// IsStale reports whether the folder must be refetched: it was never loaded,
// never completed a load, or its last update is older than the TTL.
func (s *Store) IsStale(folder FolderID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contexts[folder]
	if !ok || c.UpdatedAt.IsZero() {
		return true
	}
	return s.clock().Sub(c.UpdatedAt) > s.ttl
}

// Active returns the active folder.
func (s *Store) Active() FolderID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetActive switches the active folder.
func (s *Store) SetActive(folder FolderID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = folder
}

// InSearchMode reports whether the active folder is a search variant.
func (s *Store) InSearchMode() bool {
	return s.Active().IsSearch()
}

// activate switches the active folder and installs c as a new generation
// of the folder's context in one step. It returns the new epoch.
func (s *Store) activate(folder FolderID, c FolderContext) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.epoch = s.nextEpoch()
	s.active = folder
	s.put(folder, c)
	return c.epoch
}

// nextEpoch returns a store-wide unique epoch for a replaced context.
func (s *Store) nextEpoch() uint64 {
	return s.gen.Add(1)
}

// Snapshot returns a deep copy of the whole state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := State{
		Contexts: make(map[FolderID]FolderContext, len(s.contexts)),
		Active:   s.active,
	}
	for f, c := range s.contexts {
		out.Contexts[f] = c.Clone()
	}
	return out
}

func (s *Store) now() time.Time {
	return s.clock()
}
