package mail

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Options configures a Mailbox.
type Options struct {
	PageSize int
	StaleTTL time.Duration
	Clock    func() time.Time
	Log      *zerolog.Logger
}

// FolderView is what a caller renders for one folder.
type FolderView struct {
	Folder      FolderID `json:"folder" yaml:"folder"`
	Items       []Item   `json:"items" yaml:"items"`
	Page        int      `json:"page" yaml:"page"`
	HasMore     bool     `json:"hasMore" yaml:"hasMore"`
	HasPrevious bool     `json:"hasPrevious" yaml:"hasPrevious"`
	UnreadCount int      `json:"unreadCount" yaml:"unreadCount"`
	Loading     bool     `json:"loading" yaml:"loading"`
	LoadingMore bool     `json:"loadingMore" yaml:"loadingMore"`
	Query       string   `json:"query,omitempty" yaml:"query,omitempty"`
	Filter      string   `json:"filter" yaml:"filter"`
	Error       string   `json:"error,omitempty" yaml:"error,omitempty"`
	Stale       bool     `json:"stale" yaml:"stale"`
	Loaded      bool     `json:"loaded" yaml:"loaded"`
}

// Mailbox ties the folder store to a gateway and exposes folder navigation,
// search and mutations as one unit.
type Mailbox struct {
	gw      Gateway
	store   *Store
	exec    *Executor
	pager   *Pager
	actions *Coordinator
	search  *SearchSwitch
	log     *zerolog.Logger

	loads singleflight.Group
}

// New creates a Mailbox over gw.
func New(gw Gateway, opts Options) *Mailbox {
	log := opts.Log
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	store := NewStore(opts.StaleTTL, opts.Clock)
	exec := NewExecutor(gw)
	pager := NewPager(store, gw, opts.PageSize, log)
	return &Mailbox{
		gw:      gw,
		store:   store,
		exec:    exec,
		pager:   pager,
		actions: NewCoordinator(store, exec, log),
		search:  NewSearchSwitch(store, gw, pager.PageSize(), log),
		log:     log,
	}
}

func (m *Mailbox) Store() *Store { return m.store }
func (m *Mailbox) Pager() *Pager { return m.pager }
func (m *Mailbox) Actions() *Coordinator { return m.actions }
func (m *Mailbox) Searcher() *SearchSwitch { return m.search }
func (m *Mailbox) Executor() *Executor { return m.exec }
func (m *Mailbox) Active() FolderID { return m.store.Active() }

// Open makes folder active and loads it when it is stale. Opening a search
// variant that was never searched only switches to it.
func (m *Mailbox) Open(ctx context.Context, folder FolderID) error {
	if !folder.Valid() {
		return NewValidation("open", "unknown folder %q", folder)
	}
	m.store.SetActive(folder)
	if folder.IsSearch() {
		if _, ok := m.store.Get(folder); !ok {
			return nil
		}
	}
	if !m.store.IsStale(folder) {
		return nil
	}
	return m.Refresh(ctx, folder)
}

// Refresh reloads the first page of folder. Concurrent refreshes of the same
// folder share one request. Items stay visible while the load runs.
func (m *Mailbox) Refresh(ctx context.Context, folder FolderID) error {
	if !folder.Valid() {
		return NewValidation("refresh", "unknown folder %q", folder)
	}
	_, err, _ := m.loads.Do(string(folder), func() (any, error) {
		return nil, m.refresh(ctx, folder)
	})
	return err
}

func (m *Mailbox) refresh(ctx context.Context, folder FolderID) error {
	var (
		req   ListRequest
		epoch uint64
	)
	m.store.Modify(folder, func(c FolderContext, ok bool) (FolderContext, bool) {
		if !ok {
			c = NewFolderContext(folder.Filter())
		}
		c.epoch = m.store.nextEpoch()
		c.Loading = true
		c.Err = ""
		epoch = c.epoch
		req = c.request(m.pager.PageSize(), false)
		return c, true
	})

	m.log.Debug().Str("folder", folder.String()).Msg("refreshing folder")
	page, err := m.gw.List(ctx, req)
	if err != nil {
		return recordFailure(m.store, folder, epoch, AsFailure("list", err))
	}

	m.store.Modify(folder, func(c FolderContext, ok bool) (FolderContext, bool) {
		if !ok || c.epoch != epoch {
			return c, false
		}
		fresh := NewFolderContext(c.Filter())
		fresh.Highlight = c.Highlight
		fresh.epoch = epoch
		return fresh.withPage(page, m.store.now()), true
	})
	return nil
}

// NextPage advances the active folder.
func (m *Mailbox) NextPage(ctx context.Context) error {
	folder := m.store.Active()
	if m.highlighted(folder) {
		return m.pager.NextPageWithHighlight(ctx, folder)
	}
	return m.pager.NextPage(ctx, folder)
}

// PreviousPage moves the active folder back one page.
func (m *Mailbox) PreviousPage(ctx context.Context) error {
	folder := m.store.Active()
	if m.highlighted(folder) {
		return m.pager.PreviousPageWithHighlight(ctx, folder)
	}
	return m.pager.PreviousPage(ctx, folder)
}

func (m *Mailbox) highlighted(folder FolderID) bool {
	c, ok := m.store.Get(folder)
	return ok && c.Highlight
}

// Search runs query within the active folder's base folder.
func (m *Mailbox) Search(ctx context.Context, query string, highlight bool) error {
	return m.search.Search(ctx, query, highlight)
}

// ExitSearch returns to the base folder. It reports whether search mode was active.
func (m *Mailbox) ExitSearch() bool {
	return m.search.Exit()
}

// View returns the render state of folder.
func (m *Mailbox) View(folder FolderID) FolderView {
	v := FolderView{Folder: folder, Page: 1, Stale: m.store.IsStale(folder), Filter: folder.Filter().Describe()}
	c, ok := m.store.Get(folder)
	if !ok {
		return v
	}
	v.Loaded = true
	v.Items = c.Items
	v.Page = c.Page
	v.HasMore = c.HasMore
	v.HasPrevious = c.Tokens.Len() > 0
	v.UnreadCount = c.UnreadCount
	v.Loading = c.Loading
	v.LoadingMore = c.LoadingMore
	v.Query = c.Query
	v.Filter = c.Filter().Describe()
	v.Error = c.Err
	return v
}

// ActiveView returns the render state of the active folder.
func (m *Mailbox) ActiveView() FolderView {
	return m.View(m.store.Active())
}

// Message fetches one message in full.
func (m *Mailbox) Message(ctx context.Context, id string) (Detail, error) {
	if err := ValidateID("get", id); err != nil {
		return Detail{}, err
	}
	d, err := m.gw.Get(ctx, id)
	if err != nil {
		return Detail{}, AsFailure("get", err)
	}
	return d, nil
}

// RemoteUnread asks the server for the folder's total unread count. It is
// independent of the cached page's UnreadCount.
func (m *Mailbox) RemoteUnread(ctx context.Context, folder FolderID) (UnreadSummary, error) {
	if !folder.Valid() {
		return UnreadSummary{}, NewValidation("unreadCount", "unknown folder %q", folder)
	}
	flt := folder.Filter()
	if c, ok := m.store.Get(folder); ok {
		flt = c.Filter()
	}
	sum, err := m.gw.UnreadCount(ctx, flt.Labels, flt.Query)
	if err != nil {
		return UnreadSummary{}, AsFailure("unreadCount", err)
	}
	return sum, nil
}

// EmptyTrash empties trash on the server and reloads the trash folder when
// it is cached.
func (m *Mailbox) EmptyTrash(ctx context.Context) error {
	if err := m.actions.EmptyTrash(ctx); err != nil {
		return err
	}
	m.store.Clear(Trash.Search())
	if _, ok := m.store.Get(Trash); !ok {
		return nil
	}
	return m.Refresh(ctx, Trash)
}
