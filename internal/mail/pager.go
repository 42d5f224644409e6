package mail

import (
	"context"

	"github.com/rs/zerolog"
)

// DefaultPageSize is the number of items requested per page.
const DefaultPageSize = 20

// Pager moves a folder's visible window through a server-paginated result
// set. Each page replaces the visible items; pages do not accumulate.
//
// The context's token stack always holds exactly the tokens consumed to
// reach each visited page, in order. Going back pops the token that led to
// the current page and refetches with the new top, or with a plain List
// when the stack becomes empty.
type Pager struct {
	store    *Store
	gw       Gateway
	pageSize int
	log      *zerolog.Logger
}

// NewPager creates a Pager. A non-positive pageSize selects DefaultPageSize.
func NewPager(store *Store, gw Gateway, pageSize int, log *zerolog.Logger) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Pager{store: store, gw: gw, pageSize: pageSize, log: log}
}

// PageSize returns the configured page size.
func (p *Pager) PageSize() int {
	return p.pageSize
}

// NextPage advances the folder by one page. It is a no-op when the folder
// was never loaded, has no more pages, or already has a request in flight.
func (p *Pager) NextPage(ctx context.Context, folder FolderID) error {
	return p.next(ctx, folder, false)
}

// NextPageWithHighlight is NextPage with match highlighting requested.
func (p *Pager) NextPageWithHighlight(ctx context.Context, folder FolderID) error {
	return p.next(ctx, folder, true)
}

// PreviousPage moves the folder back by one page. It is a no-op on page 1
// or while a request is in flight.
func (p *Pager) PreviousPage(ctx context.Context, folder FolderID) error {
	return p.previous(ctx, folder, false)
}

// PreviousPageWithHighlight is PreviousPage with match highlighting requested.
func (p *Pager) PreviousPageWithHighlight(ctx context.Context, folder FolderID) error {
	return p.previous(ctx, folder, true)
}

func (p *Pager) next(ctx context.Context, folder FolderID, highlight bool) error {
	var (
		token string
		req   ListRequest
		epoch uint64
	)
	_, started := p.store.Modify(folder, func(c FolderContext, ok bool) (FolderContext, bool) {
		if !ok || !c.HasMore || busy(c) {
			return c, false
		}
		epoch = c.epoch
		token = c.NextPageToken
		req = c.request(p.pageSize, highlight)
		c.LoadingMore = true
		c.Err = ""
		return c, true
	})
	if !started {
		return nil
	}

	p.log.Debug().Str("folder", folder.String()).Str("token", token).Msg("loading next page")
	page, err := p.gw.ListMore(ctx, req, token)
	if err != nil {
		return recordFailure(p.store, folder, epoch, AsFailure("listMore", err))
	}

	p.store.Modify(folder, func(c FolderContext, ok bool) (FolderContext, bool) {
		if !ok || c.epoch != epoch {
			return c, false
		}
		out := c.withPage(page, p.store.now())
		out.Tokens = c.Tokens.Push(token)
		out.Page = c.Page + 1
		return out, true
	})
	return nil
}

func (p *Pager) previous(ctx context.Context, folder FolderID, highlight bool) error {
	var (
		target    string
		firstPage bool
		req       ListRequest
		epoch     uint64
	)
	_, started := p.store.Modify(folder, func(c FolderContext, ok bool) (FolderContext, bool) {
		if !ok || c.Tokens.Len() == 0 || busy(c) {
			return c, false
		}
		epoch = c.epoch
		rest, _, _ := c.Tokens.Pop()
		var has bool
		target, has = rest.Top()
		firstPage = !has
		req = c.request(p.pageSize, highlight)
		c.LoadingMore = true
		c.Err = ""
		return c, true
	})
	if !started {
		return nil
	}

	p.log.Debug().Str("folder", folder.String()).Bool("first_page", firstPage).Msg("loading previous page")
	var (
		page Page
		err  error
	)
	if firstPage {
		page, err = p.gw.List(ctx, req)
	} else {
		page, err = p.gw.ListMore(ctx, req, target)
	}
	if err != nil {
		return recordFailure(p.store, folder, epoch, AsFailure("listPrevious", err))
	}

	p.store.Modify(folder, func(c FolderContext, ok bool) (FolderContext, bool) {
		if !ok || c.epoch != epoch {
			return c, false
		}
		rest, _, _ := c.Tokens.Pop()
		out := c.withPage(page, p.store.now())
		out.Tokens = rest
		out.Page = c.Page - 1
		return out, true
	})
	return nil
}

func busy(c FolderContext) bool {
	return c.Loading || c.LoadingMore
}

// recordFailure stores f's message in the folder's error banner, clears the
// loading flags and keeps the visible items. Nothing is written when the
// context was replaced since the request started. It returns f.
func recordFailure(store *Store, folder FolderID, epoch uint64, f *Failure) error {
	store.Modify(folder, func(c FolderContext, ok bool) (FolderContext, bool) {
		if !ok || c.epoch != epoch {
			return c, false
		}
		c.Loading = false
		c.LoadingMore = false
		c.Err = f.Message
		return c, true
	})
	return f
}
