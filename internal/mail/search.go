package mail

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

const maxQueryLength = 1024

// SearchSwitch runs searches in a parallel search-variant context so the
// base folder's cached state survives untouched.
type SearchSwitch struct {
	store    *Store
	gw       Gateway
	pageSize int
	log      *zerolog.Logger
}

// NewSearchSwitch creates a SearchSwitch.
func NewSearchSwitch(store *Store, gw Gateway, pageSize int, log *zerolog.Logger) *SearchSwitch {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &SearchSwitch{store: store, gw: gw, pageSize: pageSize, log: log}
}

// Search searches within the active folder's base folder. Searching from a
// search variant replaces that variant's results; searches never stack.
// Results always come from a fresh request. On failure the error is
// recorded in the search context and returned.
func (s *SearchSwitch) Search(ctx context.Context, query string, highlight bool) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return NewValidation("search", "search query is required")
	}
	if len(query) > maxQueryLength {
		return NewValidation("search", "search query is too long")
	}

	target := s.store.Active().Base().Search()
	fresh := NewFolderContext(target.SearchFilter(query))
	fresh.Highlight = highlight
	fresh.Loading = true
	epoch := s.store.activate(target, fresh)

	req := fresh.request(s.pageSize, highlight)
	s.log.Debug().Str("folder", target.String()).Str("query", req.Query).Msg("searching")
	page, err := s.gw.List(ctx, req)
	if err != nil {
		return recordFailure(s.store, target, epoch, AsFailure("search", err))
	}

	s.store.Modify(target, func(c FolderContext, ok bool) (FolderContext, bool) {
		// A newer search may have replaced this context while we waited.
		if !ok || c.epoch != epoch {
			return c, false
		}
		out := c.withPage(page, s.store.now())
		out.Page = 1
		out.Tokens = nil
		return out, true
	})
	return nil
}

// Exit leaves search mode, returning to the base folder exactly as it was.
// It reports whether search mode was active.
func (s *SearchSwitch) Exit() bool {
	active := s.store.Active()
	if !active.IsSearch() {
		return false
	}
	s.store.SetActive(active.Base())
	return true
}
