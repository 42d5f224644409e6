package mail

import (
	"slices"
	"sort"
	"time"
)

// Item is a message as shown in a folder list.
type Item struct {
	ID       string    `json:"id" yaml:"id"`
	ThreadID string    `json:"threadId,omitempty" yaml:"threadId,omitempty"`
	From     string    `json:"from" yaml:"from"`
	Subject  string    `json:"subject" yaml:"subject"`
	Snippet  string    `json:"snippet,omitempty" yaml:"snippet,omitempty"`
	Read     bool      `json:"read" yaml:"read"`
	Starred  bool      `json:"starred" yaml:"starred"`
	Date     time.Time `json:"date" yaml:"date"`
	Labels   []string  `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// FolderContext is the cached, paginated view of one folder.
// Contexts are values: the store hands out copies and takes replacements.
type FolderContext struct {
	Items         []Item
	Loading       bool
	LoadingMore   bool
	Err           string
	NextPageToken string
	HasMore       bool
	Page          int
	Tokens        TokenStack
	Labels        []string
	Query         string
	Highlight     bool
	UpdatedAt     time.Time
	UnreadCount   int

	// epoch changes whenever the context is replaced wholesale (refresh,
	// new search) so late page results can be told apart.
	epoch uint64
}

// NewFolderContext returns an empty context positioned on page 1 with the
// given filter applied.
func NewFolderContext(flt Filter) FolderContext {
	return FolderContext{
		Page:   1,
		Labels: append([]string(nil), flt.Labels...),
		Query:  flt.Query,
	}
}

// Clone returns a deep copy.
func (c FolderContext) Clone() FolderContext {
	c.Items = cloneItems(c.Items)
	c.Tokens = c.Tokens.Clone()
	c.Labels = slices.Clone(c.Labels)
	return c
}

// Filter returns the filter applied to the context.
func (c FolderContext) Filter() Filter {
	return Filter{Labels: slices.Clone(c.Labels), Query: c.Query}
}

func (c FolderContext) request(pageSize int, highlight bool) ListRequest {
	return ListRequest{
		Labels:     slices.Clone(c.Labels),
		Query:      c.Query,
		MaxResults: pageSize,
		Highlight:  highlight || c.Highlight,
	}
}

// countUnread returns the number of unread items.
func countUnread(items []Item) int {
	n := 0
	for _, it := range items {
		if !it.Read {
			n++
		}
	}
	return n
}

func (c FolderContext) indexOf(id string) int {
	for i, it := range c.Items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// Contains reports whether the visible list holds the id.
func (c FolderContext) Contains(id string) bool {
	return c.indexOf(id) >= 0
}

// withoutItem returns a copy of c minus the item with id.
func (c FolderContext) withoutItem(id string) (FolderContext, Item, bool) {
	i := c.indexOf(id)
	if i < 0 {
		return c, Item{}, false
	}
	removed := c.Items[i]
	out := c.Clone()
	out.Items = slices.Delete(out.Items, i, i+1)
	return out, removed, true
}

// withItem returns a copy of c holding it exactly once, ordered newest first.
func (c FolderContext) withItem(it Item) FolderContext {
	out := c.Clone()
	if i := out.indexOf(it.ID); i >= 0 {
		out.Items[i] = it
	} else {
		out.Items = append(out.Items, it)
	}
	sort.SliceStable(out.Items, func(a, b int) bool {
		return out.Items[a].Date.After(out.Items[b].Date)
	})
	return out
}

// withPage returns a copy of c showing page instead of the current items.
func (c FolderContext) withPage(p Page, now time.Time) FolderContext {
	out := c.Clone()
	out.Items = cloneItems(p.Items)
	out.NextPageToken = p.NextPageToken
	out.HasMore = p.HasMore
	out.Loading = false
	out.LoadingMore = false
	out.Err = ""
	out.UpdatedAt = now
	return out
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		it.Labels = slices.Clone(it.Labels)
		out[i] = it
	}
	return out
}
