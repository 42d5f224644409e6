package mail

import (
	"fmt"
	"strings"
)

// FolderID identifies a logical mailbox view. Every base folder has exactly
// one search variant, named "<base>_search".
type FolderID string

const (
	Inbox     FolderID = "inbox"
	Sent      FolderID = "sent"
	Drafts    FolderID = "drafts"
	Spam      FolderID = "spam"
	Starred   FolderID = "starred"
	Important FolderID = "important"
	Trash     FolderID = "trash"

	InboxSearch     FolderID = "inbox_search"
	SentSearch      FolderID = "sent_search"
	DraftsSearch    FolderID = "drafts_search"
	SpamSearch      FolderID = "spam_search"
	StarredSearch   FolderID = "starred_search"
	ImportantSearch FolderID = "important_search"
	TrashSearch     FolderID = "trash_search"
)

const searchSuffix = "_search"

// Gateway label ids for the system folders.
const (
	LabelInbox   = "INBOX"
	LabelSent    = "SENT"
	LabelDraft   = "DRAFT"
	LabelSpam    = "SPAM"
	LabelStarred = "STARRED"
	LabelTrash   = "TRASH"
	LabelUnread  = "UNREAD"

	// The gateway has no label filter for important mail.
	QueryImportant = "is:important"
)

// BaseFolders lists the base folders in display order.
var BaseFolders = []FolderID{Inbox, Sent, Drafts, Spam, Starred, Important, Trash}

// Filter is the label/query pair sent to the gateway for a folder.
type Filter struct {
	Labels []string
	Query  string
}

var folderFilters = map[FolderID]Filter{
	Inbox:     {Labels: []string{LabelInbox}},
	Sent:      {Labels: []string{LabelSent}},
	Drafts:    {Labels: []string{LabelDraft}},
	Spam:      {Labels: []string{LabelSpam}},
	Starred:   {Labels: []string{LabelStarred}},
	Important: {Query: QueryImportant},
	Trash:     {Labels: []string{LabelTrash}},
}

// ParseFolder resolves a folder name, case-insensitively.
func ParseFolder(name string) (FolderID, error) {
	f := FolderID(strings.ToLower(strings.TrimSpace(name)))
	if !f.Valid() {
		return "", NewValidation("parseFolder", "unknown folder %q", name)
	}
	return f, nil
}

// Valid reports whether f is a known base folder or search variant.
func (f FolderID) Valid() bool {
	_, ok := folderFilters[f.Base()]
	return ok
}

// IsSearch reports whether f is a search variant.
func (f FolderID) IsSearch() bool {
	return strings.HasSuffix(string(f), searchSuffix)
}

// Base returns the base folder of a search variant, or f itself.
func (f FolderID) Base() FolderID {
	return FolderID(strings.TrimSuffix(string(f), searchSuffix))
}

// Search returns the search variant of f's base folder.
func (f FolderID) Search() FolderID {
	return f.Base() + searchSuffix
}

// Filter returns the gateway filter of f's base folder.
func (f FolderID) Filter() Filter {
	base := folderFilters[f.Base()]
	return Filter{Labels: append([]string(nil), base.Labels...), Query: base.Query}
}

// SearchFilter returns the filter for a free-text search inside f's base folder.
func (f FolderID) SearchFilter(query string) Filter {
	flt := f.Filter()
	flt.Query = joinQuery(flt.Query, query)
	return flt
}

func (f FolderID) String() string {
	return string(f)
}

func joinQuery(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// Describe renders a filter for display, e.g. "label:INBOX from:bob".
func (flt Filter) Describe() string {
	var parts []string
	for _, l := range flt.Labels {
		parts = append(parts, fmt.Sprintf("label:%s", l))
	}
	return joinQuery(strings.Join(parts, " "), flt.Query)
}
