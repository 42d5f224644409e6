package mail

import (
	"context"
	"time"
)

// Gateway is the remote mail backend the mailbox talks to.
// Page tokens are opaque; the mailbox only stores and replays them.
type Gateway interface {
	// List fetches the first page of a filtered result set.
	List(ctx context.Context, req ListRequest) (Page, error)
	// ListMore fetches the page addressed by token. An empty token is sent as-is.
	ListMore(ctx context.Context, req ListRequest, token string) (Page, error)
	Get(ctx context.Context, id string) (Detail, error)
	Mutate(ctx context.Context, id string, op Operation) error
	EmptyTrash(ctx context.Context) error
	UnreadCount(ctx context.Context, labels []string, query string) (UnreadSummary, error)
}

// ListRequest carries the filter and page size of a list call.
type ListRequest struct {
	Labels     []string
	Query      string
	MaxResults int
	// Highlight asks the gateway to annotate matched text; it has no effect
	// on pagination.
	Highlight bool
}

// Page is one window of a paginated result set.
type Page struct {
	Items              []Item
	NextPageToken      string
	ResultSizeEstimate int
	HasMore            bool
}

// Detail is a full message as returned by Gateway.Get.
type Detail struct {
	Item    `yaml:",inline"`
	To      []string          `json:"to,omitempty" yaml:"to,omitempty"`
	Cc      []string          `json:"cc,omitempty" yaml:"cc,omitempty"`
	Body    string            `json:"body" yaml:"body"`
	HTML    bool              `json:"html" yaml:"html"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// UnreadSummary is the gateway's unread counter for a filter.
type UnreadSummary struct {
	Unread         int           `json:"unread" yaml:"unread"`
	Query          string        `json:"query,omitempty" yaml:"query,omitempty"`
	ProcessingTime time.Duration `json:"processingTime" yaml:"processingTime"`
}

// Operation is a single-item mutation.
type Operation string

const (
	OpMarkRead   Operation = "markRead"
	OpMarkUnread Operation = "markUnread"
	OpStar       Operation = "star"
	OpUnstar     Operation = "unstar"
	OpTrash      Operation = "trash"
	OpRestore    Operation = "restore"
	OpDelete     Operation = "delete"
	OpArchive    Operation = "archive"
)

// Valid reports whether op is a known mutation.
func (op Operation) Valid() bool {
	switch op {
	case OpMarkRead, OpMarkUnread, OpStar, OpUnstar, OpTrash, OpRestore, OpDelete, OpArchive:
		return true
	}
	return false
}
