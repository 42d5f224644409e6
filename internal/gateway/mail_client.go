package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/korgan/korg/internal/config"
	"github.com/korgan/korg/internal/mail"
)

// Compile-time check that MailClient implements mail.Gateway
var _ mail.Gateway = (*MailClient)(nil)

// MailClient is the Korgan REST binding of mail.Gateway for one mailbox owner.
type MailClient struct {
	client *Client
	user   string
}

// NewMailClient binds client to the mailbox of user.
func NewMailClient(client *Client, user string) (*MailClient, error) {
	if err := mail.ValidateEmail(user); err != nil {
		return nil, err
	}
	return &MailClient{client: client, user: user}, nil
}

// NewFromConfig builds a MailClient from configuration and an OAuth2 token source.
func NewFromConfig(cfg *config.Config, ts oauth2.TokenSource, user, userAgent string, log *zerolog.Logger) (*MailClient, error) {
	base, err := cfg.APIBase()
	if err != nil {
		return nil, err
	}
	client, err := NewClient(ClientOptions{
		BaseURL:    base,
		HTTPClient: oauth2.NewClient(context.Background(), ts),
		Timeout:    cfg.RequestTimeoutDuration(),
		RPS:        cfg.RPSOrDefault(),
		MaxRetries: cfg.MaxRetriesOrDefault(),
		UserAgent:  userAgent,
		Log:        log,
	})
	if err != nil {
		return nil, err
	}
	return NewMailClient(client, user)
}

// User returns the mailbox owner.
func (mc *MailClient) User() string {
	return mc.user
}

func (mc *MailClient) path(format string, args ...any) string {
	return "/api/v1/mail/" + url.PathEscape(mc.user) + fmt.Sprintf(format, args...)
}

func filterQuery(labels []string, query string) url.Values {
	q := url.Values{}
	for _, l := range labels {
		q.Add("labelIds", l)
	}
	if query != "" {
		q.Set("q", query)
	}
	return q
}

func listQuery(req mail.ListRequest) url.Values {
	q := filterQuery(req.Labels, req.Query)
	if req.MaxResults > 0 {
		q.Set("maxResults", strconv.Itoa(req.MaxResults))
	}
	if req.Highlight {
		q.Set("highlight", "true")
	}
	return q
}

func (mc *MailClient) list(ctx context.Context, op string, q url.Values) (mail.Page, error) {
	var data MessageList
	if err := mc.client.Do(ctx, op, http.MethodGet, mc.path("/messages"), q, &data); err != nil {
		return mail.Page{}, err
	}
	page, err := data.Page()
	if err != nil {
		return mail.Page{}, mail.AsFailure(op, err)
	}
	return page, nil
}

// List fetches the first page of a filtered message list.
func (mc *MailClient) List(ctx context.Context, req mail.ListRequest) (mail.Page, error) {
	return mc.list(ctx, "list", listQuery(req))
}

// ListMore fetches the page addressed by token.
func (mc *MailClient) ListMore(ctx context.Context, req mail.ListRequest, token string) (mail.Page, error) {
	q := listQuery(req)
	q.Set("pageToken", token)
	return mc.list(ctx, "listMore", q)
}

// Get fetches one message in full.
func (mc *MailClient) Get(ctx context.Context, id string) (mail.Detail, error) {
	if err := mail.ValidateID("get", id); err != nil {
		return mail.Detail{}, err
	}
	var data MessageDetail
	if err := mc.client.Do(ctx, "get", http.MethodGet, mc.path("/messages/%s", url.PathEscape(id)), nil, &data); err != nil {
		return mail.Detail{}, err
	}
	d, err := data.Detail()
	if err != nil {
		return mail.Detail{}, mail.AsFailure("get", err)
	}
	return d, nil
}

var operationPaths = map[mail.Operation]string{
	mail.OpMarkRead:   "read",
	mail.OpMarkUnread: "unread",
	mail.OpStar:       "star",
	mail.OpUnstar:     "unstar",
	mail.OpTrash:      "trash",
	mail.OpRestore:    "untrash",
	mail.OpArchive:    "archive",
}

// Mutate applies op to one message. Delete is permanent.
func (mc *MailClient) Mutate(ctx context.Context, id string, op mail.Operation) error {
	if err := mail.ValidateID(string(op), id); err != nil {
		return err
	}
	if op == mail.OpDelete {
		return mc.client.Do(ctx, string(op), http.MethodDelete, mc.path("/messages/%s", url.PathEscape(id)), nil, nil)
	}
	action, ok := operationPaths[op]
	if !ok {
		return mail.NewValidation(string(op), "unknown operation")
	}
	return mc.client.Do(ctx, string(op), http.MethodPost, mc.path("/messages/%s/%s", url.PathEscape(id), action), nil, nil)
}

// EmptyTrash permanently deletes everything in trash.
func (mc *MailClient) EmptyTrash(ctx context.Context) error {
	return mc.client.Do(ctx, "emptyTrash", http.MethodDelete, mc.path("/trash"), nil, nil)
}

// UnreadCount asks the server how many messages match the filter and are unread.
func (mc *MailClient) UnreadCount(ctx context.Context, labels []string, query string) (mail.UnreadSummary, error) {
	var data UnreadCount
	if err := mc.client.Do(ctx, "unreadCount", http.MethodGet, mc.path("/unread-count"), filterQuery(labels, query), &data); err != nil {
		return mail.UnreadSummary{}, err
	}
	if data.UnreadCount < 0 {
		return mail.UnreadSummary{}, parseFailure("unreadCount", "negative unread count %d", data.UnreadCount)
	}
	return mail.UnreadSummary{
		Unread:         data.UnreadCount,
		Query:          data.Query,
		ProcessingTime: time.Duration(data.ProcessingTimeMs) * time.Millisecond,
	}, nil
}
