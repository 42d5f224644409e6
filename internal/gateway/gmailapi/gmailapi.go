// Package gmailapi implements mail.Gateway on top of the Gmail REST API.
package gmailapi

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/mbrt/gmailctl/cmd/gmailctl/localcred"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/korgan/korg/internal/mail"
)

const (
	user          = "me"
	fetchParallel = 8
	deleteChunk   = 1000
)

var listHeaders = []string{"From", "Subject"}

// Compile-time check that Gateway implements mail.Gateway
var _ mail.Gateway = (*Gateway)(nil)

// Gateway adapts a *gmail.Service to mail.Gateway for the authenticated user.
type Gateway struct {
	svc *gmail.Service
	log *zerolog.Logger
}

// New wraps an existing service.
func New(svc *gmail.Service, log *zerolog.Logger) *Gateway {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Gateway{svc: svc, log: log}
}

// NewFromDir authorizes with the credentials.json and token.json stored in
// dir, as written by gmailctl init. The granted scopes are those of the
// stored token; delete and empty-trash need the full mail scope.
func NewFromDir(ctx context.Context, dir string, log *zerolog.Logger) (*Gateway, error) {
	svc, err := (localcred.Provider{}).Service(ctx, dir)
	if err != nil {
		return nil, &mail.Failure{Kind: mail.KindValidation, Op: "connect", Message: "gmail credentials: " + err.Error(), Err: err}
	}
	return New(svc, log), nil
}

// List fetches the first page of a filtered message list.
func (g *Gateway) List(ctx context.Context, req mail.ListRequest) (mail.Page, error) {
	return g.list(ctx, "list", req, "")
}

// ListMore fetches the page addressed by token.
func (g *Gateway) ListMore(ctx context.Context, req mail.ListRequest, token string) (mail.Page, error) {
	return g.list(ctx, "listMore", req, token)
}

func (g *Gateway) list(ctx context.Context, op string, req mail.ListRequest, token string) (mail.Page, error) {
	call := g.svc.Users.Messages.List(user).Context(ctx)
	if len(req.Labels) > 0 {
		call = call.LabelIds(req.Labels...)
	}
	if req.Query != "" {
		call = call.Q(req.Query)
	}
	if req.MaxResults > 0 {
		call = call.MaxResults(int64(req.MaxResults))
	}
	if token != "" {
		call = call.PageToken(token)
	}
	res, err := call.Do()
	if err != nil {
		return mail.Page{}, failure(op, err)
	}

	items := make([]mail.Item, len(res.Messages))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(fetchParallel)
	for i, m := range res.Messages {
		eg.Go(func() error {
			msg, err := g.svc.Users.Messages.Get(user, m.Id).
				Format("metadata").
				MetadataHeaders(listHeaders...).
				Context(egCtx).
				Do()
			if err != nil {
				return err
			}
			items[i] = toItem(msg)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return mail.Page{}, failure(op, err)
	}
	g.log.Debug().Str("op", op).Int("count", len(items)).Bool("more", res.NextPageToken != "").Msg("gmail list")

	return mail.Page{
		Items:              items,
		NextPageToken:      res.NextPageToken,
		ResultSizeEstimate: int(res.ResultSizeEstimate),
		HasMore:            res.NextPageToken != "",
	}, nil
}

// Get fetches one message in full.
func (g *Gateway) Get(ctx context.Context, id string) (mail.Detail, error) {
	if err := mail.ValidateID("get", id); err != nil {
		return mail.Detail{}, err
	}
	msg, err := g.svc.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return mail.Detail{}, failure("get", err)
	}
	d := mail.Detail{Item: toItem(msg), Headers: map[string]string{}}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			d.Headers[h.Name] = h.Value
		}
		d.To = splitAddresses(d.Headers["To"])
		d.Cc = splitAddresses(d.Headers["Cc"])
		d.Body, d.HTML = body(msg.Payload)
	}
	return d, nil
}

// Mutate applies op to one message.
func (g *Gateway) Mutate(ctx context.Context, id string, op mail.Operation) error {
	if err := mail.ValidateID(string(op), id); err != nil {
		return err
	}
	var err error
	switch op {
	case mail.OpMarkRead:
		err = g.modify(ctx, id, nil, []string{mail.LabelUnread})
	case mail.OpMarkUnread:
		err = g.modify(ctx, id, []string{mail.LabelUnread}, nil)
	case mail.OpStar:
		err = g.modify(ctx, id, []string{mail.LabelStarred}, nil)
	case mail.OpUnstar:
		err = g.modify(ctx, id, nil, []string{mail.LabelStarred})
	case mail.OpArchive:
		err = g.modify(ctx, id, nil, []string{mail.LabelInbox})
	case mail.OpTrash:
		_, err = g.svc.Users.Messages.Trash(user, id).Context(ctx).Do()
	case mail.OpRestore:
		_, err = g.svc.Users.Messages.Untrash(user, id).Context(ctx).Do()
	case mail.OpDelete:
		err = g.svc.Users.Messages.Delete(user, id).Context(ctx).Do()
	default:
		return mail.NewValidation(string(op), "unknown operation")
	}
	if err != nil {
		return failure(string(op), err)
	}
	return nil
}

func (g *Gateway) modify(ctx context.Context, id string, add, remove []string) error {
	_, err := g.svc.Users.Messages.Modify(user, id, &gmail.ModifyMessageRequest{
		AddLabelIds:    add,
		RemoveLabelIds: remove,
	}).Context(ctx).Do()
	return err
}

// EmptyTrash lists every trashed message and deletes them in batches.
func (g *Gateway) EmptyTrash(ctx context.Context) error {
	var ids []string
	err := g.svc.Users.Messages.List(user).
		LabelIds(mail.LabelTrash).
		MaxResults(500).
		Pages(ctx, func(res *gmail.ListMessagesResponse) error {
			for _, m := range res.Messages {
				ids = append(ids, m.Id)
			}
			return nil
		})
	if err != nil {
		return failure("emptyTrash", err)
	}
	for chunk := range slices.Chunk(ids, deleteChunk) {
		req := &gmail.BatchDeleteMessagesRequest{Ids: chunk}
		if err := g.svc.Users.Messages.BatchDelete(user, req).Context(ctx).Do(); err != nil {
			return failure("emptyTrash", err)
		}
	}
	g.log.Debug().Int("deleted", len(ids)).Msg("gmail trash emptied")
	return nil
}

// UnreadCount reads the label counter when the filter is a single label, and
// otherwise falls back to the list estimate for the query plus is:unread.
func (g *Gateway) UnreadCount(ctx context.Context, labels []string, query string) (mail.UnreadSummary, error) {
	start := time.Now()
	if len(labels) == 1 && query == "" {
		l, err := g.svc.Users.Labels.Get(user, labels[0]).Context(ctx).Do()
		if err != nil {
			return mail.UnreadSummary{}, failure("unreadCount", err)
		}
		return mail.UnreadSummary{
			Unread:         int(l.MessagesUnread),
			Query:          "label:" + labels[0] + " is:unread",
			ProcessingTime: time.Since(start),
		}, nil
	}

	q := strings.TrimSpace(query + " is:unread")
	call := g.svc.Users.Messages.List(user).Q(q).MaxResults(1).Context(ctx)
	if len(labels) > 0 {
		call = call.LabelIds(labels...)
	}
	res, err := call.Do()
	if err != nil {
		return mail.UnreadSummary{}, failure("unreadCount", err)
	}
	return mail.UnreadSummary{
		Unread:         int(res.ResultSizeEstimate),
		Query:          q,
		ProcessingTime: time.Since(start),
	}, nil
}

func toItem(m *gmail.Message) mail.Item {
	it := mail.Item{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		Snippet:  m.Snippet,
		Read:     !slices.Contains(m.LabelIds, mail.LabelUnread),
		Starred:  slices.Contains(m.LabelIds, mail.LabelStarred),
		Date:     time.UnixMilli(m.InternalDate).UTC(),
		Labels:   slices.Clone(m.LabelIds),
	}
	if m.Payload != nil {
		for _, h := range m.Payload.Headers {
			switch h.Name {
			case "From":
				it.From = h.Value
			case "Subject":
				it.Subject = h.Value
			}
		}
	}
	return it
}

// body returns the first text/plain part, or the first text/html part when
// the message has no plain text.
func body(p *gmail.MessagePart) (string, bool) {
	if text, ok := findPart(p, "text/plain"); ok {
		return text, false
	}
	if html, ok := findPart(p, "text/html"); ok {
		return html, true
	}
	return "", false
}

func findPart(p *gmail.MessagePart, mimeType string) (string, bool) {
	if p == nil {
		return "", false
	}
	if p.MimeType == mimeType && p.Body != nil && p.Body.Data != "" {
		if data, err := decodeData(p.Body.Data); err == nil {
			return string(data), true
		}
	}
	for _, part := range p.Parts {
		if text, ok := findPart(part, mimeType); ok {
			return text, true
		}
	}
	return "", false
}

// decodeData decodes base64url body data, padded or not.
func decodeData(s string) ([]byte, error) {
	if data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "=")); err == nil {
		return data, nil
	}
	return base64.URLEncoding.DecodeString(s)
}

func splitAddresses(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// failure maps Gmail API errors onto the mailbox failure kinds.
func failure(op string, err error) *mail.Failure {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = http.StatusText(gerr.Code)
		}
		return &mail.Failure{Kind: mail.KindServer, Op: op, Status: gerr.Code, Message: msg, Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return mail.AsFailure(op, err)
	}
	return &mail.Failure{Kind: mail.KindNetwork, Op: op, Message: "gmail unreachable", Err: err}
}
