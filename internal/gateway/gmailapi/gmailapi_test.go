package gmailapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/korgan/korg/internal/mail"
)

type fakeGmail struct {
	mu       sync.Mutex
	requests []string
	modifies []gmail.ModifyMessageRequest
	messages map[string]*gmail.Message
}

func (f *fakeGmail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/gmail/v1/users/me")
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+path)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && path == "/messages":
		if r.URL.Query().Get("q") == "is:unread" || strings.HasSuffix(r.URL.Query().Get("q"), " is:unread") {
			writeJSON(w, gmail.ListMessagesResponse{ResultSizeEstimate: 5})
			return
		}
		if r.URL.Query().Get("pageToken") == "" && r.URL.Query().Get("labelIds") != mail.LabelTrash {
			writeJSON(w, gmail.ListMessagesResponse{
				Messages:           []*gmail.Message{{Id: "m2"}, {Id: "m1"}},
				NextPageToken:      "next",
				ResultSizeEstimate: 2,
			})
			return
		}
		writeJSON(w, gmail.ListMessagesResponse{Messages: []*gmail.Message{{Id: "m1"}}})
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/messages/"):
		f.mu.Lock()
		msg, ok := f.messages[strings.TrimPrefix(path, "/messages/")]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found."}}`))
			return
		}
		writeJSON(w, msg)
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/modify"):
		var req gmail.ModifyMessageRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.modifies = append(f.modifies, req)
		f.mu.Unlock()
		writeJSON(w, gmail.Message{Id: "m1"})
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/labels/"):
		writeJSON(w, gmail.Label{Id: "INBOX", MessagesUnread: 9})
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, gmail.Message{Id: "m1"})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}

func newTestGateway(t *testing.T) (*Gateway, *fakeGmail) {
	t.Helper()
	fake := &fakeGmail{messages: map[string]*gmail.Message{
		"m1": {
			Id: "m1", ThreadId: "t1", LabelIds: []string{"INBOX"}, InternalDate: 1700000000000,
			Payload: &gmail.MessagePart{
				MimeType: "multipart/alternative",
				Headers: []*gmail.MessagePartHeader{
					{Name: "From", Value: "bob@example.com"},
					{Name: "Subject", Value: "lunch"},
					{Name: "To", Value: "me@example.com, you@example.com"},
				},
				Parts: []*gmail.MessagePart{
					{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte("<b>noon</b>"))}},
					{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: base64.RawURLEncoding.EncodeToString([]byte("noon?"))}},
				},
			},
		},
		"m2": {Id: "m2", LabelIds: []string{"INBOX", "UNREAD", "STARRED"}, InternalDate: 1700000060000},
	}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gmail.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return New(svc, nil), fake
}

func TestGatewayList(t *testing.T) {
	g, _ := newTestGateway(t)

	page, err := g.List(context.Background(), mail.ListRequest{Labels: []string{mail.LabelInbox}, MaxResults: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "m2", page.Items[0].ID, "server order is kept")
	assert.False(t, page.Items[0].Read)
	assert.True(t, page.Items[0].Starred)
	assert.Equal(t, "bob@example.com", page.Items[1].From)
	assert.Equal(t, "lunch", page.Items[1].Subject)
	assert.True(t, page.HasMore)

	more, err := g.ListMore(context.Background(), mail.ListRequest{Labels: []string{mail.LabelInbox}}, "next")
	require.NoError(t, err)
	assert.False(t, more.HasMore)
	assert.Len(t, more.Items, 1)
}

func TestGatewayGetPrefersPlainText(t *testing.T) {
	g, _ := newTestGateway(t)

	d, err := g.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "noon?", d.Body)
	assert.False(t, d.HTML)
	assert.Equal(t, []string{"me@example.com", "you@example.com"}, d.To)
	assert.Empty(t, d.Cc)

	_, err = g.Get(context.Background(), "missing")
	var f *mail.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, mail.KindServer, f.Kind)
	assert.Equal(t, http.StatusNotFound, f.Status)
}

func TestGatewayMutate(t *testing.T) {
	g, fake := newTestGateway(t)
	ctx := context.Background()

	require.NoError(t, g.Mutate(ctx, "m1", mail.OpMarkRead))
	require.NoError(t, g.Mutate(ctx, "m1", mail.OpStar))
	require.NoError(t, g.Mutate(ctx, "m1", mail.OpArchive))
	require.NoError(t, g.Mutate(ctx, "m1", mail.OpTrash))
	require.NoError(t, g.Mutate(ctx, "m1", mail.OpRestore))
	require.NoError(t, g.Mutate(ctx, "m1", mail.OpDelete))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.modifies, 3)
	assert.Equal(t, []string{"UNREAD"}, fake.modifies[0].RemoveLabelIds)
	assert.Equal(t, []string{"STARRED"}, fake.modifies[1].AddLabelIds)
	assert.Equal(t, []string{"INBOX"}, fake.modifies[2].RemoveLabelIds)
	assert.Contains(t, fake.requests, "POST /messages/m1/trash")
	assert.Contains(t, fake.requests, "POST /messages/m1/untrash")
	assert.Contains(t, fake.requests, "DELETE /messages/m1")
}

func TestGatewayEmptyTrash(t *testing.T) {
	g, fake := newTestGateway(t)

	require.NoError(t, g.EmptyTrash(context.Background()))
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Contains(t, fake.requests, "POST /messages/batchDelete")
}

func TestGatewayUnreadCount(t *testing.T) {
	g, _ := newTestGateway(t)
	ctx := context.Background()

	sum, err := g.UnreadCount(ctx, []string{mail.LabelInbox}, "")
	require.NoError(t, err)
	assert.Equal(t, 9, sum.Unread)

	sum, err = g.UnreadCount(ctx, nil, mail.QueryImportant)
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Unread)
	assert.Equal(t, mail.QueryImportant+" is:unread", sum.Query)
}

func TestDecodeData(t *testing.T) {
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding} {
		got, err := decodeData(enc.EncodeToString([]byte("héllo>?")))
		require.NoError(t, err)
		assert.Equal(t, "héllo>?", string(got))
	}
}

func TestNewFromDirWithoutCredentials(t *testing.T) {
	_, err := NewFromDir(context.Background(), t.TempDir(), nil)
	var f *mail.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, mail.KindValidation, f.Kind)
	assert.Contains(t, f.Message, "gmail credentials")
}
