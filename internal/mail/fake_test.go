package mail

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

var baseTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type listCall struct {
	Req   ListRequest
	Token string
	More  bool
}

// fakeGateway serves scripted pages keyed by filter and token.
type fakeGateway struct {
	mu        sync.Mutex
	pages     map[string]Page
	listErr   error
	mutateErr map[string]error
	details   map[string]Detail
	unread    UnreadSummary
	emptyErr  error

	calls         []listCall
	unreadQueries []Filter
	mutations     []string
	emptied       int

	// beforeReturn runs outside the lock after a list call was recorded.
	beforeReturn func(call listCall)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		pages:     make(map[string]Page),
		mutateErr: make(map[string]error),
		details:   make(map[string]Detail),
	}
}

func pageKey(labels []string, query, token string) string {
	return strings.Join(labels, ",") + "|" + query + "|" + token
}

func (g *fakeGateway) script(flt Filter, token string, p Page) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pages[pageKey(flt.Labels, flt.Query, token)] = p
}

func (g *fakeGateway) list(req ListRequest, token string, more bool) (Page, error) {
	call := listCall{Req: req, Token: token, More: more}
	g.mu.Lock()
	g.calls = append(g.calls, call)
	err := g.listErr
	p, ok := g.pages[pageKey(req.Labels, req.Query, token)]
	hook := g.beforeReturn
	g.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if err != nil {
		return Page{}, err
	}
	if !ok {
		return Page{}, &Failure{Kind: KindServer, Status: 404, Message: "no scripted page for " + pageKey(req.Labels, req.Query, token)}
	}
	return p, nil
}

func (g *fakeGateway) List(_ context.Context, req ListRequest) (Page, error) {
	return g.list(req, "", false)
}

func (g *fakeGateway) ListMore(_ context.Context, req ListRequest, token string) (Page, error) {
	return g.list(req, token, true)
}

func (g *fakeGateway) Get(_ context.Context, id string) (Detail, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	d, ok := g.details[id]
	if !ok {
		return Detail{}, &Failure{Kind: KindServer, Status: 404, Message: "message not found"}
	}
	return d, nil
}

func (g *fakeGateway) Mutate(_ context.Context, id string, op Operation) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mutations = append(g.mutations, fmt.Sprintf("%s:%s", op, id))
	return g.mutateErr[id]
}

func (g *fakeGateway) EmptyTrash(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.emptied++
	return g.emptyErr
}

func (g *fakeGateway) UnreadCount(_ context.Context, labels []string, query string) (UnreadSummary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unreadQueries = append(g.unreadQueries, Filter{Labels: labels, Query: query})
	return g.unread, nil
}

func (g *fakeGateway) listCalls() []listCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]listCall(nil), g.calls...)
}

func (g *fakeGateway) mutationLog() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.mutations...)
}

// item builds an item n minutes older than baseTime.
func item(id string, n int, read bool) Item {
	return Item{
		ID:      id,
		From:    "alice@example.com",
		Subject: "subject " + id,
		Read:    read,
		Date:    baseTime.Add(-time.Duration(n) * time.Minute),
	}
}

func ids(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestMailbox(gw Gateway) (*Mailbox, *fakeClock) {
	clock := &fakeClock{now: baseTime}
	return New(gw, Options{PageSize: 2, Clock: clock.Now}), clock
}

// scriptInbox sets up three inbox pages linked by tokens t1 and t2.
func scriptInbox(gw *fakeGateway) {
	flt := Inbox.Filter()
	gw.script(flt, "", Page{Items: []Item{item("a", 1, false), item("b", 2, true)}, NextPageToken: "t1", HasMore: true})
	gw.script(flt, "t1", Page{Items: []Item{item("c", 3, false), item("d", 4, false)}, NextPageToken: "t2", HasMore: true})
	gw.script(flt, "t2", Page{Items: []Item{item("e", 5, true)}})
}
