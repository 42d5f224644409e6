package gateway

import (
	"strings"
	"time"
)

// Query builds gateway search syntax (Gmail operators).
type Query struct {
	parts []string
}

// NewQuery creates an empty query builder
func NewQuery() *Query {
	return &Query{}
}

func (q *Query) add(op, value string) *Query {
	value = strings.TrimSpace(value)
	if value == "" {
		return q
	}
	if strings.ContainsAny(value, " \t") {
		value = `"` + strings.ReplaceAll(value, `"`, "") + `"`
	}
	q.parts = append(q.parts, op+value)
	return q
}

// From filters by sender.
func (q *Query) From(addr string) *Query { return q.add("from:", addr) }

// To filters by recipient.
func (q *Query) To(addr string) *Query { return q.add("to:", addr) }

// Subject filters by subject text.
func (q *Query) Subject(text string) *Query { return q.add("subject:", text) }

// After keeps messages received after date.
func (q *Query) After(date time.Time) *Query {
	return q.add("after:", date.Format("2006/01/02"))
}

// Before keeps messages received before date.
func (q *Query) Before(date time.Time) *Query {
	return q.add("before:", date.Format("2006/01/02"))
}

// HasAttachment keeps messages with attachments.
func (q *Query) HasAttachment() *Query { return q.add("has:", "attachment") }

// IsUnread keeps unread messages.
func (q *Query) IsUnread() *Query { return q.add("is:", "unread") }

// Text appends free text as-is.
func (q *Query) Text(text string) *Query {
	if text = strings.TrimSpace(text); text != "" {
		q.parts = append(q.parts, text)
	}
	return q
}

// If applies fn when cond holds.
func (q *Query) If(cond bool, fn func(*Query) *Query) *Query {
	if cond {
		return fn(q)
	}
	return q
}

// Build returns the query string.
func (q *Query) Build() string {
	return strings.Join(q.parts, " ")
}

// IsEmpty reports whether nothing was added.
func (q *Query) IsEmpty() bool {
	return len(q.parts) == 0
}
