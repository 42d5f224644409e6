package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueryBuild(t *testing.T) {
	q := NewQuery()
	assert.True(t, q.IsEmpty())

	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	got := q.From("bob@example.com").
		Subject("quarterly report").
		After(day).
		IsUnread().
		HasAttachment().
		To("  ").
		Text(" budget ").
		Build()

	assert.Equal(t, `from:bob@example.com subject:"quarterly report" after:2024/03/09 is:unread has:attachment budget`, got)
}

func TestQueryStripsQuotes(t *testing.T) {
	assert.Equal(t, `subject:"say hi"`, NewQuery().Subject(`say "hi"`).Build())
	assert.Equal(t, "before:2024/01/02", NewQuery().Before(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)).Build())
}

func TestQueryIf(t *testing.T) {
	q := NewQuery().If(false, (*Query).IsUnread).If(true, (*Query).HasAttachment)
	assert.Equal(t, "has:attachment", q.Build())
}
