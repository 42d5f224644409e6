package mail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_UpdateRecomputesUnread(t *testing.T) {
	s := NewStore(0, nil)
	c := NewFolderContext(Inbox.Filter())
	c.Items = []Item{item("a", 1, false), item("b", 2, true), item("c", 3, false)}
	c.UnreadCount = 42

	s.Update(Inbox, c)

	got, ok := s.Get(Inbox)
	require.True(t, ok)
	assert.Equal(t, 2, got.UnreadCount)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := NewStore(0, nil)
	c := NewFolderContext(Inbox.Filter())
	c.Items = []Item{item("a", 1, false)}
	s.Update(Inbox, c)

	got, _ := s.Get(Inbox)
	got.Items[0].Read = true
	got.Labels[0] = "MUTATED"

	again, _ := s.Get(Inbox)
	assert.False(t, again.Items[0].Read)
	assert.Equal(t, []string{LabelInbox}, again.Labels)
}

func TestStore_PageNeverBelowOne(t *testing.T) {
	s := NewStore(0, nil)
	s.Update(Sent, FolderContext{})

	got, _ := s.Get(Sent)
	assert.Equal(t, 1, got.Page)
}

func TestStore_IsStale(t *testing.T) {
	clock := &fakeClock{now: baseTime}
	s := NewStore(time.Minute, clock.Now)

	assert.True(t, s.IsStale(Inbox), "never loaded")

	c := NewFolderContext(Inbox.Filter())
	s.Update(Inbox, c)
	assert.True(t, s.IsStale(Inbox), "never completed a load")

	c.UpdatedAt = clock.Now()
	s.Update(Inbox, c)
	assert.False(t, s.IsStale(Inbox))

	clock.Advance(59 * time.Second)
	assert.False(t, s.IsStale(Inbox))

	clock.Advance(2 * time.Second)
	assert.True(t, s.IsStale(Inbox))
}

func TestStore_Clear(t *testing.T) {
	s := NewStore(0, nil)
	for _, f := range []FolderID{Inbox, Sent, Trash} {
		s.Update(f, NewFolderContext(f.Filter()))
	}

	s.Clear(Sent)
	_, ok := s.Get(Sent)
	assert.False(t, ok)
	_, ok = s.Get(Inbox)
	assert.True(t, ok)

	s.Clear()
	assert.Empty(t, s.Snapshot().Contexts)
}

func TestStore_ApplyCommitsAllChanges(t *testing.T) {
	s := NewStore(0, nil)
	for _, f := range []FolderID{Inbox, InboxSearch, Sent} {
		c := NewFolderContext(f.Filter())
		c.Items = []Item{item("x", 1, false)}
		s.Update(f, c)
	}

	changed := s.Apply(func(f FolderID, c FolderContext) (FolderContext, bool) {
		if f.Base() != Inbox {
			return c, false
		}
		c.Items[0].Read = true
		return c, true
	})

	assert.ElementsMatch(t, []FolderID{Inbox, InboxSearch}, changed)
	snap := s.Snapshot()
	assert.Equal(t, 0, snap.Contexts[Inbox].UnreadCount)
	assert.Equal(t, 0, snap.Contexts[InboxSearch].UnreadCount)
	assert.Equal(t, 1, snap.Contexts[Sent].UnreadCount)
}

func TestStore_ModifySkipsWriteWhenDeclined(t *testing.T) {
	s := NewStore(0, nil)

	_, wrote := s.Modify(Inbox, func(c FolderContext, ok bool) (FolderContext, bool) {
		assert.False(t, ok)
		return c, false
	})
	assert.False(t, wrote)
	_, ok := s.Get(Inbox)
	assert.False(t, ok)
}

func TestStore_ActiveAndSearchMode(t *testing.T) {
	s := NewStore(0, nil)
	assert.Equal(t, Inbox, s.Active())
	assert.False(t, s.InSearchMode())

	s.SetActive(StarredSearch)
	assert.True(t, s.InSearchMode())
	assert.True(t, s.Snapshot().InSearchMode())
}

func TestTokenStack(t *testing.T) {
	var s TokenStack
	_, _, ok := s.Pop()
	assert.False(t, ok)

	s = s.Push("a").Push("b")
	top, ok := s.Top()
	require.True(t, ok)
	assert.Equal(t, "b", top)

	rest, popped, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, "b", popped)
	assert.Equal(t, TokenStack{"a"}, rest)
	assert.Equal(t, 2, s.Len(), "pop does not modify the receiver")
}
