package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seed installs a loaded context holding items.
func seed(mb *Mailbox, folder FolderID, items ...Item) {
	c := NewFolderContext(folder.Filter())
	c.Items = items
	c.UpdatedAt = baseTime
	mb.Store().Update(folder, c)
}

func TestCoordinator_MarkAsReadUpdatesEveryContext(t *testing.T) {
	gw := newFakeGateway()
	mb, _ := newTestMailbox(gw)
	seed(mb, Inbox, item("m1", 1, false), item("m2", 2, false))
	seed(mb, InboxSearch, item("m1", 1, false))
	seed(mb, Sent, item("other", 1, false))

	require.NoError(t, mb.Actions().MarkAsRead(context.Background(), "m1"))

	inbox, _ := mb.Store().Get(Inbox)
	search, _ := mb.Store().Get(InboxSearch)
	sent, _ := mb.Store().Get(Sent)
	assert.True(t, inbox.Items[0].Read)
	assert.True(t, search.Items[0].Read)
	assert.Equal(t, 1, inbox.UnreadCount)
	assert.Equal(t, 0, search.UnreadCount)
	assert.Equal(t, 1, sent.UnreadCount)
	assert.Equal(t, []string{"markRead:m1"}, gw.mutationLog())
}

func TestCoordinator_FlagFailureKeepsChangeAndSetsBanner(t *testing.T) {
	gw := newFakeGateway()
	gw.mutateErr["m1"] = &Failure{Kind: KindServer, Status: 503, Message: "try again later"}
	mb, _ := newTestMailbox(gw)
	seed(mb, Inbox, item("m1", 1, false))

	err := mb.Actions().Star(context.Background(), "m1")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindServer))

	c, _ := mb.Store().Get(Inbox)
	assert.True(t, c.Items[0].Starred)
	assert.Equal(t, "try again later", c.Err)
}

func TestCoordinator_InvalidIDRejectedBeforeStateChange(t *testing.T) {
	gw := newFakeGateway()
	mb, _ := newTestMailbox(gw)
	seed(mb, Inbox, item("m1", 1, false))

	err := mb.Actions().MarkAsRead(context.Background(), "")
	assert.True(t, IsKind(err, KindValidation))
	err = mb.Actions().TrashWithUndo(context.Background(), Inbox, "bad/id")
	assert.True(t, IsKind(err, KindValidation))

	assert.Empty(t, gw.mutationLog())
	c, _ := mb.Store().Get(Inbox)
	assert.Len(t, c.Items, 1)
}

func TestCoordinator_TrashRollbackRestoresSingleSortedCopy(t *testing.T) {
	gw := newFakeGateway()
	gw.mutateErr["m2"] = &Failure{Kind: KindNetwork, Message: "offline"}
	mb, _ := newTestMailbox(gw)
	seed(mb, Inbox, item("m1", 1, false), item("m2", 2, false), item("m3", 3, true))

	err := mb.Actions().TrashWithUndo(context.Background(), Inbox, "m2")
	require.Error(t, err)

	c, _ := mb.Store().Get(Inbox)
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(c.Items))
	assert.Equal(t, 2, c.UnreadCount)
	assert.Equal(t, "offline", c.Err)
}

func TestCoordinator_TrashSuccessExpiresTrash(t *testing.T) {
	gw := newFakeGateway()
	mb, _ := newTestMailbox(gw)
	seed(mb, Inbox, item("m1", 1, false), item("m2", 2, false))
	seed(mb, InboxSearch, item("m1", 1, false))
	seed(mb, Trash, item("old", 9, true))

	require.NoError(t, mb.Actions().TrashWithUndo(context.Background(), Inbox, "m1"))

	inbox, _ := mb.Store().Get(Inbox)
	search, _ := mb.Store().Get(InboxSearch)
	assert.Equal(t, []string{"m2"}, ids(inbox.Items))
	assert.Empty(t, search.Items)
	assert.True(t, mb.Store().IsStale(Trash))
	assert.False(t, mb.Store().IsStale(Inbox))
}

func TestCoordinator_ArchiveDropsFromInboxOnly(t *testing.T) {
	gw := newFakeGateway()
	mb, _ := newTestMailbox(gw)
	seed(mb, Inbox, item("m1", 1, false))
	seed(mb, Starred, item("m1", 1, false))

	require.NoError(t, mb.Actions().ArchiveWithUndo(context.Background(), Inbox, "m1"))

	inbox, _ := mb.Store().Get(Inbox)
	starred, _ := mb.Store().Get(Starred)
	assert.Empty(t, inbox.Items)
	assert.Equal(t, []string{"m1"}, ids(starred.Items))
}

func TestCoordinator_RemoveAndReinsert(t *testing.T) {
	gw := newFakeGateway()
	mb, _ := newTestMailbox(gw)
	seed(mb, Inbox, item("m1", 1, false), item("m2", 2, false))
	actions := mb.Actions()

	it, ok := actions.RemoveOptimistic(Inbox, "m1")
	require.True(t, ok)
	require.NoError(t, actions.MoveToTrashAPIOnly(context.Background(), "m1"))
	actions.Reinsert(Inbox, it)
	actions.Reinsert(Inbox, it)

	c, _ := mb.Store().Get(Inbox)
	assert.Equal(t, []string{"m1", "m2"}, ids(c.Items))

	_, ok = actions.RemoveOptimistic(Inbox, "missing")
	assert.False(t, ok)
}

func TestCoordinator_BulkTrashAccounting(t *testing.T) {
	gw := newFakeGateway()
	gw.mutateErr["m2"] = &Failure{Kind: KindServer, Status: 500, Message: "boom"}
	mb, _ := newTestMailbox(gw)
	seed(mb, Inbox, item("m1", 1, false), item("m2", 2, false), item("m3", 3, false), item("m4", 4, false))
	seed(mb, Trash)

	res, err := mb.Actions().BulkMoveToTrash(context.Background(), Inbox, []string{"m1", "m2", "m3", "m1"})
	require.NoError(t, err)

	assert.Equal(t, BulkResult{Total: 3, Succeeded: 2, Failed: 1, FailedIDs: []string{"m2"}}, res)
	assert.Equal(t, []string{"trash:m1", "trash:m2", "trash:m3"}, gw.mutationLog())

	c, _ := mb.Store().Get(Inbox)
	assert.Equal(t, []string{"m2", "m4"}, ids(c.Items))
	assert.Equal(t, "1 of 3 actions failed", c.Err)
	assert.True(t, mb.Store().IsStale(Trash))
}

func TestCoordinator_BulkTrashDropsFromOtherFolders(t *testing.T) {
	gw := newFakeGateway()
	gw.mutateErr["m2"] = &Failure{Kind: KindServer, Status: 500, Message: "boom"}
	mb, _ := newTestMailbox(gw)
	seed(mb, Inbox, item("m1", 1, false), item("m2", 2, false))
	seed(mb, Starred, item("m1", 1, false), item("m2", 2, false))
	seed(mb, InboxSearch, item("m1", 1, false))
	seed(mb, Trash, item("old", 9, true))

	_, err := mb.Actions().BulkMoveToTrash(context.Background(), Inbox, []string{"m1", "m2"})
	require.NoError(t, err)

	starred, _ := mb.Store().Get(Starred)
	assert.Equal(t, []string{"m2"}, ids(starred.Items), "failed item stays where it was")
	search, _ := mb.Store().Get(InboxSearch)
	assert.Empty(t, search.Items)
	trash, _ := mb.Store().Get(Trash)
	assert.Equal(t, []string{"old"}, ids(trash.Items))
}

func TestCoordinator_BulkRequiresIDs(t *testing.T) {
	mb, _ := newTestMailbox(newFakeGateway())

	_, err := mb.Actions().BulkMoveToTrash(context.Background(), Inbox, nil)
	assert.True(t, IsKind(err, KindValidation))
	_, err = mb.Actions().BulkMarkAsRead(context.Background(), []string{"ok", ""})
	assert.True(t, IsKind(err, KindValidation))
}

func TestCoordinator_BulkMarkAsUnread(t *testing.T) {
	gw := newFakeGateway()
	mb, _ := newTestMailbox(gw)
	seed(mb, Inbox, item("m1", 1, true), item("m2", 2, true))

	res, err := mb.Actions().BulkMarkAsUnread(context.Background(), []string{"m1", "m2"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Empty(t, res.FailedIDs)

	c, _ := mb.Store().Get(Inbox)
	assert.Equal(t, 2, c.UnreadCount)
}

func TestCoordinator_RestoreAndDelete(t *testing.T) {
	gw := newFakeGateway()
	mb, _ := newTestMailbox(gw)
	seed(mb, Trash, item("m1", 1, false), item("m2", 2, false))
	seed(mb, Inbox, item("m9", 1, false))
	ctx := context.Background()

	require.NoError(t, mb.Actions().Restore(ctx, "m1"))
	trash, _ := mb.Store().Get(Trash)
	assert.Equal(t, []string{"m2"}, ids(trash.Items))
	assert.True(t, mb.Store().IsStale(Inbox))

	require.NoError(t, mb.Actions().Delete(ctx, "m2"))
	trash, _ = mb.Store().Get(Trash)
	assert.Empty(t, trash.Items)
	assert.Equal(t, []string{"restore:m1", "delete:m2"}, gw.mutationLog())
}
