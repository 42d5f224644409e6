package mail

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// Coordinator applies single-item and bulk mutations optimistically: the
// folder store changes before the gateway confirms.
//
// Failure policy: every action returns a *Failure when the gateway call
// fails. Flag changes (read, unread, star, unstar) are not rolled back; the
// failure is also written to the active folder's error banner. Removals
// (trash, archive) are rolled back by reinserting the item.
type Coordinator struct {
	store *Store
	exec  *Executor
	log   *zerolog.Logger
}

// BulkResult summarizes a bulk action. Succeeded+Failed == Total and
// FailedIDs holds exactly Failed ids.
type BulkResult struct {
	Total     int      `json:"totalCount" yaml:"totalCount"`
	Succeeded int      `json:"successCount" yaml:"successCount"`
	Failed    int      `json:"failedCount" yaml:"failedCount"`
	FailedIDs []string `json:"failedMailIds" yaml:"failedMailIds"`
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(store *Store, exec *Executor, log *zerolog.Logger) *Coordinator {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Coordinator{store: store, exec: exec, log: log}
}

// MarkAsRead marks the item read in every cached folder, then on the gateway.
func (c *Coordinator) MarkAsRead(ctx context.Context, id string) error {
	return c.setFlag(ctx, id, OpMarkRead, func(it *Item) { it.Read = true })
}

// MarkAsUnread marks the item unread in every cached folder, then on the gateway.
func (c *Coordinator) MarkAsUnread(ctx context.Context, id string) error {
	return c.setFlag(ctx, id, OpMarkUnread, func(it *Item) { it.Read = false })
}

// Star stars the item in every cached folder, then on the gateway.
func (c *Coordinator) Star(ctx context.Context, id string) error {
	return c.setFlag(ctx, id, OpStar, func(it *Item) { it.Starred = true })
}

// Unstar unstars the item in every cached folder, then on the gateway.
func (c *Coordinator) Unstar(ctx context.Context, id string) error {
	return c.setFlag(ctx, id, OpUnstar, func(it *Item) { it.Starred = false })
}

func (c *Coordinator) setFlag(ctx context.Context, id string, op Operation, set func(*Item)) error {
	if err := ValidateID(string(op), id); err != nil {
		return err
	}
	c.applyFlag([]string{id}, set)

	if err := c.exec.Execute(ctx, id, op); err != nil {
		c.log.Warn().Err(err).Str("id", id).Str("op", string(op)).Msg("mail action failed")
		c.banner(err)
		return err
	}
	return nil
}

// applyFlag updates every cached copy of the ids in one store transaction.
func (c *Coordinator) applyFlag(ids []string, set func(*Item)) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	c.store.Apply(func(_ FolderID, fc FolderContext) (FolderContext, bool) {
		changed := false
		for i := range fc.Items {
			if want[fc.Items[i].ID] {
				set(&fc.Items[i])
				changed = true
			}
		}
		return fc, changed
	})
}

// MoveToTrashAPIOnly trashes the item on the gateway without touching local
// state. Callers remove the item first with RemoveOptimistic and reinsert it
// with Reinsert when this returns an error.
func (c *Coordinator) MoveToTrashAPIOnly(ctx context.Context, id string) error {
	return c.exec.Execute(ctx, id, OpTrash)
}

// ArchiveAPIOnly archives the item on the gateway without touching local state.
func (c *Coordinator) ArchiveAPIOnly(ctx context.Context, id string) error {
	return c.exec.Execute(ctx, id, OpArchive)
}

// RemoveOptimistic removes the item from the folder's visible list and
// returns it so the caller can undo.
func (c *Coordinator) RemoveOptimistic(folder FolderID, id string) (Item, bool) {
	var removed Item
	_, ok := c.store.Modify(folder, func(fc FolderContext, ok bool) (FolderContext, bool) {
		if !ok {
			return fc, false
		}
		out, it, found := fc.withoutItem(id)
		removed = it
		return out, found
	})
	return removed, ok
}

// Reinsert puts an item back into the folder exactly once, keeping the list
// ordered newest first. It is a no-op for folders that are not cached.
func (c *Coordinator) Reinsert(folder FolderID, item Item) {
	c.store.Modify(folder, func(fc FolderContext, ok bool) (FolderContext, bool) {
		if !ok {
			return fc, false
		}
		return fc.withItem(item), true
	})
}

// TrashWithUndo runs the full optimistic trash sequence for an item shown in
// folder: remove, call the gateway, reinsert on failure.
func (c *Coordinator) TrashWithUndo(ctx context.Context, folder FolderID, id string) error {
	return c.removeWithUndo(ctx, folder, id, OpTrash)
}

// ArchiveWithUndo runs the full optimistic archive sequence for an item
// shown in folder.
func (c *Coordinator) ArchiveWithUndo(ctx context.Context, folder FolderID, id string) error {
	return c.removeWithUndo(ctx, folder, id, OpArchive)
}

func (c *Coordinator) removeWithUndo(ctx context.Context, folder FolderID, id string, op Operation) error {
	if err := ValidateID(string(op), id); err != nil {
		return err
	}
	item, removed := c.RemoveOptimistic(folder, id)

	if err := c.exec.Execute(ctx, id, op); err != nil {
		if removed {
			c.Reinsert(folder, item)
		}
		c.log.Warn().Err(err).Str("id", id).Str("op", string(op)).Msg("rolled back optimistic remove")
		recordBanner(c.store, folder, err)
		return err
	}

	c.dropEverywhere(id, func(f FolderID) bool {
		if op == OpArchive {
			return f.Base() != Inbox
		}
		return f.Base() == Trash
	})
	c.expire(destination(op)...)
	return nil
}

// Restore moves the item out of trash.
func (c *Coordinator) Restore(ctx context.Context, id string) error {
	if err := c.exec.Execute(ctx, id, OpRestore); err != nil {
		c.banner(err)
		return err
	}
	c.dropEverywhere(id, func(f FolderID) bool { return f.Base() != Trash })
	c.expire(Inbox, Inbox.Search())
	return nil
}

// Delete permanently deletes the item and drops it from every cached folder.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	if err := c.exec.Execute(ctx, id, OpDelete); err != nil {
		c.banner(err)
		return err
	}
	c.dropEverywhere(id, func(FolderID) bool { return false })
	return nil
}

// EmptyTrash deletes everything in trash. No local state changes; callers
// refresh the trash folder afterwards.
func (c *Coordinator) EmptyTrash(ctx context.Context) error {
	if err := c.exec.EmptyTrash(ctx); err != nil {
		c.banner(err)
		return err
	}
	return nil
}

// BulkMoveToTrash removes all items from folder up front, then trashes them
// one at a time. Items whose call fails are reinserted.
func (c *Coordinator) BulkMoveToTrash(ctx context.Context, folder FolderID, ids []string) (BulkResult, error) {
	ids, err := uniqueIDs("bulkTrash", ids)
	if err != nil {
		return BulkResult{}, err
	}
	removed := make(map[string]Item, len(ids))
	for _, id := range ids {
		if it, ok := c.RemoveOptimistic(folder, id); ok {
			removed[id] = it
		}
	}

	res := c.sequential(ctx, ids, OpTrash)
	for _, id := range res.FailedIDs {
		if it, ok := removed[id]; ok {
			c.Reinsert(folder, it)
		}
	}
	for _, id := range ids {
		if !slices.Contains(res.FailedIDs, id) {
			c.dropEverywhere(id, func(f FolderID) bool { return f.Base() == Trash })
		}
	}
	if res.Failed > 0 {
		recordBanner(c.store, folder, bulkFailure("bulkTrash", res))
	}
	if res.Succeeded > 0 {
		c.expire(Trash, Trash.Search())
	}
	return res, nil
}

// BulkMarkAsRead marks all items read up front, then on the gateway one at a time.
func (c *Coordinator) BulkMarkAsRead(ctx context.Context, ids []string) (BulkResult, error) {
	return c.bulkFlag(ctx, ids, OpMarkRead, func(it *Item) { it.Read = true })
}

// BulkMarkAsUnread marks all items unread up front, then on the gateway one at a time.
func (c *Coordinator) BulkMarkAsUnread(ctx context.Context, ids []string) (BulkResult, error) {
	return c.bulkFlag(ctx, ids, OpMarkUnread, func(it *Item) { it.Read = false })
}

func (c *Coordinator) bulkFlag(ctx context.Context, ids []string, op Operation, set func(*Item)) (BulkResult, error) {
	ids, err := uniqueIDs("bulk"+string(op), ids)
	if err != nil {
		return BulkResult{}, err
	}
	c.applyFlag(ids, set)

	res := c.sequential(ctx, ids, op)
	if res.Failed > 0 {
		c.banner(bulkFailure("bulk"+string(op), res))
	}
	return res, nil
}

// sequential issues one call per id; call N starts after call N-1 returned.
func (c *Coordinator) sequential(ctx context.Context, ids []string, op Operation) BulkResult {
	res := BulkResult{Total: len(ids), FailedIDs: []string{}}
	for _, id := range ids {
		if err := c.exec.Execute(ctx, id, op); err != nil {
			c.log.Debug().Err(err).Str("id", id).Str("op", string(op)).Msg("bulk item failed")
			res.Failed++
			res.FailedIDs = append(res.FailedIDs, id)
			continue
		}
		res.Succeeded++
	}
	return res
}

// dropEverywhere removes id from every cached folder except those keep accepts.
func (c *Coordinator) dropEverywhere(id string, keep func(FolderID) bool) {
	c.store.Apply(func(f FolderID, fc FolderContext) (FolderContext, bool) {
		if keep(f) {
			return fc, false
		}
		out, _, found := fc.withoutItem(id)
		return out, found
	})
}

// expire marks folders stale so the next visit refetches them.
func (c *Coordinator) expire(folders ...FolderID) {
	for _, f := range folders {
		c.store.Modify(f, func(fc FolderContext, ok bool) (FolderContext, bool) {
			if !ok {
				return fc, false
			}
			fc.UpdatedAt = time.Time{}
			return fc, true
		})
	}
}

func (c *Coordinator) banner(err error) {
	recordBanner(c.store, c.store.Active(), err)
}

func destination(op Operation) []FolderID {
	if op == OpTrash {
		return []FolderID{Trash, Trash.Search()}
	}
	return nil
}

// recordBanner sets the folder's error message without touching loading flags.
func recordBanner(store *Store, folder FolderID, err error) {
	f := AsFailure("", err)
	store.Modify(folder, func(fc FolderContext, ok bool) (FolderContext, bool) {
		if !ok {
			return fc, false
		}
		fc.Err = f.Message
		return fc, true
	})
}

func bulkFailure(op string, res BulkResult) *Failure {
	return &Failure{
		Kind:    KindServer,
		Op:      op,
		Message: fmt.Sprintf("%d of %d actions failed", res.Failed, res.Total),
	}
}

// uniqueIDs validates ids and drops duplicates, keeping first occurrences.
func uniqueIDs(op string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, NewValidation(op, "at least one mail id is required")
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if err := ValidateID(op, id); err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}
