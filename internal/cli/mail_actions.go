package cli

import (
	"context"
	"fmt"

	"github.com/korgan/korg/internal/mail"
	"github.com/korgan/korg/internal/output"
)

// MailReadCmd marks messages read
type MailReadCmd struct {
	IDs []string `arg:"" name:"id" help:"Message IDs"`
}

// Run executes the read command
func (cmd *MailReadCmd) Run(ctx context.Context, sp *ServiceProvider, fp *FormatterProvider) error {
	mb, err := sp.Mailbox(ctx)
	if err != nil {
		return err
	}
	if len(cmd.IDs) == 1 {
		return done(fp, mb.Actions().MarkAsRead(ctx, cmd.IDs[0]), "Marked %s read", cmd.IDs[0])
	}
	res, err := mb.Actions().BulkMarkAsRead(ctx, cmd.IDs)
	if err != nil {
		return err
	}
	return bulkOutcome(fp, "Marked read", res)
}

// MailUnreadCmd marks messages unread
type MailUnreadCmd struct {
	IDs []string `arg:"" name:"id" help:"Message IDs"`
}

// Run executes the unread command
func (cmd *MailUnreadCmd) Run(ctx context.Context, sp *ServiceProvider, fp *FormatterProvider) error {
	mb, err := sp.Mailbox(ctx)
	if err != nil {
		return err
	}
	if len(cmd.IDs) == 1 {
		return done(fp, mb.Actions().MarkAsUnread(ctx, cmd.IDs[0]), "Marked %s unread", cmd.IDs[0])
	}
	res, err := mb.Actions().BulkMarkAsUnread(ctx, cmd.IDs)
	if err != nil {
		return err
	}
	return bulkOutcome(fp, "Marked unread", res)
}

// MailStarCmd stars a message
type MailStarCmd struct {
	ID string `arg:"" help:"Message ID"`
}

// Run executes the star command
func (cmd *MailStarCmd) Run(ctx context.Context, sp *ServiceProvider, fp *FormatterProvider) error {
	mb, err := sp.Mailbox(ctx)
	if err != nil {
		return err
	}
	return done(fp, mb.Actions().Star(ctx, cmd.ID), "Starred %s", cmd.ID)
}

// MailUnstarCmd removes a star
type MailUnstarCmd struct {
	ID string `arg:"" help:"Message ID"`
}

// Run executes the unstar command
func (cmd *MailUnstarCmd) Run(ctx context.Context, sp *ServiceProvider, fp *FormatterProvider) error {
	mb, err := sp.Mailbox(ctx)
	if err != nil {
		return err
	}
	return done(fp, mb.Actions().Unstar(ctx, cmd.ID), "Unstarred %s", cmd.ID)
}

// MailTrashCmd moves messages to trash
type MailTrashCmd struct {
	IDs    []string `arg:"" name:"id" help:"Message IDs"`
	Folder string   `help:"Folder the messages are shown in" default:"inbox" short:"f" predictor:"folder"`
}

// Run executes the trash command
func (cmd *MailTrashCmd) Run(ctx context.Context, sp *ServiceProvider, fp *FormatterProvider, globals *Globals) error {
	folder, err := mail.ParseFolder(cmd.Folder)
	if err != nil {
		return err
	}
	if globals.DryRun {
		fmt.Fprintf(fp.Stderr, "Would move %d message(s) to trash\n", len(cmd.IDs))
		return nil
	}
	mb, err := sp.Mailbox(ctx)
	if err != nil {
		return err
	}
	if len(cmd.IDs) == 1 {
		return done(fp, mb.Actions().TrashWithUndo(ctx, folder, cmd.IDs[0]), "Moved %s to trash", cmd.IDs[0])
	}
	res, err := mb.Actions().BulkMoveToTrash(ctx, folder, cmd.IDs)
	if err != nil {
		return err
	}
	return bulkOutcome(fp, "Moved to trash", res)
}

// MailArchiveCmd archives a message
type MailArchiveCmd struct {
	ID     string `arg:"" help:"Message ID"`
	Folder string `help:"Folder the message is shown in" default:"inbox" short:"f" predictor:"folder"`
}

// Run executes the archive command
func (cmd *MailArchiveCmd) Run(ctx context.Context, sp *ServiceProvider, fp *FormatterProvider) error {
	folder, err := mail.ParseFolder(cmd.Folder)
	if err != nil {
		return err
	}
	mb, err := sp.Mailbox(ctx)
	if err != nil {
		return err
	}
	return done(fp, mb.Actions().ArchiveWithUndo(ctx, folder, cmd.ID), "Archived %s", cmd.ID)
}

// MailRestoreCmd moves a message out of trash
type MailRestoreCmd struct {
	ID string `arg:"" help:"Message ID"`
}

// Run executes the restore command
func (cmd *MailRestoreCmd) Run(ctx context.Context, sp *ServiceProvider, fp *FormatterProvider) error {
	mb, err := sp.Mailbox(ctx)
	if err != nil {
		return err
	}
	return done(fp, mb.Actions().Restore(ctx, cmd.ID), "Restored %s", cmd.ID)
}

// MailDeleteCmd permanently deletes a message
type MailDeleteCmd struct {
	ID    string `arg:"" help:"Message ID"`
	Force bool   `help:"Confirm permanent deletion"`
}

// Run executes the delete command
func (cmd *MailDeleteCmd) Run(ctx context.Context, sp *ServiceProvider, fp *FormatterProvider, globals *Globals) error {
	if err := requireForce(cmd.Force, globals, "Deleting a message"); err != nil {
		return err
	}
	if err := mail.ValidateID("delete", cmd.ID); err != nil {
		return err
	}
	if globals.DryRun {
		fmt.Fprintf(fp.Stderr, "Would permanently delete %s\n", cmd.ID)
		return nil
	}
	mb, err := sp.Mailbox(ctx)
	if err != nil {
		return err
	}
	return done(fp, mb.Actions().Delete(ctx, cmd.ID), "Deleted %s", cmd.ID)
}

// MailEmptyTrashCmd permanently deletes everything in trash
type MailEmptyTrashCmd struct {
	Force bool `help:"Confirm permanent deletion"`
}

// Run executes the empty-trash command
func (cmd *MailEmptyTrashCmd) Run(ctx context.Context, sp *ServiceProvider, fp *FormatterProvider, globals *Globals) error {
	if err := requireForce(cmd.Force, globals, "Emptying trash"); err != nil {
		return err
	}
	if globals.DryRun {
		fmt.Fprintln(fp.Stderr, "Would permanently delete everything in trash")
		return nil
	}
	mb, err := sp.Mailbox(ctx)
	if err != nil {
		return err
	}
	return done(fp, mb.EmptyTrash(ctx), "Trash emptied")
}

// requireForce refuses destructive operations without --force.
func requireForce(force bool, globals *Globals, what string) error {
	if force || globals.Force || globals.DryRun {
		return nil
	}
	return output.NewCLIError(output.ExitUsage, what+" cannot be undone").
		WithHint("Re-run with --force, or --dry-run to preview")
}

// done prints a confirmation to stderr when err is nil and returns err.
func done(fp *FormatterProvider, err error, format string, args ...any) error {
	if err != nil {
		return err
	}
	fmt.Fprintf(fp.Stderr, format+"\n", args...)
	return nil
}
