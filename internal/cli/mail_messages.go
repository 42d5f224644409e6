package cli

import (
	"context"
	"time"

	"github.com/korgan/korg/internal/gateway"
	"github.com/korgan/korg/internal/mail"
)

// MailListCmd lists one page of a folder
type MailListCmd struct {
	Folder    string `help:"Folder to list" default:"inbox" short:"f" predictor:"folder"`
	Page      int    `help:"Page number, 1 is the newest" default:"1" short:"p"`
	Search    string `help:"Search text within the folder" short:"s"`
	From      string `help:"Only messages from this sender"`
	Subject   string `help:"Only messages with this subject"`
	Unread    bool   `help:"Only unread messages" short:"u"`
	Highlight bool   `help:"Ask the server to highlight matches"`
}

// query combines the filter flags into one search string.
func (cmd *MailListCmd) query() string {
	return gateway.NewQuery().
		From(cmd.From).
		Subject(cmd.Subject).
		Text(cmd.Search).
		If(cmd.Unread, (*gateway.Query).IsUnread).
		Build()
}

// Run executes the list command
func (cmd *MailListCmd) Run(ctx context.Context, sp *ServiceProvider, fp *FormatterProvider) error {
	folder, err := mail.ParseFolder(cmd.Folder)
	if err != nil {
		return err
	}
	if cmd.Page < 1 {
		return mail.NewValidation("list", "page must be at least 1")
	}

	mb, err := sp.Mailbox(ctx)
	if err != nil {
		return err
	}
	if err := listPage(ctx, mb, folder, cmd.query(), cmd.Highlight, cmd.Page); err != nil {
		return err
	}
	return renderView(fp, mb.ActiveView(), time.Now())
}

// listPage loads folder (searched with query when set) and walks forward
// to page.
func listPage(ctx context.Context, mb *mail.Mailbox, folder mail.FolderID, query string, highlight bool, page int) error {
	if query != "" {
		mb.Store().SetActive(folder.Base())
		if err := mb.Search(ctx, query, highlight); err != nil {
			return err
		}
	} else {
		if folder.IsSearch() {
			return mail.NewValidation("list", "%s needs --search", folder)
		}
		if err := mb.Open(ctx, folder); err != nil {
			return err
		}
	}

	for p := 1; p < page; p++ {
		if !mb.ActiveView().HasMore {
			return mail.NewValidation("list", "page %d is past the last page (%d)", page, p)
		}
		if err := mb.NextPage(ctx); err != nil {
			return err
		}
	}
	return nil
}

// MailGetCmd shows one message
type MailGetCmd struct {
	ID       string `arg:"" help:"Message ID"`
	MarkRead bool   `help:"Also mark the message read" name:"mark-read"`
}

// Run executes the get command
func (cmd *MailGetCmd) Run(ctx context.Context, sp *ServiceProvider, fp *FormatterProvider) error {
	mb, err := sp.Mailbox(ctx)
	if err != nil {
		return err
	}
	d, err := mb.Message(ctx, cmd.ID)
	if err != nil {
		return err
	}
	if cmd.MarkRead && !d.Read {
		if err := mb.Actions().MarkAsRead(ctx, cmd.ID); err != nil {
			return err
		}
		d.Read = true
	}
	return renderDetail(fp, d)
}
