package cli

import (
	"context"
	"strconv"

	"github.com/korgan/korg/internal/mail"
	"github.com/korgan/korg/internal/output"
)

// FolderRow is a display struct for the folder list
type FolderRow struct {
	Name   string `json:"name" yaml:"name"`
	Filter string `json:"filter" yaml:"filter"`
	Unread string `json:"unread,omitempty" yaml:"unread,omitempty"`
}

// MailFoldersCmd lists the fixed folders and their filters
type MailFoldersCmd struct {
	Counts bool `help:"Ask the server for each folder's unread count" short:"c"`
}

// Run executes the folders command
func (cmd *MailFoldersCmd) Run(ctx context.Context, sp *ServiceProvider, fp *FormatterProvider) error {
	rows := make([]FolderRow, len(mail.BaseFolders))
	for i, f := range mail.BaseFolders {
		rows[i] = FolderRow{Name: f.String(), Filter: f.Filter().Describe()}
	}

	columns := []output.Column{
		{Name: "Folder", Key: "Name"},
		{Name: "Filter", Key: "Filter"},
	}
	if cmd.Counts {
		mb, err := sp.Mailbox(ctx)
		if err != nil {
			return err
		}
		for i, f := range mail.BaseFolders {
			sum, err := mb.RemoteUnread(ctx, f)
			if err != nil {
				return err
			}
			rows[i].Unread = strconv.Itoa(sum.Unread)
		}
		columns = append(columns, output.Column{Name: "Unread", Key: "Unread"})
	}
	return fp.Formatter.PrintList(rows, columns)
}

// FolderNames lists every folder id for completion.
func FolderNames() []string {
	names := make([]string, 0, 2*len(mail.BaseFolders))
	for _, f := range mail.BaseFolders {
		names = append(names, f.String(), f.Search().String())
	}
	return names
}
