package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/korgan/korg/internal/mail"
	"github.com/korgan/korg/internal/output"
)

// MailShellCmd starts an interactive session that keeps folder state
// between commands.
type MailShellCmd struct {
	Folder string `help:"Folder to open first" default:"inbox" short:"f" predictor:"folder"`
}

// Run executes the shell command
func (cmd *MailShellCmd) Run(ctx context.Context, globals *Globals, sp *ServiceProvider, fp *FormatterProvider) error {
	folder, err := mail.ParseFolder(cmd.Folder)
	if err != nil {
		return err
	}
	mb, err := sp.Mailbox(ctx)
	if err != nil {
		return err
	}
	sh := NewShell(mb, fp, os.Stdin)
	sh.Prompt = true
	sh.Force = globals.Force
	return sh.Run(ctx, folder)
}

// Shell reads one command per line and applies it to a mailbox.
type Shell struct {
	Prompt bool
	// Force skips the -f requirement of delete and empty-trash.
	Force bool

	mb  *mail.Mailbox
	fp  *FormatterProvider
	in  io.Reader
	now func() time.Time
}

// NewShell creates a shell over mb reading commands from in.
func NewShell(mb *mail.Mailbox, fp *FormatterProvider, in io.Reader) *Shell {
	return &Shell{mb: mb, fp: fp, in: in, now: time.Now}
}

var errQuit = errors.New("quit")

const shellHelp = `commands:
  open FOLDER          switch folder (inbox, starred, sent, drafts, spam, trash, important)
  ls                   show the current page
  refresh              reload the first page
  next | prev          move between pages
  search [-h] QUERY    search within the folder (-h highlights matches)
  back                 leave search mode
  show ID              print a message
  read ID... | unread ID...
  star ID | unstar ID
  trash ID... | archive ID | restore ID
  delete -f ID | empty-trash -f
  count                server unread count of the folder
  quit`

// Run opens folder and processes commands until quit or end of input.
func (s *Shell) Run(ctx context.Context, folder mail.FolderID) error {
	if err := s.exec(ctx, "open", []string{folder.String()}); err != nil {
		s.report(err)
	}

	scanner := bufio.NewScanner(s.in)
	for {
		if s.Prompt {
			fmt.Fprintf(s.fp.Stderr, "korg:%s> ", s.mb.Active())
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := s.exec(ctx, strings.ToLower(fields[0]), fields[1:])
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			s.report(err)
		}
	}
}

func (s *Shell) report(err error) {
	cliErr := output.FromError(err)
	s.fp.Formatter.PrintError(cliErr)
	if cliErr.Hint != "" {
		s.fp.Formatter.PrintHint(cliErr.Hint)
	}
}

func (s *Shell) render() error {
	return renderView(s.fp, s.mb.ActiveView(), s.now())
}

func (s *Shell) ack(err error, format string, args ...any) error {
	return done(s.fp, err, format, args...)
}

func (s *Shell) exec(ctx context.Context, name string, args []string) error {
	mb := s.mb
	actions := mb.Actions()

	switch name {
	case "help", "?":
		fmt.Fprintln(s.fp.Stderr, shellHelp)
		return nil
	case "quit", "exit", "q":
		return errQuit
	case "ls", "view":
		return s.render()
	case "open", "cd":
		if err := needArgs(name, args, 1); err != nil {
			return err
		}
		folder, err := mail.ParseFolder(args[0])
		if err != nil {
			return err
		}
		if err := mb.Open(ctx, folder); err != nil {
			return err
		}
		return s.render()
	case "refresh":
		if err := mb.Refresh(ctx, mb.Active()); err != nil {
			return err
		}
		return s.render()
	case "next", "n":
		if err := mb.NextPage(ctx); err != nil {
			return err
		}
		return s.render()
	case "prev", "p":
		if err := mb.PreviousPage(ctx); err != nil {
			return err
		}
		return s.render()
	case "search", "/":
		highlight := len(args) > 0 && args[0] == "-h"
		if highlight {
			args = args[1:]
		}
		if err := mb.Search(ctx, strings.Join(args, " "), highlight); err != nil {
			return err
		}
		return s.render()
	case "back":
		if !mb.ExitSearch() {
			fmt.Fprintln(s.fp.Stderr, "not searching")
			return nil
		}
		return s.render()
	case "show", "get":
		if err := needArgs(name, args, 1); err != nil {
			return err
		}
		d, err := mb.Message(ctx, args[0])
		if err != nil {
			return err
		}
		return renderDetail(s.fp, d)
	case "count":
		sum, err := mb.RemoteUnread(ctx, mb.Active())
		if err != nil {
			return err
		}
		fmt.Fprintf(s.fp.Stdout, "%d unread in %s\n", sum.Unread, mb.Active())
		return nil
	case "read", "unread":
		if err := needArgs(name, args, 1); err != nil {
			return err
		}
		if name == "read" {
			res, err := actions.BulkMarkAsRead(ctx, args)
			if err != nil {
				return err
			}
			return bulkOutcome(s.fp, "Marked read", res)
		}
		res, err := actions.BulkMarkAsUnread(ctx, args)
		if err != nil {
			return err
		}
		return bulkOutcome(s.fp, "Marked unread", res)
	case "star":
		if err := needArgs(name, args, 1); err != nil {
			return err
		}
		return s.ack(actions.Star(ctx, args[0]), "Starred %s", args[0])
	case "unstar":
		if err := needArgs(name, args, 1); err != nil {
			return err
		}
		return s.ack(actions.Unstar(ctx, args[0]), "Unstarred %s", args[0])
	case "trash":
		if err := needArgs(name, args, 1); err != nil {
			return err
		}
		res, err := actions.BulkMoveToTrash(ctx, mb.Active(), args)
		if err != nil {
			return err
		}
		return bulkOutcome(s.fp, "Moved to trash", res)
	case "archive":
		if err := needArgs(name, args, 1); err != nil {
			return err
		}
		return s.ack(actions.ArchiveWithUndo(ctx, mb.Active(), args[0]), "Archived %s", args[0])
	case "restore":
		if err := needArgs(name, args, 1); err != nil {
			return err
		}
		return s.ack(actions.Restore(ctx, args[0]), "Restored %s", args[0])
	case "delete":
		args, err := s.forced(name, args)
		if err != nil {
			return err
		}
		if err := needArgs(name, args, 1); err != nil {
			return err
		}
		return s.ack(actions.Delete(ctx, args[0]), "Deleted %s", args[0])
	case "empty-trash":
		if _, err := s.forced(name, args); err != nil {
			return err
		}
		return s.ack(mb.EmptyTrash(ctx), "Trash emptied")
	}
	return mail.NewValidation(name, "unknown command, try help")
}

// forced strips -f from args and refuses the command when neither -f nor
// the shell's Force is set.
func (s *Shell) forced(name string, args []string) ([]string, error) {
	force := s.Force
	rest := make([]string, 0, len(args))
	for _, a := range args {
		if a == "-f" || a == "--force" {
			force = true
			continue
		}
		rest = append(rest, a)
	}
	if !force {
		return nil, output.NewCLIError(output.ExitUsage, name+" cannot be undone").
			WithHint("Repeat with -f: " + strings.TrimSpace(name+" -f "+strings.Join(rest, " ")))
	}
	return rest, nil
}

func needArgs(name string, args []string, n int) error {
	if len(args) < n {
		return mail.NewValidation(name, "expected at least %d argument(s)", n)
	}
	return nil
}
