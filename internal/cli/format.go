package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/korgan/korg/internal/mail"
	"github.com/korgan/korg/internal/output"
)

// MessageRow is a display struct for message list output with formatted fields
type MessageRow struct {
	ID      string
	Flags   string
	Date    string
	From    string
	Subject string
}

var messageColumns = []output.Column{
	{Name: "ID", Key: "ID"},
	{Name: "", Key: "Flags"},
	{Name: "Date", Key: "Date"},
	{Name: "From", Key: "From", Width: 30},
	{Name: "Subject", Key: "Subject", Width: 60},
}

func messageRows(items []mail.Item, now time.Time) []MessageRow {
	rows := make([]MessageRow, len(items))
	for i, it := range items {
		rows[i] = MessageRow{
			ID:      it.ID,
			Flags:   formatFlags(it),
			Date:    formatDate(it.Date, now),
			From:    it.From,
			Subject: it.Subject,
		}
	}
	return rows
}

// formatFlags renders unread as "U" and starred as "*".
func formatFlags(it mail.Item) string {
	var b strings.Builder
	if !it.Read {
		b.WriteString("U")
	}
	if it.Starred {
		b.WriteString("*")
	}
	return b.String()
}

// formatDate shows the time for today, month and day within the year and
// the full date otherwise.
func formatDate(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(now.Location())
	switch {
	case t.Year() == now.Year() && t.YearDay() == now.YearDay():
		return t.Format("15:04")
	case t.Year() == now.Year():
		return t.Format("Jan 02")
	default:
		return t.Format("2006-01-02")
	}
}

// viewFooter summarizes pagination state, e.g. "page 2, 3 unread, more available".
func viewFooter(v mail.FolderView) string {
	parts := []string{v.Folder.String()}
	switch {
	case v.Filter != "":
		parts = append(parts, fmt.Sprintf("filter %q", v.Filter))
	case v.Query != "":
		parts = append(parts, fmt.Sprintf("query %q", v.Query))
	}
	parts = append(parts, fmt.Sprintf("page %d", v.Page), fmt.Sprintf("%d unread", v.UnreadCount))
	if v.HasMore {
		parts = append(parts, "more available")
	}
	return strings.Join(parts, ", ")
}

// renderView prints a folder view: the whole document in json/yaml, a table
// plus a footer on stderr otherwise.
func renderView(fp *FormatterProvider, v mail.FolderView, now time.Time) error {
	if fp.Structured() {
		return fp.Formatter.Print(v)
	}
	if err := fp.Formatter.PrintList(messageRows(v.Items, now), messageColumns); err != nil {
		return err
	}
	fmt.Fprintln(fp.Stderr, viewFooter(v))
	if v.Error != "" {
		fp.Formatter.PrintError(fmt.Errorf("%s", v.Error))
	}
	return nil
}

// renderDetail prints one message.
func renderDetail(fp *FormatterProvider, d mail.Detail) error {
	if fp.Structured() {
		return fp.Formatter.Print(d)
	}
	w := fp.Stdout
	fmt.Fprintf(w, "From:    %s\n", d.From)
	if len(d.To) > 0 {
		fmt.Fprintf(w, "To:      %s\n", strings.Join(d.To, ", "))
	}
	if len(d.Cc) > 0 {
		fmt.Fprintf(w, "Cc:      %s\n", strings.Join(d.Cc, ", "))
	}
	fmt.Fprintf(w, "Date:    %s\n", d.Date.Local().Format(time.RFC1123))
	fmt.Fprintf(w, "Subject: %s\n", d.Subject)
	fmt.Fprintf(w, "ID:      %s\n", d.ID)
	if flags := formatFlags(d.Item); flags != "" {
		fmt.Fprintf(w, "Flags:   %s\n", flags)
	}
	fmt.Fprintln(w)
	if d.HTML {
		fmt.Fprintln(fp.Stderr, "(HTML body)")
	}
	fmt.Fprintln(w, d.Body)
	return nil
}

// bulkOutcome reports a bulk result and fails when any item failed.
func bulkOutcome(fp *FormatterProvider, verb string, res mail.BulkResult) error {
	if fp.Structured() {
		if err := fp.Formatter.Print(res); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(fp.Stderr, "%s %d of %d messages\n", verb, res.Succeeded, res.Total)
	}
	if res.Failed == 0 {
		return nil
	}
	return output.NewCLIError(output.ExitAPIError, fmt.Sprintf("%d of %d actions failed: %s", res.Failed, res.Total, strings.Join(res.FailedIDs, ", ")))
}
