package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/termenv"
	"golang.org/x/term"
	"gopkg.in/yaml.v2"
)

// Formatter is the interface for output formatting
type Formatter interface {
	Print(data any) error
	PrintList(items any, columns []Column) error
	PrintError(err error)
	PrintHint(msg string)
}

// Column defines a column for table/list output
type Column struct {
	Name  string // Display name
	Key   string // Struct field name or map key
	Width int    // Width for rich mode (0 = auto)
}

// ResolveMode turns "auto" (or "") into rich on a terminal and plain elsewhere.
func ResolveMode(mode string, tty bool) string {
	if mode != "" && mode != "auto" {
		return mode
	}
	if tty {
		return "rich"
	}
	return "plain"
}

// StdoutIsTerminal reports whether stdout is attached to a terminal.
func StdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// New creates a formatter for the specified mode writing to stdout and stderr.
func New(mode string) Formatter {
	return NewWithWriters(ResolveMode(mode, StdoutIsTerminal()), os.Stdout, os.Stderr)
}

// NewWithWriters creates a formatter writing results to out and diagnostics to errw.
func NewWithWriters(mode string, out, errw io.Writer) Formatter {
	switch mode {
	case "json":
		return &jsonFormatter{out: out, errw: errw}
	case "yaml":
		return &yamlFormatter{out: out, errw: errw}
	case "rich":
		return &richFormatter{out: out, errw: errw, profile: termenv.ColorProfile()}
	default:
		return &plainFormatter{out: out, errw: errw}
	}
}

// NewJSON creates a JSON formatter with optional results-only mode
func NewJSON(resultsOnly bool) Formatter {
	return &jsonFormatter{out: os.Stdout, errw: os.Stderr, resultsOnly: resultsOnly}
}

func listEnvelope(items any) map[string]any {
	v := reflect.ValueOf(items)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	count := 0
	if v.Kind() == reflect.Slice {
		count = v.Len()
	}
	return map[string]any{
		"data":  items,
		"count": count,
	}
}

// jsonFormatter outputs indented JSON
type jsonFormatter struct {
	out, errw   io.Writer
	resultsOnly bool
}

func (f *jsonFormatter) Print(data any) error {
	enc := json.NewEncoder(f.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (f *jsonFormatter) PrintList(items any, columns []Column) error {
	if f.resultsOnly {
		return f.Print(items)
	}
	return f.Print(listEnvelope(items))
}

func (f *jsonFormatter) PrintError(err error) {
	enc := json.NewEncoder(f.errw)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]string{"error": err.Error()})
}

// PrintHint is silent so stderr stays machine readable.
func (f *jsonFormatter) PrintHint(msg string) {}

// yamlFormatter outputs YAML documents
type yamlFormatter struct {
	out, errw io.Writer
}

func (f *yamlFormatter) Print(data any) error {
	b, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	_, err = f.out.Write(b)
	return err
}

func (f *yamlFormatter) PrintList(items any, columns []Column) error {
	return f.Print(listEnvelope(items))
}

func (f *yamlFormatter) PrintError(err error) {
	b, _ := yaml.Marshal(map[string]string{"error": err.Error()})
	_, _ = f.errw.Write(b)
}

func (f *yamlFormatter) PrintHint(msg string) {}

// plainFormatter outputs tab-separated values
type plainFormatter struct {
	out, errw io.Writer
}

func (f *plainFormatter) Print(data any) error {
	fields, ok := structFields(data)
	if !ok {
		fmt.Fprintf(f.out, "%v\n", data)
		return nil
	}
	for _, kv := range fields {
		fmt.Fprintf(f.out, "%s\t%s\n", kv[0], kv[1])
	}
	return nil
}

func (f *plainFormatter) PrintList(items any, columns []Column) error {
	rows, err := tableRows(items, columns)
	if err != nil {
		return err
	}
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.Name
	}
	fmt.Fprintln(f.out, strings.Join(headers, "\t"))
	for _, row := range rows {
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = row[col.Key]
		}
		fmt.Fprintln(f.out, strings.Join(values, "\t"))
	}
	return nil
}

func (f *plainFormatter) PrintError(err error) {
	fmt.Fprintf(f.errw, "error: %v\n", err)
}

func (f *plainFormatter) PrintHint(msg string) {
	fmt.Fprintf(f.errw, "hint: %v\n", msg)
}

// richFormatter outputs styled content for terminal
type richFormatter struct {
	out, errw io.Writer
	profile   termenv.Profile
}

func (f *richFormatter) Print(data any) error {
	fields, ok := structFields(data)
	if !ok {
		fmt.Fprintf(f.out, "%v\n", data)
		return nil
	}
	keyStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	for _, kv := range fields {
		fmt.Fprintf(f.out, "%s: %s\n", f.render(keyStyle, kv[0]), kv[1])
	}
	return nil
}

func (f *richFormatter) PrintList(items any, columns []Column) error {
	rows, err := tableRows(items, columns)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(f.errw, f.render(lipgloss.NewStyle().Faint(true), "(no results)"))
		return nil
	}
	RenderTable(f.out, columns, rows)
	return nil
}

func (f *richFormatter) PrintError(err error) {
	style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	fmt.Fprintln(f.errw, f.render(style, "error: "+err.Error()))
}

func (f *richFormatter) PrintHint(msg string) {
	style := lipgloss.NewStyle().Faint(true).Foreground(lipgloss.Color("8"))
	fmt.Fprintln(f.errw, f.render(style, "hint: "+msg))
}

// render drops styling on terminals without color support.
func (f *richFormatter) render(style lipgloss.Style, s string) string {
	if f.profile == termenv.Ascii {
		return s
	}
	return style.Render(s)
}

// structFields lists a struct's exported fields as name/value pairs, named
// by their json tag when present.
func structFields(data any) ([][2]string, bool) {
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, false
	}
	t := v.Type()
	var out [][2]string
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, _, _ := strings.Cut(field.Tag.Get("json"), ","); tag == "-" {
			continue
		} else if tag != "" {
			name = tag
		}
		out = append(out, [2]string{name, formatValue(v.Field(i))})
	}
	return out, true
}

func tableRows(items any, columns []Column) ([]map[string]string, error) {
	v := reflect.ValueOf(items)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("PrintList requires a slice")
	}

	rows := make([]map[string]string, v.Len())
	for i := 0; i < v.Len(); i++ {
		item := v.Index(i)
		if item.Kind() == reflect.Ptr {
			item = item.Elem()
		}
		row := make(map[string]string, len(columns))
		for _, col := range columns {
			var field reflect.Value
			switch item.Kind() {
			case reflect.Map:
				field = item.MapIndex(reflect.ValueOf(col.Key))
			case reflect.Struct:
				field = item.FieldByName(col.Key)
			}
			if field.IsValid() {
				row[col.Key] = formatValue(field)
			}
		}
		rows[i] = row
	}
	return rows, nil
}

func formatValue(v reflect.Value) string {
	if v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	switch x := v.Interface().(type) {
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Local().Format("2006-01-02 15:04")
	case []string:
		return strings.Join(x, ",")
	case bool:
		if x {
			return "yes"
		}
		return "no"
	}
	return fmt.Sprintf("%v", v.Interface())
}
