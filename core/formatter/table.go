package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// TableFormatter aligns records into columns for terminals.
type TableFormatter struct{}

// NewTableFormatter returns the table formatter.
func NewTableFormatter() *TableFormatter { return &TableFormatter{} }

func (f *TableFormatter) Name() string        { return "table" }
func (f *TableFormatter) Description() string { return "Aligned text table output" }

// FormatList writes one row per record under an upper-case header.
func (f *TableFormatter) FormatList(w io.Writer, kind string, records []Record, opts FormatOptions) error {
	if len(records) == 0 {
		_, err := fmt.Fprintf(w, "No %s found.\n", kind)
		return err
	}

	columns := columnsOf(records, opts.Columns)
	rows := make([][]string, 0, len(records)+1)
	if !opts.NoHeader {
		header := make([]string, len(columns))
		for i, col := range columns {
			header[i] = strings.ToUpper(col)
		}
		rows = append(rows, header)
	}
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = formatValue(rec[col], opts.MaxWidth)
		}
		rows = append(rows, row)
	}
	return writeRows(w, rows, "\t")
}

// FormatRecord writes "Label: value" lines.
func (f *TableFormatter) FormatRecord(w io.Writer, kind string, record Record, opts FormatOptions) error {
	if record == nil {
		_, err := fmt.Fprintf(w, "No %s found.\n", kind)
		return err
	}

	var rows [][]string
	for _, col := range columnsOf([]Record{record}, opts.Columns) {
		rows = append(rows, []string{formatLabel(col) + ":", formatValue(record[col], 0)})
	}
	return writeRows(w, rows, "\t")
}

func (f *TableFormatter) FormatError(w io.Writer, err error) error {
	_, werr := fmt.Fprintf(w, "Error: %s\n", err)
	return werr
}

func writeRows(w io.Writer, rows [][]string, sep string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		if _, err := io.WriteString(tw, strings.Join(row, sep)+"\n"); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// formatLabel turns storage_key into "Storage Key".
func formatLabel(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

func formatValue(val any, maxWidth int) string {
	var s string
	switch v := val.(type) {
	case nil:
		return "-"
	case string:
		s = v
	case bool:
		s = map[bool]string{true: "yes", false: "no"}[v]
	case []string:
		s = strings.Join(v, ",")
	case float64:
		if v == float64(int64(v)) {
			s = strconv.FormatInt(int64(v), 10)
		} else {
			s = strconv.FormatFloat(v, 'f', 2, 64)
		}
	case fmt.Stringer:
		s = v.String()
	default:
		b, _ := json.Marshal(v)
		s = string(b)
	}
	return truncate(s, maxWidth)
}

// truncate shortens s to width runes, ending in "...". Widths of three
// or less disable truncation.
func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 3 || len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

func init() {
	Register(NewTableFormatter())
}
