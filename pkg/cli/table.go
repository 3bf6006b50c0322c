package cli

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"text/tabwriter"
	"unicode/utf8"
)

// Table wraps text/tabwriter with consistent column-aligned output.
// Headers and a dash divider are written lazily on first Row() or Flush(),
// so empty tables produce no output.
type Table struct {
	w        *tabwriter.Writer
	headers  []string
	prefix   string
	maxWidth map[int]int
	written  bool
}

// NewTable creates a table on stdout with the given column headers.
func NewTable(headers ...string) *Table {
	return NewTableTo(os.Stdout, headers...)
}

// NewTableTo creates a table writing to out.
func NewTableTo(out io.Writer, headers ...string) *Table {
	return &Table{
		w:        tabwriter.NewWriter(out, 0, 0, 2, ' ', 0),
		headers:  headers,
		maxWidth: make(map[int]int),
	}
}

// WithPrefix sets a string prepended to each line (headers, divider, rows).
// Useful for indenting sub-tables within larger output.
func (t *Table) WithPrefix(prefix string) *Table {
	t.prefix = prefix
	return t
}

// WithMaxWidth wraps the cells of column col at width; continuation lines
// leave the other columns blank.
func (t *Table) WithMaxWidth(col, width int) *Table {
	t.maxWidth[col] = width
	return t
}

// Row writes a tab-separated row. On the first call, headers and divider
// are emitted before the row.
func (t *Table) Row(values ...string) {
	t.ensureHeaders()

	cells := make([][]string, len(values))
	lines := 1
	for i, v := range values {
		if w, ok := t.maxWidth[i]; ok && w > 0 {
			cells[i] = wrapCell(v, w)
		} else {
			cells[i] = []string{v}
		}
		if len(cells[i]) > lines {
			lines = len(cells[i])
		}
	}
	for l := 0; l < lines; l++ {
		line := make([]string, len(cells))
		for i, c := range cells {
			if l < len(c) {
				line[i] = c[l]
			}
		}
		fmt.Fprintln(t.w, t.prefix+strings.Join(line, "\t"))
	}
}

// Flush writes any buffered output. If no rows were written, nothing is printed.
func (t *Table) Flush() {
	if !t.written {
		return
	}
	t.w.Flush()
}

func (t *Table) ensureHeaders() {
	if t.written {
		return
	}
	t.written = true
	fmt.Fprintln(t.w, t.prefix+strings.Join(t.headers, "\t"))
	dividers := make([]string, len(t.headers))
	for i, h := range t.headers {
		dividers[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(t.w, t.prefix+strings.Join(dividers, "\t"))
}

var ansiEscape = regexp.MustCompile("\x1b\\[[0-9;]*m")

// visualLen is the printed width of s, ignoring ANSI color codes.
func visualLen(s string) int {
	return utf8.RuneCountInString(ansiEscape.ReplaceAllString(s, ""))
}

// wrapCell splits s into lines of at most width columns, breaking at spaces
// and hard-breaking words longer than width. A cell that fits is returned
// unchanged, color codes included.
func wrapCell(s string, width int) []string {
	if width <= 0 || visualLen(s) <= width {
		return []string{s}
	}
	plain := ansiEscape.ReplaceAllString(s, "")

	var lines []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, string(cur))
			cur = nil
		}
	}
	for _, word := range strings.Fields(plain) {
		w := []rune(word)
		for len(w) > width {
			flush()
			lines = append(lines, string(w[:width]))
			w = w[width:]
		}
		switch {
		case len(cur) == 0:
			cur = w
		case len(cur)+1+len(w) <= width:
			cur = append(append(cur, ' '), w...)
		default:
			flush()
			cur = w
		}
	}
	flush()
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
