// Package formatter renders drift reports for terminals and documents.
package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/mkoppen/pgdrift/internal/diff"
)

// TextFormatter renders a drift report as compact text.
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the report in compact text format.
func (f *TextFormatter) Format(r *diff.Report) error {
	_, _ = fmt.Fprintf(f.writer, "DRIFT %s -> %s\n", r.Source, r.Target)

	if r.InSync() {
		_, _ = fmt.Fprintln(f.writer, "  in sync")
		return nil
	}

	for _, entry := range r.Entries {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", f.formatEntry(entry))
	}
	_, _ = fmt.Fprintf(f.writer, "%d object(s) drifted\n", len(r.Entries))
	return nil
}

func (f *TextFormatter) formatEntry(entry diff.Entry) string {
	parts := []string{strings.ToUpper(string(entry.Status)), entry.Path}

	if kinds := driftKinds(entry); kinds != "" {
		parts = append(parts, "("+kinds+")")
	}
	return strings.Join(parts, " ")
}

// driftKinds names which component hashes moved on a changed leaf.
func driftKinds(entry diff.Entry) string {
	var kinds []string
	if entry.DataDrift {
		kinds = append(kinds, "data")
	}
	if entry.SchemaDrift {
		kinds = append(kinds, "schema")
	}
	return strings.Join(kinds, ", ")
}
