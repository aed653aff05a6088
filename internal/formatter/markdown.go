package formatter

import (
	"fmt"
	"io"

	"github.com/mkoppen/pgdrift/internal/diff"
)

// MarkdownFormatter renders a drift report as a markdown document.
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter.
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the report as markdown.
func (f *MarkdownFormatter) Format(r *diff.Report) error {
	_, _ = fmt.Fprintf(f.writer, "# Drift: %s → %s\n\n", r.Source, r.Target)

	if r.InSync() {
		_, _ = fmt.Fprintln(f.writer, "No drift detected.")
		return nil
	}

	_, _ = fmt.Fprintln(f.writer, "| Object | Status | Drift |")
	_, _ = fmt.Fprintln(f.writer, "|--------|--------|-------|")
	for _, entry := range r.Entries {
		kinds := driftKinds(entry)
		if kinds == "" {
			kinds = "—"
		}
		_, _ = fmt.Fprintf(f.writer, "| `%s` | %s | %s |\n", entry.Path, entry.Status, kinds)
	}
	_, _ = fmt.Fprintf(f.writer, "\n%d object(s) drifted.\n", len(r.Entries))
	return nil
}
