package cli

import (
	"fmt"
	"io"

	"github.com/salarysys/payrun/internal/batch"
	"github.com/salarysys/payrun/internal/report"
)

// progressPrinter renders batch progress. On a terminal it redraws one line;
// otherwise each update is its own line so logs stay readable.
type progressPrinter struct {
	w        io.Writer
	terminal bool
	printed  bool
}

func newProgressPrinter(w io.Writer, terminal bool) *progressPrinter {
	return &progressPrinter{w: w, terminal: terminal}
}

// Update prints one progress snapshot.
func (p *progressPrinter) Update(pr batch.Progress) {
	line := fmt.Sprintf("exported %s/%s (%d%%)",
		report.FormatCount(int64(pr.Processed)), report.FormatCount(int64(pr.Total)), pr.Percentage)
	if p.terminal {
		_, _ = fmt.Fprintf(p.w, "\r%s", line)
	} else {
		_, _ = fmt.Fprintln(p.w, line)
	}
	p.printed = true
}

// Done ends a redrawn progress line.
func (p *progressPrinter) Done() {
	if p.terminal && p.printed {
		_, _ = fmt.Fprintln(p.w)
	}
}
