package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// columnGap is the number of spaces between aligned columns.
const columnGap = 2

// WriteColumns writes rows as left-aligned columns. Cells are padded to
// their terminal display width, so a column of Chinese labels lines up with
// one of ASCII numbers. Trailing padding is trimmed.
func WriteColumns(w io.Writer, rows [][]string) error {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var b strings.Builder
	for _, row := range rows {
		b.Reset()
		for i, cell := range row {
			if i == len(row)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString(strings.Repeat(" ", columnGap))
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(b.String(), " ")); err != nil {
			return err
		}
	}
	return nil
}

// rule returns a horizontal rule as wide as label, and at least four
// columns.
func rule(label string) string {
	return strings.Repeat("-", max(4, runewidth.StringWidth(label)))
}
