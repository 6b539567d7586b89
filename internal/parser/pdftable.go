package parser

import (
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// cell is one positioned text run within a row.
type cell struct {
	x    float64
	text string
}

// DetectTable finds the largest column-aligned region on a page and
// returns it as rows of cell text. It clusters glyph runs into rows by Y
// coordinate, splits rows into cells at horizontal gaps, and keeps the
// longest run of consecutive multi-column rows. Fewer than two such rows
// is not a table and yields nil.
func DetectTable(page pdf.Page) [][]string {
	return detectTable(extractRows(page))
}

// extractRows clusters glyph runs into rows by Y coordinate and merges
// adjacent runs into cells wherever a horizontal gap suggests a column
// boundary.
func extractRows(page pdf.Page) [][]cell {
	content := page.Content()
	if len(content.Text) == 0 {
		return nil
	}

	runs := make([]pdf.Text, len(content.Text))
	copy(runs, content.Text)
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Y != runs[j].Y {
			return runs[i].Y > runs[j].Y
		}
		return runs[i].X < runs[j].X
	})

	const rowTolerance = 2.0
	const columnGap = 12.0

	var rows [][]cell
	var currentRuns []pdf.Text
	rowY := runs[0].Y

	flush := func() {
		if len(currentRuns) == 0 {
			return
		}
		sort.SliceStable(currentRuns, func(i, j int) bool { return currentRuns[i].X < currentRuns[j].X })
		var cells []cell
		var sb strings.Builder
		startX := currentRuns[0].X
		lastEnd := currentRuns[0].X
		for _, r := range currentRuns {
			if r.X-lastEnd > columnGap && sb.Len() > 0 {
				cells = append(cells, cell{x: startX, text: strings.TrimSpace(sb.String())})
				sb.Reset()
				startX = r.X
			}
			sb.WriteString(r.S)
			lastEnd = r.X + r.W
		}
		if sb.Len() > 0 {
			cells = append(cells, cell{x: startX, text: strings.TrimSpace(sb.String())})
		}
		rows = append(rows, cells)
		currentRuns = currentRuns[:0]
	}

	for _, r := range runs {
		if len(currentRuns) > 0 && rowY-r.Y > rowTolerance {
			flush()
			rowY = r.Y
		} else if len(currentRuns) == 0 {
			rowY = r.Y
		}
		currentRuns = append(currentRuns, r)
	}
	flush()

	return rows
}

// detectTable keeps the longest run of consecutive rows that share a
// multi-column shape.
func detectTable(rows [][]cell) [][]string {
	var best, current [][]string
	for _, row := range rows {
		if len(row) >= 2 {
			cells := make([]string, len(row))
			for i, c := range row {
				cells[i] = c.text
			}
			current = append(current, cells)
			continue
		}
		if len(current) > len(best) {
			best = current
		}
		current = nil
	}
	if len(current) > len(best) {
		best = current
	}
	if len(best) < 2 {
		return nil
	}
	return best
}

// RenderTable renders rows as a pipe-delimited grid with a header
// separator, the canonical table form every source format converges on.
// Ragged rows are padded to the widest row.
func RenderTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	pad := func(row []string) []string {
		out := make([]string, width)
		copy(out, row)
		return out
	}

	var sb strings.Builder
	sb.WriteString("| " + strings.Join(pad(rows[0]), " | ") + " |\n")
	seps := make([]string, width)
	for i := range seps {
		seps[i] = "---"
	}
	sb.WriteString("| " + strings.Join(seps, " | ") + " |")
	for _, row := range rows[1:] {
		sb.WriteString("\n| " + strings.Join(pad(row), " | ") + " |")
	}
	return sb.String()
}
