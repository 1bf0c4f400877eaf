package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// RenderPlan renders plan entries as a table of archive, target database and size.
// With checksums set, a SHA-256 column is added from Archive.Checksum.
func RenderPlan(entries []pgseed.PlanEntry, checksums bool) string {
	if len(entries) == 0 {
		return MutedStyle.Render("No archives found; nothing to restore.") + "\n"
	}

	headers := []string{"#", "Archive", SymbolArrowRight, "Database", "Size"}
	if checksums {
		headers = append(headers, "SHA-256")
	}

	var total int64
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		total += e.Archive.SizeBytes
		row := []string{
			strconv.Itoa(i + 1),
			e.Archive.Path,
			SymbolArrowRight,
			e.Database,
			humanize.IBytes(uint64(max(e.Archive.SizeBytes, 0))),
		}
		if checksums {
			row = append(row, e.Archive.Checksum)
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(BorderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle
			}
			if col == 2 {
				return CellStyle.Foreground(ColorMuted)
			}
			return CellStyle
		})

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Restore plan: %d %s, %s",
		len(entries), plural(len(entries), "archive", "archives"), humanize.IBytes(uint64(max(total, 0))))))
	b.WriteString("\n")
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

// RenderSummary renders the outcome of a run: one line per restored or skipped
// database and a closing total.
func RenderSummary(s pgseed.Summary) string {
	var b strings.Builder

	for _, r := range s.Restored {
		fmt.Fprintf(&b, "%s %s %s %s %s\n",
			SuccessStyle.Render(SymbolCheck),
			r.Database,
			MutedStyle.Render("from "+r.Archive),
			fmt.Sprintf("%d %s", r.Tables, plural(r.Tables, "table", "tables")),
			MutedStyle.Render("in "+r.Duration.Round(time.Millisecond).String()))
	}
	for _, name := range s.Skipped {
		fmt.Fprintf(&b, "%s %s %s\n",
			WarningStyle.Render(SymbolSkip),
			name,
			MutedStyle.Render("already exists, skipped"))
	}

	fmt.Fprintf(&b, "%s\n", TitleStyle.Render(fmt.Sprintf("%d restored, %d skipped in %s",
		len(s.Restored), len(s.Skipped), s.Duration.Round(time.Millisecond))))
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
