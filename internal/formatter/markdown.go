// Package formatter renders stored cases as markdown tables aligned by
// terminal display width.
package formatter

import (
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"casemap/internal/gazetteer"
	"casemap/internal/models"
)

// DefaultMaxTitle is the title column width used by CaseTable when maxTitle
// is not positive.
const DefaultMaxTitle = 60

const (
	minColWidth = 3
	ellipsis    = "…"
	noState     = "-"
)

// CaseTable renders one row per record. Titles wider than maxTitle display
// columns are truncated with an ellipsis.
func CaseTable(records []models.CaseRecord, maxTitle int) string {
	if maxTitle <= 0 {
		maxTitle = DefaultMaxTitle
	}

	rows := [][]string{{"ID", "Estado", "Região", "Título", "Data", "Fonte"}}

	for i := range records {
		rec := &records[i]
		rows = append(rows, []string{
			strconv.FormatInt(rec.ID, 10),
			orDash(rec.StateName()),
			orDash(rec.RegionName()),
			runewidth.Truncate(cell(rec.Title), maxTitle, ellipsis),
			orDash(rec.Date),
			orDash(cell(rec.Source)),
		})
	}

	return strings.Join(AlignTable(rows), "\n")
}

// StateSummary counts records per state, grouped in gazetteer region order.
// Records without a state are counted in a trailing row.
func StateSummary(records []models.CaseRecord) string {
	counts := make(map[string]int)
	unknown := 0

	for i := range records {
		state := records[i].StateName()
		if state == "" {
			unknown++
			continue
		}

		counts[state]++
	}

	states := make([]string, 0, len(counts))
	for s := range counts {
		states = append(states, s)
	}

	sort.Slice(states, func(i, j int) bool {
		ri, rj := regionRank(states[i]), regionRank(states[j])
		if ri != rj {
			return ri < rj
		}

		return states[i] < states[j]
	})

	rows := [][]string{{"Região", "Estado", "Casos"}}

	for _, s := range states {
		region, _ := gazetteer.RegionOf(s)
		rows = append(rows, []string{orDash(region), s, strconv.Itoa(counts[s])})
	}

	if unknown > 0 {
		rows = append(rows, []string{noState, noState, strconv.Itoa(unknown)})
	}

	rows = append(rows, []string{"Total", "", strconv.Itoa(len(records))})

	return strings.Join(AlignTable(rows), "\n")
}

// regionRank orders states by region; states outside the table sort last.
func regionRank(state string) int {
	region, ok := gazetteer.RegionOf(state)
	if !ok {
		return len(gazetteer.Regions())
	}

	for i, r := range gazetteer.Regions() {
		if r == region {
			return i
		}
	}

	return len(gazetteer.Regions())
}

// AlignTable renders rows as a markdown table. The first row is the header;
// a separator row is inserted after it. Cells are padded by display width so
// accented and wide runes line up.
func AlignTable(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}

	colCount := 0
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	colWidths := make([]int, colCount)

	for _, row := range rows {
		for i, c := range row {
			if w := runewidth.StringWidth(c); w > colWidths[i] {
				colWidths[i] = w
			}
		}
	}

	for i := range colWidths {
		if colWidths[i] < minColWidth {
			colWidths[i] = minColWidth
		}
	}

	result := make([]string, 0, len(rows)+1)

	for i, row := range rows {
		result = append(result, renderRow(row, colWidths))

		if i == 0 {
			result = append(result, renderSeparator(colWidths))
		}
	}

	return result
}

func renderRow(row []string, colWidths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for j, width := range colWidths {
		content := ""
		if j < len(row) {
			content = row[j]
		}

		sb.WriteString(" ")
		sb.WriteString(content)

		if pad := width - runewidth.StringWidth(content); pad > 0 {
			sb.WriteString(strings.Repeat(" ", pad))
		}

		sb.WriteString(" |")
	}

	return sb.String()
}

func renderSeparator(colWidths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for _, width := range colWidths {
		sb.WriteString(" ")
		sb.WriteString(strings.Repeat("-", width))
		sb.WriteString(" |")
	}

	return sb.String()
}

// cell flattens whitespace and escapes pipes so a value stays in one cell.
func cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func orDash(s string) string {
	if s == "" {
		return noState
	}

	return s
}
