// Package markdown renders dashboard selections as Markdown reports.
package markdown

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-ports/poimap/internal/dashboard"
	"github.com/go-ports/poimap/internal/models"
)

// RenderReport produces a Markdown report of v: a heading naming the
// selection, the selection count, the row-limited table and both
// dataset-wide distributions.
func RenderReport(v *dashboard.View) string {
	var sb strings.Builder
	sb.WriteString("# POI selection: ")
	sb.WriteString(selectionTitle(v.Selection))
	sb.WriteString("\n\n**Total POIs in selection:** ")
	sb.WriteString(strconv.Itoa(v.Count))
	sb.WriteString("\n")

	if len(v.Reset) > 0 {
		names := make([]string, len(v.Reset))
		for i, a := range v.Reset {
			names[i] = string(a)
		}
		sb.WriteString("\n> Reset to defaults: ")
		sb.WriteString(strings.Join(names, ", "))
		sb.WriteString("\n")
	}

	sb.WriteString("\n## Selected POI Records\n\n")
	if v.Empty {
		sb.WriteString("_No records match this selection._\n")
	} else {
		writeRecordTable(&sb, v.Table)
		fmt.Fprintf(&sb, "\n_Showing %d of %d rows._\n", len(v.Table.Rows), v.Count)
	}

	sb.WriteString("\n## POI Category Distribution (All Data)\n\n")
	writeCounts(&sb, "Category", "Count", v.CategoryCounts)
	sb.WriteString("\n## POI Distribution by State (All Data)\n\n")
	writeCounts(&sb, "State", "POI Count", v.StateCounts)
	return sb.String()
}

func selectionTitle(sel models.FilterSelection) string {
	category := sel.Category
	if category == "" {
		category = "(none)"
	}
	return category + " / " + sel.State + " / " + sel.City
}

func writeRecordTable(sb *strings.Builder, t dashboard.Table) {
	writeRow(sb, t.Columns)
	sep := make([]string, len(t.Columns))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sb, sep)
	for _, r := range t.Rows {
		writeRow(sb, []string{
			r.Name,
			deref(r.Category),
			deref(r.City),
			deref(r.State),
			coord(r.Latitude),
			coord(r.Longitude),
		})
	}
}

func writeCounts(sb *strings.Builder, keyHeader, countHeader string, counts models.AggregateCount) {
	if len(counts) == 0 {
		sb.WriteString("_No data._\n")
		return
	}
	writeRow(sb, []string{keyHeader, countHeader})
	writeRow(sb, []string{"---", "---:"})
	for _, c := range counts {
		writeRow(sb, []string{c.Key, strconv.Itoa(c.Count)})
	}
}

func writeRow(sb *strings.Builder, cells []string) {
	sb.WriteString("|")
	for _, c := range cells {
		sb.WriteString(" ")
		sb.WriteString(escapeCell(c))
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
}

var cellReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

func escapeCell(s string) string {
	return cellReplacer.Replace(s)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func coord(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

// WriteReport writes the report for v to path with a YAML front matter block
// recording the selection and generation time. Parent directories are created.
func WriteReport(path string, v *dashboard.View, now time.Time) error {
	var sb strings.Builder
	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "category: %q\n", v.Selection.Category)
	fmt.Fprintf(&sb, "state: %q\n", v.Selection.State)
	fmt.Fprintf(&sb, "city: %q\n", v.Selection.City)
	fmt.Fprintf(&sb, "count: %d\n", v.Count)
	sb.WriteString("generated: ")
	sb.WriteString(now.UTC().Format(time.RFC3339))
	sb.WriteString("\n---\n\n")
	sb.WriteString(RenderReport(v))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("markdown.WriteReport: %w", err)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil { // #nosec G306 -- reports hold public POI data only
		return fmt.Errorf("markdown.WriteReport: %w", err)
	}
	return nil
}
