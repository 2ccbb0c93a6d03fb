package consolidate

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"corpus-manager/internal/database"

	"github.com/dustin/go-humanize"
)

// Format is an artifact format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatText     Format = "text"
)

// Formats lists the supported formats.
var Formats = []Format{FormatMarkdown, FormatJSON, FormatText}

// ParseFormat accepts a format name or its file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "text", "txt":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown format %q (want markdown, json or text)", s)
}

// Ext returns the file extension for artifacts of f, without the dot.
func (f Format) Ext() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatJSON:
		return "json"
	default:
		return "txt"
	}
}

const (
	dateLayout  = "2006-01-02 15:04"
	rootHeading = "(root)"
)

type renderFunc func(w io.Writer, job *database.ConsolidationJob, recs []database.FileRecord) error

func rendererFor(f Format) renderFunc {
	switch f {
	case FormatJSON:
		return renderJSON
	case FormatText:
		return renderText
	default:
		return renderMarkdown
	}
}

// renderJSON writes the records as an indented array in selection order.
func renderJSON(w io.Writer, _ *database.ConsolidationJob, recs []database.FileRecord) error {
	if recs == nil {
		recs = []database.FileRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

// renderText writes one line per record: path, modified date, size.
func renderText(w io.Writer, _ *database.ConsolidationJob, recs []database.FileRecord) error {
	bw := bufio.NewWriter(w)
	for _, r := range recs {
		fmt.Fprintf(bw, "%s  [%s]  (%s)\n", r.Path, r.ModTime.UTC().Format(dateLayout), humanize.Bytes(uint64(r.Size)))
	}
	return bw.Flush()
}

type sectionGroup struct {
	name    string
	records []database.FileRecord
}

// groupBySection keeps sections in first-occurrence order and records in
// selection order within each section.
func groupBySection(recs []database.FileRecord) []sectionGroup {
	var groups []sectionGroup
	index := make(map[string]int)
	for _, r := range recs {
		i, ok := index[r.Section]
		if !ok {
			i = len(groups)
			index[r.Section] = i
			groups = append(groups, sectionGroup{name: r.Section})
		}
		groups[i].records = append(groups[i].records, r)
	}
	return groups
}

func renderMarkdown(w io.Writer, job *database.ConsolidationJob, recs []database.FileRecord) error {
	bw := bufio.NewWriter(w)

	var total int64
	for _, r := range recs {
		total += r.Size
	}

	fmt.Fprintf(bw, "# Consolidation: %s\n\n", job.Name)
	fmt.Fprintf(bw, "- **Job:** %s\n", job.ID)
	fmt.Fprintf(bw, "- **Created:** %s UTC\n", job.CreatedAt.UTC().Format(dateLayout))
	fmt.Fprintf(bw, "- **Source:** %s\n", job.Source)
	fmt.Fprintf(bw, "- **Files:** %d\n", len(recs))
	fmt.Fprintf(bw, "- **Total size:** %s\n", humanize.Bytes(uint64(total)))

	for _, g := range groupBySection(recs) {
		heading := g.name
		if heading == "" {
			heading = rootHeading
		}
		fmt.Fprintf(bw, "\n## %s\n\n", heading)
		fmt.Fprintf(bw, "**Entries:** %d\n", len(g.records))

		for _, r := range g.records {
			fmt.Fprintf(bw, "\n### %s\n\n", r.Name)
			fmt.Fprintf(bw, "- **Path:** `%s`\n", r.Path)
			fmt.Fprintf(bw, "- **Size:** %s\n", humanize.Bytes(uint64(r.Size)))
			fmt.Fprintf(bw, "- **Modified:** %s\n", r.ModTime.UTC().Format(dateLayout))
			if r.Status == database.StatusDeleted {
				fmt.Fprintf(bw, "- **Status:** deleted\n")
			}
		}
	}
	return bw.Flush()
}
