// Package output renders command results for terminals and pipes.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/refdex/refdex/internal/migrate"
	"github.com/refdex/refdex/internal/search"
	"github.com/refdex/refdex/internal/store"
)

// Format selects the rendering of command results.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown format %q (want text or json)", s)
	}
}

// Printer renders results to a writer. Styled tables are used only when
// the writer is an interactive terminal.
type Printer struct {
	out    io.Writer
	format Format
	styled bool
}

// NewPrinter builds a Printer for out.
func NewPrinter(out io.Writer, format Format) *Printer {
	styled := false
	if f, ok := out.(*os.File); ok {
		styled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Printer{out: out, format: format, styled: styled}
}

// DocumentMatches renders a document search result set.
func (p *Printer) DocumentMatches(res *search.DocumentResults) error {
	if p.format == FormatJSON {
		return p.writeJSON(documentMatchesJSON(res))
	}

	if len(res.Matches) == 0 {
		fmt.Fprintln(p.out, "No documents found.")
		return nil
	}
	if res.Fallback {
		fmt.Fprintln(p.out, "Note: full-text index unavailable, showing substring matches.")
	}

	t := p.newTable()
	t.AppendHeader(table.Row{"Title", "Category", "Path", "Score", "Snippet"})
	for _, m := range res.Matches {
		t.AppendRow(table.Row{
			m.Document.Title, m.Document.Category, m.Document.Path,
			formatScore(m.Score, res.Fallback), clip(m.Snippet, 72),
		})
	}
	t.Render()
	return nil
}

// PatternMatches renders a pattern search result set.
func (p *Printer) PatternMatches(res *search.PatternResults) error {
	if p.format == FormatJSON {
		return p.writeJSON(patternMatchesJSON(res))
	}

	if len(res.Matches) == 0 {
		fmt.Fprintln(p.out, "No patterns found.")
		return nil
	}
	if res.Fallback {
		fmt.Fprintln(p.out, "Note: full-text index unavailable, showing substring matches.")
	}

	t := p.newTable()
	t.AppendHeader(table.Row{"Name", "Domain", "Current", "Score", "Snippet"})
	for _, m := range res.Matches {
		current := "yes"
		if !m.Pattern.IsCurrent {
			current = "no"
		}
		t.AppendRow(table.Row{
			m.Pattern.Name, m.Pattern.Domain, current,
			formatScore(m.Score, res.Fallback), clip(m.Snippet, 72),
		})
	}
	t.Render()
	return nil
}

// Stats renders store statistics.
func (p *Printer) Stats(stats *store.Stats) error {
	if p.format == FormatJSON {
		return p.writeJSON(statsJSON(stats))
	}

	fmt.Fprintf(p.out, "Documents: %d (%d technical, %d process)\n",
		stats.TotalDocuments, stats.Technical, stats.Process)
	fmt.Fprintf(p.out, "Patterns:  %d\n", stats.Patterns)

	if len(stats.ByCategory) == 0 {
		return nil
	}

	t := p.newTable()
	t.AppendHeader(table.Row{"Category", "Documents"})
	for _, cat := range sortedKeys(stats.ByCategory) {
		t.AppendRow(table.Row{cat, stats.ByCategory[cat]})
	}
	t.Render()
	return nil
}

// Migration renders a migration run summary.
func (p *Printer) Migration(summary *migrate.Summary) error {
	if p.format == FormatJSON {
		return p.writeJSON(migrationJSON(summary))
	}

	t := p.newTable()
	t.AppendHeader(table.Row{"Source", "Kind", "Imported", "Skipped", "Note"})
	for _, src := range summary.Sources {
		note := ""
		if src.Missing {
			note = "root missing"
		}
		t.AppendRow(table.Row{src.Name, string(src.Kind), src.Imported, len(src.Skips) + src.ScanSkipped, note})
	}
	t.Render()

	for _, src := range summary.Sources {
		for _, skip := range src.Skips {
			fmt.Fprintf(p.out, "skipped %s: %s\n", skip.Path, skip.Reason)
		}
	}

	fmt.Fprintf(p.out, "Imported %d records (%d skipped) in %s\n",
		summary.Imported(), summary.Skipped(), summary.Duration.Round(time.Millisecond))
	return nil
}

func (p *Printer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	if p.styled {
		t.SetStyle(table.StyleRounded)
	} else {
		t.SetStyle(table.StyleLight)
		t.Style().Options.DrawBorder = false
		t.Style().Color = table.ColorOptions{}
		t.Style().Format.Header = text.FormatDefault
	}
	return t
}

func (p *Printer) writeJSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatScore(score float64, fallback bool) string {
	if fallback {
		return "-"
	}
	return fmt.Sprintf("%.3f", score)
}

func clip(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
