package output

import (
	"time"

	"github.com/refdex/refdex/internal/migrate"
	"github.com/refdex/refdex/internal/search"
	"github.com/refdex/refdex/internal/store"
)

// JSON shapes are defined here rather than on the domain types so the
// wire format can stay stable while internals move.

type documentMatchJSON struct {
	Title            string   `json:"title"`
	Path             string   `json:"path"`
	DocumentType     string   `json:"document_type"`
	Category         string   `json:"category"`
	Subcategory      string   `json:"subcategory,omitempty"`
	Role             string   `json:"role,omitempty"`
	EnforcementLevel string   `json:"enforcement_level,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	Snippet          string   `json:"snippet"`
	Score            float64  `json:"score"`
}

type documentResultsJSON struct {
	Matches  []documentMatchJSON `json:"matches"`
	Fallback bool                `json:"fallback"`
}

func documentMatchesJSON(res *search.DocumentResults) documentResultsJSON {
	out := documentResultsJSON{
		Matches:  make([]documentMatchJSON, 0, len(res.Matches)),
		Fallback: res.Fallback,
	}
	for _, m := range res.Matches {
		out.Matches = append(out.Matches, documentMatchJSON{
			Title:            m.Document.Title,
			Path:             m.Document.Path,
			DocumentType:     string(m.Document.DocumentType),
			Category:         m.Document.Category,
			Subcategory:      m.Document.Subcategory,
			Role:             m.Document.Role,
			EnforcementLevel: m.Document.EnforcementLevel,
			Tags:             m.Document.Tags.Sorted(),
			Snippet:          m.Snippet,
			Score:            m.Score,
		})
	}
	return out
}

type patternMatchJSON struct {
	Name          string     `json:"name"`
	Domain        string     `json:"domain"`
	Problem       string     `json:"problem"`
	Solution      string     `json:"solution"`
	CodeExample   string     `json:"code_example,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	IsCurrent     bool       `json:"is_current"`
	LastValidated *time.Time `json:"last_validated,omitempty"`
	Snippet       string     `json:"snippet"`
	Score         float64    `json:"score"`
}

type patternResultsJSON struct {
	Matches  []patternMatchJSON `json:"matches"`
	Fallback bool               `json:"fallback"`
}

func patternMatchesJSON(res *search.PatternResults) patternResultsJSON {
	out := patternResultsJSON{
		Matches:  make([]patternMatchJSON, 0, len(res.Matches)),
		Fallback: res.Fallback,
	}
	for _, m := range res.Matches {
		out.Matches = append(out.Matches, patternMatchJSON{
			Name:          m.Pattern.Name,
			Domain:        m.Pattern.Domain,
			Problem:       m.Pattern.Problem,
			Solution:      m.Pattern.Solution,
			CodeExample:   m.Pattern.CodeExample,
			Notes:         m.Pattern.Notes,
			IsCurrent:     m.Pattern.IsCurrent,
			LastValidated: m.Pattern.LastValidated,
			Snippet:       m.Snippet,
			Score:         m.Score,
		})
	}
	return out
}

type statsPayloadJSON struct {
	TotalDocuments int64            `json:"total_documents"`
	Technical      int64            `json:"technical"`
	Process        int64            `json:"process"`
	Patterns       int64            `json:"patterns"`
	ByCategory     map[string]int64 `json:"by_category"`
}

func statsJSON(stats *store.Stats) statsPayloadJSON {
	return statsPayloadJSON{
		TotalDocuments: stats.TotalDocuments,
		Technical:      stats.Technical,
		Process:        stats.Process,
		Patterns:       stats.Patterns,
		ByCategory:     stats.ByCategory,
	}
}

type skipJSON struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

type sourceSummaryJSON struct {
	Name        string     `json:"name"`
	Root        string     `json:"root"`
	Kind        string     `json:"kind"`
	Missing     bool       `json:"missing"`
	Imported    int        `json:"imported"`
	Skips       []skipJSON `json:"skips,omitempty"`
	ScanSkipped int        `json:"scan_skipped,omitempty"`
}

type migrationJSONPayload struct {
	Sources    []sourceSummaryJSON `json:"sources"`
	Imported   int                 `json:"imported"`
	Skipped    int                 `json:"skipped"`
	DurationMS int64               `json:"duration_ms"`
}

func migrationJSON(summary *migrate.Summary) migrationJSONPayload {
	out := migrationJSONPayload{
		Imported:   summary.Imported(),
		Skipped:    summary.Skipped(),
		DurationMS: summary.Duration.Milliseconds(),
	}
	for _, src := range summary.Sources {
		s := sourceSummaryJSON{
			Name:        src.Name,
			Root:        src.Root,
			Kind:        string(src.Kind),
			Missing:     src.Missing,
			Imported:    src.Imported,
			ScanSkipped: src.ScanSkipped,
		}
		for _, skip := range src.Skips {
			s.Skips = append(s.Skips, skipJSON{Path: skip.Path, Reason: skip.Reason})
		}
		out.Sources = append(out.Sources, s)
	}
	return out
}
