package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refdex/refdex/internal/migrate"
	"github.com/refdex/refdex/internal/search"
	"github.com/refdex/refdex/internal/store"
)

func sampleDocumentResults() *search.DocumentResults {
	return &search.DocumentResults{
		Matches: []*store.DocumentMatch{{
			Document: &store.Document{
				Title:        "SwiftUI Navigation",
				Path:         "guides/nav.md",
				DocumentType: store.DocumentTypeTechnical,
				Category:     "guides",
				Tags:         store.NewTagSet("swiftui"),
			},
			Snippet: "Use [NavigationStack] for…",
			Score:   1.234,
		}},
	}
}

func TestParseFormat(t *testing.T) {
	for _, valid := range []string{"text", "json"} {
		f, err := ParseFormat(valid)
		require.NoError(t, err)
		assert.Equal(t, Format(valid), f)
	}

	_, err := ParseFormat("yaml")
	require.Error(t, err)
}

func TestDocumentMatches_Text(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatText)

	require.NoError(t, p.DocumentMatches(sampleDocumentResults()))

	out := buf.String()
	assert.Contains(t, out, "SwiftUI Navigation")
	assert.Contains(t, out, "guides/nav.md")
	assert.Contains(t, out, "1.234")
	assert.NotContains(t, out, "full-text index unavailable")
}

func TestDocumentMatches_TextFallbackNote(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatText)

	res := sampleDocumentResults()
	res.Fallback = true
	res.Matches[0].Score = 0

	require.NoError(t, p.DocumentMatches(res))
	assert.Contains(t, buf.String(), "full-text index unavailable")
	assert.Contains(t, buf.String(), "-", "fallback results show no score")
}

func TestDocumentMatches_Empty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatText)

	require.NoError(t, p.DocumentMatches(&search.DocumentResults{}))
	assert.Contains(t, buf.String(), "No documents found.")
}

func TestDocumentMatches_JSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatJSON)

	require.NoError(t, p.DocumentMatches(sampleDocumentResults()))

	var decoded documentResultsJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Matches, 1)
	assert.Equal(t, "guides/nav.md", decoded.Matches[0].Path)
	assert.Equal(t, []string{"swiftui"}, decoded.Matches[0].Tags)
	assert.False(t, decoded.Fallback)
}

func TestPatternMatches_JSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatJSON)

	res := &search.PatternResults{
		Matches: []*store.PatternMatch{{
			Pattern: &store.Pattern{
				Name: "scoped-observation", Domain: "swiftui",
				Problem: "p", Solution: "s", IsCurrent: true,
			},
			Snippet: "snip",
			Score:   0.5,
		}},
	}
	require.NoError(t, p.PatternMatches(res))

	var decoded patternResultsJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Matches, 1)
	assert.Equal(t, "scoped-observation", decoded.Matches[0].Name)
	assert.True(t, decoded.Matches[0].IsCurrent)
	assert.Nil(t, decoded.Matches[0].LastValidated)
}

func TestStats_Text(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatText)

	require.NoError(t, p.Stats(&store.Stats{
		TotalDocuments: 3, Technical: 2, Process: 1, Patterns: 4,
		ByCategory: map[string]int64{"guides": 2, "process": 1},
	}))

	out := buf.String()
	assert.Contains(t, out, "Documents: 3 (2 technical, 1 process)")
	assert.Contains(t, out, "Patterns:  4")
	assert.Contains(t, out, "guides")
}

func TestMigration_Text(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatText)

	summary := &migrate.Summary{
		Sources: []migrate.SourceSummary{
			{Name: "guides", Imported: 2, ScanSkipped: 1},
			{Name: "gone", Missing: true},
			{Name: "patterns", Imported: 1, Skips: []migrate.Skip{
				{Path: "patterns/bad.md", Reason: "missing Problem or Solution section"},
			}},
		},
		Duration: 120 * time.Millisecond,
	}

	require.NoError(t, p.Migration(summary))

	out := buf.String()
	assert.Contains(t, out, "root missing")
	assert.Contains(t, out, "skipped patterns/bad.md")
	assert.Contains(t, out, "Imported 3 records (2 skipped)", "scan-level skips count toward the total")
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "multi line", clip("multi\nline", 20))
	assert.Equal(t, "abcde…", clip("abcdefgh", 5))
}
