package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kberr "github.com/refdex/refdex/internal/errors"
	"github.com/refdex/refdex/internal/store"
)

func seedStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.UpsertDocument(ctx, &store.Document{
		Title:        "SwiftUI Navigation",
		Content:      "Use NavigationStack for hierarchical navigation.",
		Path:         "guides/nav.md",
		DocumentType: store.DocumentTypeTechnical,
		Category:     "guides",
		Tags:         store.NewTagSet("swiftui", "navigation"),
	}))
	require.NoError(t, s.UpsertDocument(ctx, &store.Document{
		Title:        "Code Review Checklist",
		Content:      "Every change needs a second pair of eyes.",
		Path:         "process/review.md",
		DocumentType: store.DocumentTypeProcess,
		Category:     "process",
	}))
	require.NoError(t, s.UpsertPattern(ctx, &store.Pattern{
		Name:      "scoped-observation",
		Domain:    "swiftui",
		Problem:   "Deep view hierarchies re-render too often.",
		Solution:  "Scope observation to the smallest view.",
		IsCurrent: true,
	}))
	return s
}

func newIndex(t *testing.T, s Backend) *Index {
	t.Helper()
	idx, err := New(s)
	require.NoError(t, err)
	return idx
}

// brokenFTS simulates a runtime without the FTS5 module: every
// full-text query fails at preparation, everything else works.
type brokenFTS struct {
	Backend
}

func (b brokenFTS) SearchDocumentsFullText(context.Context, string, string, int) ([]*store.DocumentMatch, error) {
	return nil, kberr.PreparationError("no such module: fts5", nil)
}

func (b brokenFTS) SearchPatternsFullText(context.Context, string, string, int) ([]*store.PatternMatch, error) {
	return nil, kberr.PreparationError("no such module: fts5", nil)
}

func TestSearchDocuments_FullTextPath(t *testing.T) {
	s := seedStore(t)
	idx := newIndex(t, s)

	res, err := idx.SearchDocuments(context.Background(), "navigation", "", 10)
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "guides/nav.md", res.Matches[0].Document.Path)
}

func TestSearchDocuments_CategoryScope(t *testing.T) {
	s := seedStore(t)
	idx := newIndex(t, s)

	res, err := idx.SearchDocuments(context.Background(), "navigation", "process", 10)
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
}

func TestSearchDocuments_EmptyQuery(t *testing.T) {
	s := seedStore(t)
	idx := newIndex(t, s)

	for _, q := range []string{"", "   ", `"" ''`} {
		res, err := idx.SearchDocuments(context.Background(), q, "", 10)
		require.NoError(t, err)
		assert.Empty(t, res.Matches, "query %q", q)
		assert.False(t, res.Fallback)
	}
}

func TestSearchDocuments_QuotesNeverReachMatchSyntax(t *testing.T) {
	s := seedStore(t)
	idx := newIndex(t, s)

	// FTS5 operators and broken quoting must not produce query errors.
	for _, q := range []string{`navigation AND`, `"unbalanced`, `nav*`, `NOT x`} {
		_, err := idx.SearchDocuments(context.Background(), q, "", 10)
		require.NoError(t, err, "query %q", q)
	}
}

func TestSearchDocuments_FallbackOnPreparationFailure(t *testing.T) {
	s := seedStore(t)
	idx := newIndex(t, brokenFTS{Backend: s})
	ctx := context.Background()

	res, err := idx.SearchDocuments(ctx, "NavigationStack", "", 10)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "guides/nav.md", res.Matches[0].Document.Path)
}

func TestSearchDocuments_CachedAcrossCalls(t *testing.T) {
	s := seedStore(t)
	idx := newIndex(t, s)
	ctx := context.Background()

	first, err := idx.SearchDocuments(ctx, "navigation", "", 10)
	require.NoError(t, err)
	second, err := idx.SearchDocuments(ctx, "navigation", "", 10)
	require.NoError(t, err)

	// Identical query against an unchanged store returns the same cached
	// result value.
	assert.Same(t, first, second)
}

func TestSearchDocuments_CacheInvalidatedByWrites(t *testing.T) {
	s := seedStore(t)
	idx := newIndex(t, s)
	ctx := context.Background()

	before, err := idx.SearchDocuments(ctx, "navigation", "", 10)
	require.NoError(t, err)
	require.Len(t, before.Matches, 1)

	require.NoError(t, s.UpsertDocument(ctx, &store.Document{
		Title:        "Advanced Navigation",
		Content:      "Programmatic navigation with paths.",
		Path:         "guides/nav2.md",
		DocumentType: store.DocumentTypeTechnical,
		Category:     "guides",
	}))

	after, err := idx.SearchDocuments(ctx, "navigation", "", 10)
	require.NoError(t, err)
	assert.Len(t, after.Matches, 2, "new writes must be visible immediately")
}

func TestSearchPatterns_FullTextAndScope(t *testing.T) {
	s := seedStore(t)
	idx := newIndex(t, s)
	ctx := context.Background()

	res, err := idx.SearchPatterns(ctx, "observation", "swiftui", 10)
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "scoped-observation", res.Matches[0].Pattern.Name)

	scoped, err := idx.SearchPatterns(ctx, "observation", "tca", 10)
	require.NoError(t, err)
	assert.Empty(t, scoped.Matches)
}

func TestSearchPatterns_FallbackOnPreparationFailure(t *testing.T) {
	s := seedStore(t)
	idx := newIndex(t, brokenFTS{Backend: s})

	res, err := idx.SearchPatterns(context.Background(), "observation", "", 10)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	require.Len(t, res.Matches, 1)
}

func TestListingUnaffectedByDegradedSearch(t *testing.T) {
	s := seedStore(t)
	idx := newIndex(t, brokenFTS{Backend: s})
	ctx := context.Background()

	docs, err := idx.DocumentsByCategory(ctx, "guides")
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	patterns, err := idx.PatternsByDomain(ctx, "swiftui")
	require.NoError(t, err)
	assert.Len(t, patterns, 1)
}

func TestBuildMatchQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"navigation", `"navigation"`},
		{"swiftui navigation", `"swiftui" "navigation"`},
		{`"phrase query"`, `"phrase" "query"`},
		{"  padded  ", `"padded"`},
		{"", ""},
		{`"'`, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, buildMatchQuery(tt.in), "input %q", tt.in)
	}
}
