package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kberr "github.com/refdex/refdex/internal/errors"
)

func testPattern(name string) *Pattern {
	return &Pattern{
		Name:        name,
		Domain:      "swiftui",
		Problem:     "Deep view hierarchies re-render too often.",
		Solution:    "Scope observation with @Observable and equatable sub-views.",
		CodeExample: "struct Row: View { ... }",
		IsCurrent:   true,
	}
}

func TestInsertPattern_AssignsDefaults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := testPattern("scoped-observation")
	require.NoError(t, s.InsertPattern(ctx, p))

	got, err := s.GetPatternByName(ctx, "scoped-observation")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.CreatedAt.IsZero())
	assert.True(t, got.IsCurrent)
	assert.Nil(t, got.LastValidated)
}

func TestInsertPattern_DuplicateNameIsConstraintViolation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertPattern(ctx, testPattern("dup")))

	err := s.InsertPattern(ctx, testPattern("dup"))
	require.Error(t, err)
	assert.True(t, kberr.IsConflict(err))
	assert.False(t, kberr.IsFatal(err), "the caller decides how to resolve a duplicate")

	// The first record is untouched.
	got, err := s.GetPatternByName(ctx, "dup")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestUpsertPattern_ReplacesByName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Given a stored pattern
	require.NoError(t, s.UpsertPattern(ctx, testPattern("scoped-observation")))
	first, err := s.GetPatternByName(ctx, "scoped-observation")
	require.NoError(t, err)
	require.NotNil(t, first)

	// When the same name is upserted with a revised solution
	validated := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	revised := testPattern("scoped-observation")
	revised.Solution = "Prefer @Observable over ObservableObject."
	revised.LastValidated = &validated
	require.NoError(t, s.UpsertPattern(ctx, revised))

	// Then the record is replaced in place, created_at preserved
	second, err := s.GetPatternByName(ctx, "scoped-observation")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "Prefer @Observable over ObservableObject.", second.Solution)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	require.NotNil(t, second.LastValidated)
	assert.Equal(t, validated, second.LastValidated.UTC())

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Patterns)
}

func TestGetPatternByName_NotFound(t *testing.T) {
	s := openTestStore(t)

	p, err := s.GetPatternByName(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestPatternsByDomain_OrderedAndExclusive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, s.InsertPattern(ctx, testPattern(name)))
	}
	other := testPattern("other-domain")
	other.Domain = "tca"
	require.NoError(t, s.InsertPattern(ctx, other))

	patterns, err := s.PatternsByDomain(ctx, "swiftui")
	require.NoError(t, err)
	require.Len(t, patterns, 3)
	assert.Equal(t, "alpha", patterns[0].Name)
	assert.Equal(t, "mid", patterns[1].Name)
	assert.Equal(t, "zeta", patterns[2].Name)

	tca, err := s.PatternsByDomain(ctx, "tca")
	require.NoError(t, err)
	require.Len(t, tca, 1)
	assert.Equal(t, "other-domain", tca[0].Name)
}

func TestSearchPatternsFullText_DomainFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := testPattern("render-scope")
	require.NoError(t, s.InsertPattern(ctx, a))

	b := testPattern("reducer-scope")
	b.Domain = "tca"
	b.Problem = "Reducers re-render the whole tree."
	require.NoError(t, s.InsertPattern(ctx, b))

	matches, err := s.SearchPatternsFullText(ctx, `"re-render"`, "tca", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "reducer-scope", matches[0].Pattern.Name)
	assert.Greater(t, matches[0].Score, 0.0)
}

func TestSearchPatternsFullText_MissingMirrorIsPreparationError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertPattern(ctx, testPattern("p")))

	_, err := s.db.Exec(`DROP TABLE patterns_fts`)
	require.NoError(t, err)

	_, err = s.SearchPatternsFullText(ctx, `"render"`, "", 10)
	require.Error(t, err)
	assert.True(t, kberr.IsPreparation(err))
}

func TestSearchPatternsSubstring_MatchesAllTextColumns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertPattern(ctx, testPattern("scoped-observation")))

	for _, term := range []string{"scoped-obs", "swiftui", "re-render", "equatable"} {
		matches, err := s.SearchPatternsSubstring(ctx, term, "", 10)
		require.NoError(t, err)
		assert.Len(t, matches, 1, "term %q", term)
	}

	none, err := s.SearchPatternsSubstring(ctx, "kotlin", "", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
