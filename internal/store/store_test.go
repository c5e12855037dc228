package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kberr "github.com/refdex/refdex/internal/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_CreatesSchemaOnDisk(t *testing.T) {
	// Given a fresh path in a directory that does not exist yet
	path := filepath.Join(t.TempDir(), "nested", "refdex.db")

	// When the store opens
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	// Then the schema is usable immediately
	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalDocuments)
	assert.Zero(t, stats.Patterns)
}

func TestOpen_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refdex.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.UpsertDocument(context.Background(), &Document{
		Title: "Keep", Content: "body", Path: "keep.md",
		DocumentType: DocumentTypeTechnical, Category: "guides",
	}))
	require.NoError(t, s.Close())

	// Reopening must not recreate or wipe tables.
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	doc, err := s2.GetDocumentByPath(context.Background(), "keep.md")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "Keep", doc.Title)
}

func TestOpen_SecondProcessLockedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refdex.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = Open(path)
	require.Error(t, err)
	assert.True(t, kberr.IsFatal(err), "a held lock is a connection error")
}

func TestClose_Idempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestGeneration_AdvancesOnWrite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	before := s.Generation()
	require.NoError(t, s.UpsertDocument(ctx, &Document{
		Title: "A", Content: "a", Path: "a.md",
		DocumentType: DocumentTypeTechnical, Category: "guides",
	}))
	assert.Greater(t, s.Generation(), before)

	// Reads leave the generation alone.
	mid := s.Generation()
	_, err := s.GetDocumentByPath(ctx, "a.md")
	require.NoError(t, err)
	assert.Equal(t, mid, s.Generation())
}

func TestFullTextAvailable(t *testing.T) {
	s := openTestStore(t)
	assert.True(t, s.FullTextAvailable(), "modernc.org/sqlite ships FTS5")
}

func TestDegradedStore_StillIngestsAndLists(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Simulate a runtime without the FTS5 module: mirror writes are
	// skipped, everything else must keep working.
	s.ftsAvailable = false

	require.NoError(t, s.UpsertDocument(ctx, &Document{
		Title: "Plain", Content: "no mirror for this one", Path: "plain.md",
		DocumentType: DocumentTypeTechnical, Category: "guides",
	}))
	require.NoError(t, s.InsertPattern(ctx, &Pattern{
		Name: "plain", Domain: "guides", Problem: "p", Solution: "s", IsCurrent: true,
	}))

	docs, err := s.DocumentsByCategory(ctx, "guides")
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	matches, err := s.SearchDocumentsSubstring(ctx, "mirror", "", 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestTagSet_RoundTrip(t *testing.T) {
	tags := NewTagSet("swiftui", "ios", "tca")

	restored := ParseTags(serializeTags(tags))
	assert.True(t, tags.Equal(restored))
	assert.Equal(t, []string{"ios", "swiftui", "tca"}, restored.Sorted())
}

func TestTagSet_IgnoresEmptyAndWhitespace(t *testing.T) {
	tags := NewTagSet("a", "", "  ", " b ")
	assert.Equal(t, []string{"a", "b"}, tags.Sorted())

	assert.Empty(t, ParseTags("").Sorted())
}
