package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kberr "github.com/refdex/refdex/internal/errors"
	"github.com/refdex/refdex/internal/store"
)

var testPolicy = Policy{
	DocumentType:     store.DocumentTypeTechnical,
	Category:         "tca-guides",
	Role:             "reference",
	EnforcementLevel: "advisory",
}

func TestClassify_TitleFromFilename(t *testing.T) {
	c := New(nil)

	doc, err := c.Classify("guides/shared-state_ownership.md", []byte("plain text"), testPolicy)
	require.NoError(t, err)
	assert.Equal(t, "shared state ownership", doc.Title)
}

func TestClassify_TitleFromHeading(t *testing.T) {
	c := New(nil)

	content := "intro line\n# Shared State Ownership\nbody\n"
	doc, err := c.Classify("guides/x.md", []byte(content), testPolicy)
	require.NoError(t, err)
	assert.Equal(t, "Shared State Ownership", doc.Title)
}

func TestClassify_FrontMatterWins(t *testing.T) {
	c := New(nil)

	content := "---\ntitle: Curated Title\ntags: [grdb, cloudkit]\ncategory: persistence\n---\n# Heading Title\nbody\n"
	doc, err := c.Classify("guides/x.md", []byte(content), testPolicy)
	require.NoError(t, err)

	assert.Equal(t, "Curated Title", doc.Title)
	assert.True(t, doc.Tags.Has("grdb"))
	assert.True(t, doc.Tags.Has("cloudkit"))
	// Front-matter category is advisory only; the root's policy category
	// stays authoritative and the front-matter value becomes subcategory.
	assert.Equal(t, "tca-guides", doc.Category)
	assert.Equal(t, "persistence", doc.Subcategory)
}

func TestClassify_VocabularyTags(t *testing.T) {
	c := New([]string{"tca", "reducer", "swiftui"})

	content := "Using a reducer with tca state. reducer appears twice."
	doc, err := c.Classify("guides/x.md", []byte(content), testPolicy)
	require.NoError(t, err)

	assert.True(t, doc.Tags.Has("tca"))
	assert.True(t, doc.Tags.Has("reducer"))
	assert.False(t, doc.Tags.Has("swiftui"))
	// Category always seeds the tag set.
	assert.True(t, doc.Tags.Has("tca-guides"))
	// Duplicates collapse.
	assert.Equal(t, []string{"reducer", "tca", "tca-guides"}, doc.Tags.Sorted())
}

func TestClassify_VocabularyIsCaseSensitive(t *testing.T) {
	c := New([]string{"SwiftUI"})

	doc, err := c.Classify("guides/x.md", []byte("swiftui lowercase only"), testPolicy)
	require.NoError(t, err)
	assert.False(t, doc.Tags.Has("SwiftUI"))
}

func TestClassify_SizeMetrics(t *testing.T) {
	c := New(nil)

	content := "one\ntwo\nthree"
	doc, err := c.Classify("guides/x.md", []byte(content), testPolicy)
	require.NoError(t, err)

	assert.Equal(t, int64(len(content)), doc.FileSize)
	assert.Equal(t, 3, doc.LineCount)
}

func TestClassify_PolicyMetadataApplied(t *testing.T) {
	c := New(nil)

	doc, err := c.Classify("guides/x.md", []byte("body"), testPolicy)
	require.NoError(t, err)

	assert.Equal(t, store.DocumentTypeTechnical, doc.DocumentType)
	assert.Equal(t, "tca-guides", doc.Category)
	assert.Equal(t, "reference", doc.Role)
	assert.Equal(t, "advisory", doc.EnforcementLevel)
	assert.Equal(t, "guides/x.md", doc.Path)
}

func TestClassify_InvalidUTF8IsReadError(t *testing.T) {
	c := New(nil)

	_, err := c.Classify("guides/x.md", []byte{0xff, 0xfe, 0xfd}, testPolicy)
	require.Error(t, err)
	assert.True(t, kberr.IsRead(err))
}

func TestClassify_UnterminatedFrontMatterTreatedAsBody(t *testing.T) {
	c := New(nil)

	content := "---\ntitle: Dangling\nno terminator here\n"
	doc, err := c.Classify("guides/x.md", []byte(content), testPolicy)
	require.NoError(t, err)
	assert.Equal(t, "x", doc.Title)
	assert.Equal(t, content, doc.Content)
}
