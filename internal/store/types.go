// Package store provides the embedded SQLite persistence layer for refdex:
// schema bootstrap, document and pattern CRUD, and the full-text mirror
// tables used by the search layer.
package store

import (
	"sort"
	"strings"
	"time"
)

// DocumentType classifies a stored reference document.
type DocumentType string

const (
	DocumentTypeTechnical DocumentType = "technical"
	DocumentTypeProcess   DocumentType = "process"
)

// Document is a stored reference record derived from one source file.
// Path uniquely identifies a document; re-ingesting the same path
// replaces the prior record in place.
type Document struct {
	ID               int64
	Title            string
	Content          string
	Path             string
	DocumentType     DocumentType
	Category         string
	Subcategory      string
	Role             string
	EnforcementLevel string
	Tags             TagSet
	FileSize         int64
	LineCount        int
	CreatedAt        time.Time
}

// Pattern is a curated problem/solution record, keyed by name.
type Pattern struct {
	ID            string
	Name          string
	Domain        string
	Problem       string
	Solution      string
	CodeExample   string
	CreatedAt     time.Time
	LastValidated *time.Time
	IsCurrent     bool
	Notes         string
}

// DocumentMatch is a search hit for a document.
type DocumentMatch struct {
	Document *Document
	Snippet  string
	Score    float64
}

// PatternMatch is a search hit for a pattern.
type PatternMatch struct {
	Pattern *Pattern
	Snippet string
	Score   float64
}

// Stats summarizes store contents. Counts are computed by grouping at
// query time, never from maintained counters.
type Stats struct {
	TotalDocuments int64
	Technical      int64
	Process        int64
	Patterns       int64
	ByCategory     map[string]int64
}

// TagSet is the in-memory representation of a document's tags.
// Insertion order is irrelevant; the comma-joined string stored in the
// database is a storage-boundary detail only.
type TagSet map[string]struct{}

// NewTagSet builds a TagSet from the given tags.
func NewTagSet(tags ...string) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s.Add(t)
	}
	return s
}

// Add inserts a tag. Empty tags are ignored.
func (s TagSet) Add(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return
	}
	s[tag] = struct{}{}
}

// Has reports whether the set contains tag.
func (s TagSet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

// Sorted returns the tags in ascending order.
func (s TagSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether two sets contain the same tags.
func (s TagSet) Equal(other TagSet) bool {
	if len(s) != len(other) {
		return false
	}
	for t := range s {
		if !other.Has(t) {
			return false
		}
	}
	return true
}

// serializeTags flattens a TagSet to its stored form: sorted, comma-joined.
func serializeTags(s TagSet) string {
	return strings.Join(s.Sorted(), ",")
}

// ParseTags restores a TagSet from its stored form.
func ParseTags(raw string) TagSet {
	s := make(TagSet)
	for _, t := range strings.Split(raw, ",") {
		s.Add(t)
	}
	return s
}
