// Package classify derives document records from source files: title,
// tags, and size metrics. Policy metadata (category, role, enforcement
// level) is supplied by the caller per source root, never inferred from
// content.
package classify

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	kberr "github.com/refdex/refdex/internal/errors"
	"github.com/refdex/refdex/internal/store"
)

// Policy is the per-source-root metadata merged into every record.
// Different roots carry different trust and authority metadata that
// content alone cannot determine.
type Policy struct {
	DocumentType     store.DocumentType
	Category         string
	Role             string
	EnforcementLevel string
}

// Classifier extracts metadata from file content using a fixed tag
// vocabulary.
type Classifier struct {
	vocabulary []string
}

// New creates a Classifier with the given marker vocabulary.
func New(vocabulary []string) *Classifier {
	return &Classifier{vocabulary: vocabulary}
}

// frontMatter is the subset of YAML front-matter refdex honors.
// Category deliberately maps to Subcategory: the authoritative category
// is policy metadata from the source root.
type frontMatter struct {
	Title    string   `yaml:"title"`
	Tags     []string `yaml:"tags"`
	Category string   `yaml:"category"`
}

// Classify produces a document record for path from its raw bytes,
// merged with the source's policy metadata. Invalid UTF-8 is a read
// error, recoverable at the migration level.
func (c *Classifier) Classify(path string, raw []byte, policy Policy) (*store.Document, error) {
	if !utf8.Valid(raw) {
		return nil, kberr.ReadError(path, nil).WithDetail("reason", "invalid UTF-8")
	}
	content := string(raw)

	fm, body := splitFrontMatter(content)

	title := titleFromPath(path)
	if fm != nil && fm.Title != "" {
		title = fm.Title
	} else if h := firstHeading(body); h != "" {
		title = h
	}

	tags := store.NewTagSet(policy.Category)
	for _, marker := range c.vocabulary {
		if strings.Contains(content, marker) {
			tags.Add(marker)
		}
	}
	if fm != nil {
		for _, t := range fm.Tags {
			tags.Add(t)
		}
	}

	doc := &store.Document{
		Title:            title,
		Content:          content,
		Path:             path,
		DocumentType:     policy.DocumentType,
		Category:         policy.Category,
		Role:             policy.Role,
		EnforcementLevel: policy.EnforcementLevel,
		Tags:             tags,
		FileSize:         int64(len(raw)),
		LineCount:        len(strings.Split(content, "\n")),
	}
	if fm != nil && fm.Category != "" {
		doc.Subcategory = fm.Category
	}
	return doc, nil
}

// titleFromPath derives a title from the filename: extension stripped,
// dashes and underscores replaced by spaces.
func titleFromPath(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.ReplaceAll(stem, "-", " ")
	stem = strings.ReplaceAll(stem, "_", " ")
	return stem
}

// splitFrontMatter extracts YAML front-matter delimited by --- lines.
// Returns nil and the full content when absent or unparseable.
func splitFrontMatter(content string) (*frontMatter, string) {
	if !strings.HasPrefix(content, "---\n") {
		return nil, content
	}
	end := strings.Index(content[4:], "\n---\n")
	if end < 0 {
		return nil, content
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(content[4:4+end]), &fm); err != nil {
		return nil, content
	}
	return &fm, content[4+end+len("\n---\n"):]
}

// firstHeading returns the first level-one markdown heading within the
// leading lines of body, if any.
func firstHeading(body string) string {
	lines := strings.SplitN(body, "\n", 11)
	for i, line := range lines {
		if i == 10 {
			break
		}
		if h, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(h)
		}
	}
	return ""
}
