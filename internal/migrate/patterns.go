package migrate

import (
	"fmt"
	"path"
	"strings"

	"github.com/refdex/refdex/internal/store"
)

// parsePattern synthesizes a pattern record from a markdown file laid
// out with "## Problem" and "## Solution" sections. The first fenced
// code block anywhere in the file becomes the code example; a "## Notes"
// section, when present, is carried verbatim.
func parsePattern(filePath, content, domain string) (*store.Pattern, error) {
	sections := splitSections(content)

	problem := strings.TrimSpace(sections["problem"])
	solution := strings.TrimSpace(sections["solution"])
	if problem == "" || solution == "" {
		return nil, fmt.Errorf("%s: missing Problem or Solution section", filePath)
	}

	name := firstTitle(content)
	if name == "" {
		base := path.Base(filePath)
		name = strings.TrimSuffix(base, path.Ext(base))
	}

	return &store.Pattern{
		Name:        name,
		Domain:      domain,
		Problem:     problem,
		Solution:    solution,
		CodeExample: firstCodeBlock(content),
		Notes:       strings.TrimSpace(sections["notes"]),
		IsCurrent:   true,
	}, nil
}

// splitSections buckets body text under lowercased "## " headings.
func splitSections(content string) map[string]string {
	sections := make(map[string]string)
	var current string
	var buf strings.Builder

	flush := func() {
		if current != "" {
			sections[current] = buf.String()
		}
		buf.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		if h, ok := strings.CutPrefix(line, "## "); ok {
			flush()
			current = strings.ToLower(strings.TrimSpace(h))
			continue
		}
		if current != "" {
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}
	flush()
	return sections
}

// firstTitle returns the first level-one heading, if any.
func firstTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if h, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(h)
		}
	}
	return ""
}

// firstCodeBlock returns the body of the first fenced code block,
// without the fence lines or the language tag.
func firstCodeBlock(content string) string {
	lines := strings.Split(content, "\n")
	var buf strings.Builder
	inBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			if inBlock {
				return strings.TrimRight(buf.String(), "\n")
			}
			inBlock = true
			continue
		}
		if inBlock {
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}
	return ""
}
