package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	kberr "github.com/refdex/refdex/internal/errors"
)

// substringLimit caps fallback substring scans to bound worst-case cost.
const substringLimit = 50

// UpsertDocument inserts or replaces a document keyed by path.
// Tags are serialized sorted and comma-joined at this boundary only.
func (s *Store) UpsertDocument(ctx context.Context, doc *Document) error {
	if doc.Path == "" {
		return fmt.Errorf("document has no path")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return kberr.ConnectionError("store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return kberr.ConnectionError("cannot begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents
			(title, content, path, document_type, category, subcategory,
			 role, enforcement_level, tags, file_size, line_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			document_type = excluded.document_type,
			category = excluded.category,
			subcategory = excluded.subcategory,
			role = excluded.role,
			enforcement_level = excluded.enforcement_level,
			tags = excluded.tags,
			file_size = excluded.file_size,
			line_count = excluded.line_count`,
		doc.Title, doc.Content, doc.Path, string(doc.DocumentType),
		doc.Category, nullable(doc.Subcategory), doc.Role, doc.EnforcementLevel,
		serializeTags(doc.Tags), doc.FileSize, doc.LineCount, createdAt)
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.Path, err)
	}

	if s.ftsAvailable {
		// FTS5 virtual tables don't support REPLACE, so delete first.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM documents_fts WHERE path = ?`, doc.Path); err != nil {
			return fmt.Errorf("clear document mirror %s: %w", doc.Path, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents_fts (path, title, content, tags) VALUES (?, ?, ?, ?)`,
			doc.Path, doc.Title, doc.Content, strings.Join(doc.Tags.Sorted(), " ")); err != nil {
			return fmt.Errorf("mirror document %s: %w", doc.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit document %s: %w", doc.Path, err)
	}

	s.generation.Add(1)
	return nil
}

// GetDocumentByPath fetches a single document by its path key.
// Returns nil when not found.
func (s *Store) GetDocumentByPath(ctx context.Context, path string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, documentColumns+` WHERE path = ?`, path)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return doc, err
}

// DocumentsByCategory lists documents with an exact category match,
// ordered by title ascending. Always available regardless of full-text
// capability, and uncapped: domain queries are bounded by corpus
// partitioning.
func (s *Store) DocumentsByCategory(ctx context.Context, category string) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		documentColumns+` WHERE category = ? ORDER BY title ASC`, category)
	if err != nil {
		return nil, fmt.Errorf("list documents by category: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// SearchDocumentsFullText runs a tokenized match against the documents
// mirror, ranked by FTS5's bm25 scoring. Failures to compile the query
// (missing FTS5 module, absent mirror table) surface as a preparation
// error so the caller can substitute the substring path.
func (s *Store) SearchDocumentsFullText(ctx context.Context, match, category string, limit int) ([]*DocumentMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + documentFieldList("d") + `,
		       snippet(documents_fts, 2, '[', ']', '…', 12),
		       bm25(documents_fts)
		FROM documents_fts f
		JOIN documents d ON d.path = f.path
		WHERE documents_fts MATCH ?`
	args := []any{match}
	if category != "" {
		query += ` AND d.category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY bm25(documents_fts) LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, kberr.PreparationError("full-text document query failed", err)
	}
	defer rows.Close()

	var out []*DocumentMatch
	for rows.Next() {
		doc, snip, score, err := scanDocumentMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document match: %w", err)
		}
		// FTS5 bm25() is negative where lower = better; negate so
		// higher = better.
		out = append(out, &DocumentMatch{Document: doc, Snippet: snip, Score: -score})
	}
	return out, rows.Err()
}

// SearchDocumentsSubstring is the fallback path: case-insensitive
// containment over title, content, and tags in natural storage order,
// capped at substringLimit rows.
func (s *Store) SearchDocumentsSubstring(ctx context.Context, term, category string, limit int) ([]*DocumentMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > substringLimit {
		limit = substringLimit
	}
	like := "%" + escapeLike(term) + "%"

	query := documentColumns + `
		WHERE (title LIKE ? ESCAPE '\'
		   OR content LIKE ? ESCAPE '\'
		   OR tags LIKE ? ESCAPE '\')`
	args := []any{like, like, like}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("substring document query: %w", err)
	}
	defer rows.Close()

	docs, err := collectDocuments(rows)
	if err != nil {
		return nil, err
	}

	out := make([]*DocumentMatch, 0, len(docs))
	for _, d := range docs {
		out = append(out, &DocumentMatch{
			Document: d,
			Snippet:  synthesizeSnippet(d.Content, term),
		})
	}
	return out, nil
}

// Stats returns row counts grouped at query time.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{ByCategory: make(map[string]int64)}

	rows, err := s.db.QueryContext(ctx,
		`SELECT document_type, COUNT(*) FROM documents GROUP BY document_type`)
	if err != nil {
		return nil, fmt.Errorf("group documents by type: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var docType string
		var n int64
		if err := rows.Scan(&docType, &n); err != nil {
			return nil, err
		}
		stats.TotalDocuments += n
		switch DocumentType(docType) {
		case DocumentTypeTechnical:
			stats.Technical = n
		case DocumentTypeProcess:
			stats.Process = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	catRows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM documents GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("group documents by category: %w", err)
	}
	defer catRows.Close()
	for catRows.Next() {
		var cat string
		var n int64
		if err := catRows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		stats.ByCategory[cat] = n
	}
	if err := catRows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM patterns`).Scan(&stats.Patterns); err != nil {
		return nil, fmt.Errorf("count patterns: %w", err)
	}

	return stats, nil
}

const documentColumns = `
	SELECT id, title, content, path, document_type, category,
	       COALESCE(subcategory, ''), role, enforcement_level, tags,
	       file_size, line_count, created_at
	FROM documents`

// documentFieldList returns the document column list qualified by alias,
// matching the scan order of scanDocument.
func documentFieldList(alias string) string {
	cols := []string{
		"id", "title", "content", "path", "document_type", "category",
		"COALESCE(" + alias + ".subcategory, '')", "role", "enforcement_level",
		"tags", "file_size", "line_count", "created_at",
	}
	for i, c := range cols {
		if !strings.HasPrefix(c, "COALESCE") {
			cols[i] = alias + "." + c
		}
	}
	return strings.Join(cols, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var docType, tags string
	err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.Path, &docType,
		&doc.Category, &doc.Subcategory, &doc.Role, &doc.EnforcementLevel,
		&tags, &doc.FileSize, &doc.LineCount, &doc.CreatedAt)
	if err != nil {
		return nil, err
	}
	doc.DocumentType = DocumentType(docType)
	doc.Tags = ParseTags(tags)
	return &doc, nil
}

func scanDocumentMatch(row rowScanner) (*Document, string, float64, error) {
	var doc Document
	var docType, tags, snippet string
	var score float64
	err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.Path, &docType,
		&doc.Category, &doc.Subcategory, &doc.Role, &doc.EnforcementLevel,
		&tags, &doc.FileSize, &doc.LineCount, &doc.CreatedAt,
		&snippet, &score)
	if err != nil {
		return nil, "", 0, err
	}
	doc.DocumentType = DocumentType(docType)
	doc.Tags = ParseTags(tags)
	return &doc, snippet, score, nil
}

func collectDocuments(rows *sql.Rows) ([]*Document, error) {
	var out []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// nullable maps "" to NULL for optional text columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// escapeLike escapes LIKE metacharacters in a user-supplied term.
func escapeLike(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(term)
}

// synthesizeSnippet builds a short context window around the first
// occurrence of term, mirroring what FTS5 snippet() provides on the
// primary path.
func synthesizeSnippet(content, term string) string {
	const window = 60

	idx := strings.Index(strings.ToLower(content), strings.ToLower(term))
	if idx < 0 {
		if len(content) <= window*2 {
			return content
		}
		return content[:window*2] + "…"
	}

	start := idx - window
	if start < 0 {
		start = 0
	}
	end := idx + len(term) + window
	if end > len(content) {
		end = len(content)
	}

	snippet := content[start:end]
	if start > 0 {
		snippet = "…" + snippet
	}
	if end < len(content) {
		snippet += "…"
	}
	return strings.ReplaceAll(snippet, "\n", " ")
}
