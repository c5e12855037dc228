package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	kberr "github.com/refdex/refdex/internal/errors"
)

// InsertPattern inserts a new pattern. The caller guarantees name
// uniqueness; a duplicate surfaces as a unique constraint violation that
// the caller must resolve explicitly (update, skip, or report). Unlike
// documents, there is no implicit upsert on this path.
func (s *Store) InsertPattern(ctx context.Context, p *Pattern) error {
	if p.Name == "" {
		return fmt.Errorf("pattern has no name")
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

	if err := insertPatternTx(ctx, tx, p, s.ftsAvailable); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit pattern %s: %w", p.Name, err)
	}

	s.generation.Add(1)
	return nil
}

// UpsertPattern inserts or fully replaces a pattern keyed by name.
// The original created_at is preserved on replacement.
func (s *Store) UpsertPattern(ctx context.Context, p *Pattern) error {
	if p.Name == "" {
		return fmt.Errorf("pattern has no name")
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

	fillPatternDefaults(p)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO patterns
			(id, name, domain, problem, solution, code_example,
			 created_at, last_validated, is_current, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			domain = excluded.domain,
			problem = excluded.problem,
			solution = excluded.solution,
			code_example = excluded.code_example,
			last_validated = excluded.last_validated,
			is_current = excluded.is_current,
			notes = excluded.notes`,
		p.ID, p.Name, p.Domain, p.Problem, p.Solution,
		nullable(p.CodeExample), p.CreatedAt, p.LastValidated,
		p.IsCurrent, nullable(p.Notes))
	if err != nil {
		return fmt.Errorf("upsert pattern %s: %w", p.Name, err)
	}

	if s.ftsAvailable {
		if err := mirrorPatternTx(ctx, tx, p); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit pattern %s: %w", p.Name, err)
	}

	s.generation.Add(1)
	return nil
}

// insertPatternTx performs the plain insert inside a transaction.
func insertPatternTx(ctx context.Context, tx *sql.Tx, p *Pattern, fts bool) error {
	fillPatternDefaults(p)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO patterns
			(id, name, domain, problem, solution, code_example,
			 created_at, last_validated, is_current, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Domain, p.Problem, p.Solution,
		nullable(p.CodeExample), p.CreatedAt, p.LastValidated,
		p.IsCurrent, nullable(p.Notes))
	if err != nil {
		if isUniqueViolation(err) {
			return kberr.UniqueConstraintError(p.Name, err)
		}
		return fmt.Errorf("insert pattern %s: %w", p.Name, err)
	}

	if fts {
		return mirrorPatternTx(ctx, tx, p)
	}
	return nil
}

// mirrorPatternTx refreshes the pattern's row in the FTS mirror.
func mirrorPatternTx(ctx context.Context, tx *sql.Tx, p *Pattern) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM patterns_fts WHERE name = ?`, p.Name); err != nil {
		return fmt.Errorf("clear pattern mirror %s: %w", p.Name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO patterns_fts (name, domain, problem, solution) VALUES (?, ?, ?, ?)`,
		p.Name, p.Domain, p.Problem, p.Solution); err != nil {
		return fmt.Errorf("mirror pattern %s: %w", p.Name, err)
	}
	return nil
}

func fillPatternDefaults(p *Pattern) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
}

// GetPatternByName fetches a single pattern by name. Returns nil when
// not found.
func (s *Store) GetPatternByName(ctx context.Context, name string) (*Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, patternColumns+` WHERE name = ?`, name)
	p, err := scanPattern(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// PatternsByDomain lists patterns with an exact domain match, ordered by
// name ascending, uncapped.
func (s *Store) PatternsByDomain(ctx context.Context, domain string) ([]*Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		patternColumns+` WHERE domain = ? ORDER BY name ASC`, domain)
	if err != nil {
		return nil, fmt.Errorf("list patterns by domain: %w", err)
	}
	defer rows.Close()

	return collectPatterns(rows)
}

// SearchPatternsFullText runs a tokenized match against the patterns
// mirror, ranked by bm25. Compilation failures surface as preparation
// errors for the fallback path.
func (s *Store) SearchPatternsFullText(ctx context.Context, match, domain string, limit int) ([]*PatternMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + patternFieldList("p") + `,
		       snippet(patterns_fts, 3, '[', ']', '…', 12),
		       bm25(patterns_fts)
		FROM patterns_fts f
		JOIN patterns p ON p.name = f.name
		WHERE patterns_fts MATCH ?`
	args := []any{match}
	if domain != "" {
		query += ` AND p.domain = ?`
		args = append(args, domain)
	}
	query += ` ORDER BY bm25(patterns_fts) LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, kberr.PreparationError("full-text pattern query failed", err)
	}
	defer rows.Close()

	var out []*PatternMatch
	for rows.Next() {
		p, snip, score, err := scanPatternMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pattern match: %w", err)
		}
		out = append(out, &PatternMatch{Pattern: p, Snippet: snip, Score: -score})
	}
	return out, rows.Err()
}

// SearchPatternsSubstring is the fallback path over name, domain,
// problem, and solution, capped at substringLimit rows.
func (s *Store) SearchPatternsSubstring(ctx context.Context, term, domain string, limit int) ([]*PatternMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > substringLimit {
		limit = substringLimit
	}
	like := "%" + escapeLike(term) + "%"

	query := patternColumns + `
		WHERE (name LIKE ? ESCAPE '\'
		   OR domain LIKE ? ESCAPE '\'
		   OR problem LIKE ? ESCAPE '\'
		   OR solution LIKE ? ESCAPE '\')`
	args := []any{like, like, like, like}
	if domain != "" {
		query += ` AND domain = ?`
		args = append(args, domain)
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("substring pattern query: %w", err)
	}
	defer rows.Close()

	patterns, err := collectPatterns(rows)
	if err != nil {
		return nil, err
	}

	out := make([]*PatternMatch, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, &PatternMatch{
			Pattern: p,
			Snippet: synthesizeSnippet(p.Problem+" "+p.Solution, term),
		})
	}
	return out, nil
}

const patternColumns = `
	SELECT id, name, domain, problem, solution, COALESCE(code_example, ''),
	       created_at, last_validated, is_current, COALESCE(notes, '')
	FROM patterns`

func patternFieldList(alias string) string {
	cols := []string{
		alias + ".id", alias + ".name", alias + ".domain", alias + ".problem",
		alias + ".solution", "COALESCE(" + alias + ".code_example, '')",
		alias + ".created_at", alias + ".last_validated", alias + ".is_current",
		"COALESCE(" + alias + ".notes, '')",
	}
	return strings.Join(cols, ", ")
}

func scanPattern(row rowScanner) (*Pattern, error) {
	var p Pattern
	err := row.Scan(&p.ID, &p.Name, &p.Domain, &p.Problem, &p.Solution,
		&p.CodeExample, &p.CreatedAt, &p.LastValidated, &p.IsCurrent, &p.Notes)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPatternMatch(row rowScanner) (*Pattern, string, float64, error) {
	var p Pattern
	var snippet string
	var score float64
	err := row.Scan(&p.ID, &p.Name, &p.Domain, &p.Problem, &p.Solution,
		&p.CodeExample, &p.CreatedAt, &p.LastValidated, &p.IsCurrent, &p.Notes,
		&snippet, &score)
	if err != nil {
		return nil, "", 0, err
	}
	return &p, snippet, score, nil
}

func collectPatterns(rows *sql.Rows) ([]*Pattern, error) {
	var out []*Pattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
