// Package search layers query handling on top of the store: query
// sanitization, full-text matching with a substring fallback, and a
// small LRU result cache.
package search

import (
	"context"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	kberr "github.com/refdex/refdex/internal/errors"
	"github.com/refdex/refdex/internal/store"
)

const (
	// DefaultLimit applies when the caller does not bound the result set.
	DefaultLimit = 10

	// cacheSize bounds the per-entity result caches.
	cacheSize = 50
)

// DocumentResults carries document hits plus how they were produced.
type DocumentResults struct {
	Matches []*store.DocumentMatch
	// Fallback is set when full-text matching was unavailable for this
	// query and substring matching served the results instead.
	Fallback bool
}

// PatternResults carries pattern hits plus how they were produced.
type PatternResults struct {
	Matches  []*store.PatternMatch
	Fallback bool
}

type cacheKey struct {
	query      string
	scope      string
	limit      int
	generation uint64
}

// Backend is the slice of the store the index queries. *store.Store
// satisfies it.
type Backend interface {
	Generation() uint64
	SearchDocumentsFullText(ctx context.Context, match, category string, limit int) ([]*store.DocumentMatch, error)
	SearchDocumentsSubstring(ctx context.Context, term, category string, limit int) ([]*store.DocumentMatch, error)
	SearchPatternsFullText(ctx context.Context, match, domain string, limit int) ([]*store.PatternMatch, error)
	SearchPatternsSubstring(ctx context.Context, term, domain string, limit int) ([]*store.PatternMatch, error)
	DocumentsByCategory(ctx context.Context, category string) ([]*store.Document, error)
	PatternsByDomain(ctx context.Context, domain string) ([]*store.Pattern, error)
}

// Index answers queries against a store. The primary path is FTS5
// matching ranked by bm25; when query preparation fails the index falls
// back to substring matching for that call only, so a capability that
// reappears is picked up on the next query without restarting.
type Index struct {
	store     Backend
	documents *lru.Cache[cacheKey, *DocumentResults]
	patterns  *lru.Cache[cacheKey, *PatternResults]
}

// New builds an Index over s.
func New(s Backend) (*Index, error) {
	docs, err := lru.New[cacheKey, *DocumentResults](cacheSize)
	if err != nil {
		return nil, err
	}
	pats, err := lru.New[cacheKey, *PatternResults](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Index{store: s, documents: docs, patterns: pats}, nil
}

// SearchDocuments finds documents matching query, optionally scoped to
// a category. An empty or unsanitizable query yields no results, not an
// error.
func (idx *Index) SearchDocuments(ctx context.Context, query, category string, limit int) (*DocumentResults, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	match := buildMatchQuery(query)
	if match == "" {
		return &DocumentResults{}, nil
	}

	// Cache keys include the store generation, so entries written before
	// the latest mutation can never be served.
	key := cacheKey{query: match, scope: category, limit: limit, generation: idx.store.Generation()}
	if cached, ok := idx.documents.Get(key); ok {
		return cached, nil
	}

	res := &DocumentResults{}
	matches, err := idx.store.SearchDocumentsFullText(ctx, match, category, limit)
	switch {
	case err == nil:
		res.Matches = matches
	case kberr.IsPreparation(err):
		slog.Debug("full_text_unavailable",
			slog.String("entity", "documents"),
			slog.String("error", err.Error()))
		fallback, ferr := idx.store.SearchDocumentsSubstring(ctx, strings.TrimSpace(query), category, limit)
		if ferr != nil {
			return nil, ferr
		}
		res.Matches = fallback
		res.Fallback = true
	default:
		return nil, err
	}

	idx.documents.Add(key, res)
	return res, nil
}

// SearchPatterns finds patterns matching query, optionally scoped to a
// domain.
func (idx *Index) SearchPatterns(ctx context.Context, query, domain string, limit int) (*PatternResults, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	match := buildMatchQuery(query)
	if match == "" {
		return &PatternResults{}, nil
	}

	key := cacheKey{query: match, scope: domain, limit: limit, generation: idx.store.Generation()}
	if cached, ok := idx.patterns.Get(key); ok {
		return cached, nil
	}

	res := &PatternResults{}
	matches, err := idx.store.SearchPatternsFullText(ctx, match, domain, limit)
	switch {
	case err == nil:
		res.Matches = matches
	case kberr.IsPreparation(err):
		slog.Debug("full_text_unavailable",
			slog.String("entity", "patterns"),
			slog.String("error", err.Error()))
		fallback, ferr := idx.store.SearchPatternsSubstring(ctx, strings.TrimSpace(query), domain, limit)
		if ferr != nil {
			return nil, ferr
		}
		res.Matches = fallback
		res.Fallback = true
	default:
		return nil, err
	}

	idx.patterns.Add(key, res)
	return res, nil
}

// DocumentsByCategory lists a category without touching the full-text
// machinery, so domain browsing stays available in degraded mode.
func (idx *Index) DocumentsByCategory(ctx context.Context, category string) ([]*store.Document, error) {
	return idx.store.DocumentsByCategory(ctx, category)
}

// PatternsByDomain lists a domain without touching the full-text
// machinery.
func (idx *Index) PatternsByDomain(ctx context.Context, domain string) ([]*store.Pattern, error) {
	return idx.store.PatternsByDomain(ctx, domain)
}

// buildMatchQuery converts free text into an FTS5 MATCH expression.
// Each token is double-quoted so user input can never be parsed as
// MATCH syntax; tokens are ANDed, FTS5's default.
func buildMatchQuery(query string) string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '"' || r == '\''
	})
	if len(fields) == 0 {
		return ""
	}

	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+f+`"`)
	}
	return strings.Join(quoted, " ")
}
