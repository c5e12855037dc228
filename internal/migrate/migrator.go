// Package migrate walks configured source roots and loads their files
// into the store as documents or patterns.
package migrate

import (
	"context"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/refdex/refdex/internal/classify"
	"github.com/refdex/refdex/internal/config"
	kberr "github.com/refdex/refdex/internal/errors"
	"github.com/refdex/refdex/internal/scanner"
	"github.com/refdex/refdex/internal/store"
)

// Migrator ingests all configured sources into a store. Per-file
// failures are skipped and reported; only store-level fatal errors
// abort a run.
type Migrator struct {
	store      *store.Store
	scanner    *scanner.Scanner
	classifier *classify.Classifier
	sources    []config.Source
}

// New builds a Migrator from configuration.
func New(st *store.Store, cfg *config.Config) *Migrator {
	return &Migrator{
		store:      st,
		scanner:    scanner.New(cfg.Extensions),
		classifier: classify.New(cfg.TagVocabulary),
		sources:    cfg.Sources,
	}
}

// Skip records one file left out of a run and why.
type Skip struct {
	Path   string
	Reason string
}

// SourceSummary reports the outcome for one source root.
type SourceSummary struct {
	Name     string
	Root     string
	Kind     config.SourceKind
	Missing  bool
	Imported int
	Skips    []Skip
	// ScanSkipped counts entries the scanner could not read, on top of
	// the per-file Skips recorded during ingestion.
	ScanSkipped int
}

// Summary reports a whole migration run.
type Summary struct {
	Sources  []SourceSummary
	Duration time.Duration
}

// Imported totals records across all sources.
func (s *Summary) Imported() int {
	var n int
	for _, src := range s.Sources {
		n += src.Imported
	}
	return n
}

// Skipped totals skipped entries across all sources, scan-level
// skips included.
func (s *Summary) Skipped() int {
	var n int
	for _, src := range s.Sources {
		n += len(src.Skips) + src.ScanSkipped
	}
	return n
}

// Run migrates every configured source. A missing root contributes zero
// records and is not an error; unreadable or malformed files are
// skipped. Only fatal store errors end the run early.
func (m *Migrator) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}

	for _, src := range m.sources {
		srcSummary, err := m.runSource(ctx, src)
		if err != nil {
			return nil, err
		}
		summary.Sources = append(summary.Sources, *srcSummary)
	}

	summary.Duration = time.Since(start)
	slog.Info("migration_complete",
		slog.Int("sources", len(summary.Sources)),
		slog.Int("imported", summary.Imported()),
		slog.Int("skipped", summary.Skipped()),
		slog.Duration("duration", summary.Duration))
	return summary, nil
}

func (m *Migrator) runSource(ctx context.Context, src config.Source) (*SourceSummary, error) {
	out := &SourceSummary{Name: src.Name, Root: src.Root, Kind: src.Kind}

	res, err := m.scanner.Scan(ctx, src.Root)
	if err != nil {
		return nil, err
	}
	if res.RootMissing {
		out.Missing = true
		return out, nil
	}
	out.ScanSkipped = res.Skipped

	policy := classify.Policy{
		DocumentType:     store.DocumentType(src.DocumentType),
		Category:         src.Category,
		Role:             src.Role,
		EnforcementLevel: src.EnforcementLevel,
	}

	for _, file := range res.Files {
		raw, err := os.ReadFile(file.AbsPath)
		if err != nil {
			out.Skips = append(out.Skips, Skip{Path: file.Path, Reason: "unreadable: " + err.Error()})
			continue
		}

		// Keyed by source name plus relative path: stable when a root
		// moves between machines, distinct across overlapping roots.
		key := path.Join(src.Name, file.Path)

		var ingestErr error
		switch src.Kind {
		case config.KindPatterns:
			ingestErr = m.ingestPattern(ctx, out, key, string(raw), src.Category)
		default:
			ingestErr = m.ingestDocument(ctx, out, key, raw, policy)
		}
		if ingestErr != nil {
			return nil, ingestErr
		}
	}

	slog.Info("source_migrated",
		slog.String("source", src.Name),
		slog.Int("imported", out.Imported),
		slog.Int("skipped", len(out.Skips)+out.ScanSkipped))
	return out, nil
}

func (m *Migrator) ingestDocument(ctx context.Context, out *SourceSummary, key string, raw []byte, policy classify.Policy) error {
	doc, err := m.classifier.Classify(key, raw, policy)
	if err != nil {
		out.Skips = append(out.Skips, Skip{Path: key, Reason: err.Error()})
		return nil
	}

	if err := m.store.UpsertDocument(ctx, doc); err != nil {
		if kberr.IsFatal(err) {
			return err
		}
		out.Skips = append(out.Skips, Skip{Path: key, Reason: err.Error()})
		return nil
	}

	out.Imported++
	return nil
}

func (m *Migrator) ingestPattern(ctx context.Context, out *SourceSummary, key, content, domain string) error {
	p, err := parsePattern(key, content, domain)
	if err != nil {
		out.Skips = append(out.Skips, Skip{Path: key, Reason: err.Error()})
		return nil
	}

	// Upsert by name: re-running migration refreshes curated patterns in
	// place rather than erroring on every existing record.
	if err := m.store.UpsertPattern(ctx, p); err != nil {
		if kberr.IsFatal(err) {
			return err
		}
		out.Skips = append(out.Skips, Skip{Path: key, Reason: err.Error()})
		return nil
	}

	out.Imported++
	return nil
}
