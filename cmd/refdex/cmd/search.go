package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/refdex/refdex/internal/output"
	"github.com/refdex/refdex/internal/search"
	"github.com/refdex/refdex/internal/store"
)

func newSearchCmd() *cobra.Command {
	var (
		domain   string
		limit    int
		patterns bool
		list     bool
		format   string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search documents and patterns",
		Long: `Search the knowledge base. The primary path is full-text matching
ranked by relevance; when the full-text index is unavailable, search
falls back to substring matching and says so.

With --list, the query is treated as a category (or domain with
--patterns) and its records are listed without ranking.`,
		Example: `  refdex search "navigation stack"
  refdex search --domain swiftui --limit 5 observation
  refdex search --patterns "re-render"
  refdex search --list guides`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), domain, limit, patterns, list, format)
		},
	}

	cmd.Flags().StringVarP(&domain, "domain", "d", "", "Scope to a category (documents) or domain (patterns)")
	cmd.Flags().IntVarP(&limit, "limit", "n", search.DefaultLimit, "Maximum number of results")
	cmd.Flags().BoolVarP(&patterns, "patterns", "p", false, "Search patterns instead of documents")
	cmd.Flags().BoolVar(&list, "list", false, "List a category or domain instead of searching")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, json)")
	return cmd
}

func runSearch(cmd *cobra.Command, query, domain string, limit int, patterns, list bool, format string) error {
	fm, err := output.ParseFormat(format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	idx, err := search.New(st)
	if err != nil {
		return err
	}

	printer := output.NewPrinter(cmd.OutOrStdout(), fm)
	ctx := cmd.Context()

	switch {
	case list && patterns:
		listed, err := idx.PatternsByDomain(ctx, query)
		if err != nil {
			return err
		}
		return printer.PatternMatches(asPatternResults(listed))
	case list:
		listed, err := idx.DocumentsByCategory(ctx, query)
		if err != nil {
			return err
		}
		return printer.DocumentMatches(asDocumentResults(listed))
	case patterns:
		res, err := idx.SearchPatterns(ctx, query, domain, limit)
		if err != nil {
			return err
		}
		return printer.PatternMatches(res)
	default:
		res, err := idx.SearchDocuments(ctx, query, domain, limit)
		if err != nil {
			return err
		}
		return printer.DocumentMatches(res)
	}
}

func asDocumentResults(docs []*store.Document) *search.DocumentResults {
	res := &search.DocumentResults{}
	for _, d := range docs {
		res.Matches = append(res.Matches, &store.DocumentMatch{Document: d})
	}
	return res
}

func asPatternResults(patterns []*store.Pattern) *search.PatternResults {
	res := &search.PatternResults{}
	for _, p := range patterns {
		res.Matches = append(res.Matches, &store.PatternMatch{Pattern: p})
	}
	return res
}
