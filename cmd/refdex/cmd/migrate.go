package cmd

import (
	"github.com/spf13/cobra"

	"github.com/refdex/refdex/internal/migrate"
	"github.com/refdex/refdex/internal/output"
	"github.com/refdex/refdex/internal/store"
)

func newMigrateCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Ingest configured source roots into the knowledge base",
		Long: `Walk every configured source root and load its files as documents
or patterns. Missing roots contribute zero records; unreadable or
malformed files are skipped and reported. The run fails only when the
database cannot be opened or its schema cannot be created.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, json)")
	return cmd
}

func runMigrate(cmd *cobra.Command, format string) error {
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

	summary, err := migrate.New(st, cfg).Run(cmd.Context())
	if err != nil {
		return err
	}

	return output.NewPrinter(cmd.OutOrStdout(), fm).Migration(summary)
}
