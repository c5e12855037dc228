package cmd

import (
	"github.com/spf13/cobra"

	"github.com/refdex/refdex/internal/output"
	"github.com/refdex/refdex/internal/store"
)

func newStatsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge base statistics",
		Long:  `Display document and pattern counts, grouped by type and category.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, json)")
	return cmd
}

func runStats(cmd *cobra.Command, format string) error {
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

	stats, err := st.Stats(cmd.Context())
	if err != nil {
		return err
	}

	return output.NewPrinter(cmd.OutOrStdout(), fm).Stats(stats)
}
