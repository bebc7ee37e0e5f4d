package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/pipeline"
)

var (
	dlqLimit  int
	dlqDryRun bool
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect and retry dead-lettered reviews",
}

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dead-lettered reviews",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		entries, err := st.ListDeadLetters(ctx, dlqLimit)
		if err != nil {
			return eris.Wrap(err, "list dead letters")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	},
}

var dlqRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-run dead-lettered reviews, clearing entries that succeed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		var opts []pipeline.Option
		if dlqDryRun {
			opts = append(opts, pipeline.WithDryRun())
		}
		p := e.buildPipeline(false, opts...)

		summary, err := p.RetryDeadLetters(ctx, dlqLimit)
		if err != nil {
			return eris.Wrap(err, "retry dead letters")
		}

		zap.L().Info("dead letter retry complete",
			zap.Int("checked", summary.Checked),
			zap.Int("created", summary.Created),
			zap.Int("posted", summary.Posted),
			zap.Int("skipped", summary.Skipped),
			zap.Int("errored", summary.Errored),
		)
		return nil
	},
}

func init() {
	dlqCmd.PersistentFlags().IntVar(&dlqLimit, "limit", 100, "max entries to touch")
	dlqRetryCmd.Flags().BoolVar(&dlqDryRun, "dry-run", false, "report intended actions without writing")
	dlqCmd.AddCommand(dlqListCmd, dlqRetryCmd)
	rootCmd.AddCommand(dlqCmd)
}
