package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/pipeline"
)

var (
	pollLimit  int
	pollCursor string
	pollSince  string
	pollFix    bool
	pollDryRun bool
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Fetch recent reviews and upsert tickets for them",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Chatmeter.Key == "" {
			return eris.New("chatmeter api key is required (BRIDGE_CHATMETER_KEY)")
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		var opts []pipeline.Option
		if pollFix {
			opts = append(opts, pipeline.WithFixMode())
		}
		if pollDryRun {
			opts = append(opts, pipeline.WithDryRun())
		}
		p := e.buildPipeline(true, opts...)

		limit := pollLimit
		if limit == 0 {
			limit = cfg.Poll.Limit
		}

		var since time.Time
		if pollSince != "" {
			since, err = parseSince(pollSince)
			if err != nil {
				return err
			}
		}

		summary, err := p.Poll(ctx, pollCursor, since, limit)
		if err != nil {
			return eris.Wrap(err, "poll")
		}

		zap.L().Info("poll complete",
			zap.Int("checked", summary.Checked),
			zap.Int("created", summary.Created),
			zap.Int("posted", summary.Posted),
			zap.Int("skipped", summary.Skipped),
			zap.Int("errored", summary.Errored),
			zap.Bool("dry_run", pollDryRun),
		)
		return nil
	},
}

// parseSince accepts either a lookback duration ("48h") or an RFC 3339
// timestamp.
func parseSince(s string) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return time.Now().UTC().Add(-d), nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, eris.Errorf("invalid --since %q: want a duration or RFC 3339 timestamp", s)
	}
	return ts.UTC(), nil
}

func init() {
	pollCmd.Flags().IntVar(&pollLimit, "limit", 0, "max reviews per poll (default from config)")
	pollCmd.Flags().StringVar(&pollCursor, "cursor", "reviews", "named cursor to resume from")
	pollCmd.Flags().StringVar(&pollSince, "since", "", "override cursor: duration lookback or RFC 3339 timestamp")
	pollCmd.Flags().BoolVar(&pollFix, "fix", false, "overwrite existing notes instead of appending")
	pollCmd.Flags().BoolVar(&pollDryRun, "dry-run", false, "report intended actions without writing")
	rootCmd.AddCommand(pollCmd)
}
