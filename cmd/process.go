package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/pipeline"
)

var (
	processFile string
	processFix  bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process a single review payload from a file or stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var raw []byte
		var err error
		if processFile == "-" || processFile == "" {
			raw, err = io.ReadAll(os.Stdin)
		} else {
			raw, err = os.ReadFile(processFile)
		}
		if err != nil {
			return eris.Wrap(err, "read payload")
		}

		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			return eris.Wrap(err, "parse payload")
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		var opts []pipeline.Option
		if processFix {
			opts = append(opts, pipeline.WithFixMode())
		}
		p := e.buildPipeline(false, opts...)

		res, err := p.Process(ctx, payload)
		if err != nil {
			return eris.Wrap(err, "process review")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	processCmd.Flags().StringVar(&processFile, "file", "-", "payload file, or - for stdin")
	processCmd.Flags().BoolVar(&processFix, "fix", false, "overwrite the existing note instead of appending")
	rootCmd.AddCommand(processCmd)
}
