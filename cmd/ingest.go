package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bertel/migration-tool/internal/coordinator"
	"github.com/bertel/migration-tool/internal/fetcher"
	"github.com/bertel/migration-tool/internal/model"
)

var (
	ingestFiles []string
	ingestName  string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest establishment records from files",
	Long:  "Reads envelopes from .json, .xml, .txt, .yaml, .xlsx, and .zip files, runs each through the coordinator, and prints the ingestion responses as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		files := append(append([]string(nil), ingestFiles...), args...)
		if len(files) == 0 {
			return eris.New("ingest: at least one --file is required")
		}

		ctx := cmd.Context()
		env, err := initApp(ctx, cfg, "ingest")
		if err != nil {
			return err
		}
		defer env.Close()

		responses, err := runIngest(cmd.Context(), env.Coordinator, files, ingestName)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), responses)
	},
}

func init() {
	ingestCmd.Flags().StringSliceVarP(&ingestFiles, "file", "f", nil, "envelope file (repeatable)")
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "fallback establishment name")
	rootCmd.AddCommand(ingestCmd)
}

// ingestResult pairs a response with the file it came from.
type ingestResult struct {
	Origin string `json:"origin"`
	model.IngestionResponse
	Error string `json:"error,omitempty"`
}

// runIngest runs every envelope of every file in order. A failing
// envelope is reported in its result; a file that cannot be read aborts.
func runIngest(ctx context.Context, co *coordinator.Coordinator, files []string, fallback string) ([]ingestResult, error) {
	var out []ingestResult
	for _, path := range files {
		sources, err := fetcher.LoadEnvelopes(path)
		if err != nil {
			return out, err
		}
		for _, src := range sources {
			env := src.Envelope
			if fallback != "" {
				env.FallbackName = fallback
			}
			res, err := co.Handle(ctx, env)
			if err != nil {
				zap.L().Warn("ingest: envelope failed", zap.String("origin", src.Origin), zap.Error(err))
				out = append(out, ingestResult{Origin: src.Origin, Error: err.Error()})
				continue
			}
			out = append(out, ingestResult{Origin: src.Origin, IngestionResponse: res.Response()})
		}
	}
	return out, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
