package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"ocrcache/internal/keylock"
	"ocrcache/internal/recognition"
)

type processSummary struct {
	Engine          string                 `json:"engine"`
	CacheKey        string                 `json:"cache_key"`
	FileFingerprint string                 `json:"file_fingerprint"`
	Cached          bool                   `json:"cached"`
	JobID           string                 `json:"job_id,omitempty"`
	ProcessingTime  float64                `json:"processing_time"`
	Statistics      recognition.Statistics `json:"statistics"`
	Pages           []recognition.Page     `json:"results"`
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var flags settingsFlags
	var noCache bool
	var showText bool

	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Recognize a file, reusing a cached result when available",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cache, err := ctx.resultCache(cmd)
			if err != nil {
				return err
			}
			store, err := ctx.openJobs()
			if err != nil {
				return err
			}
			var recorder recognition.JobRecorder
			if store != nil {
				defer store.Close()
				recorder = store
			}

			logger := ctx.logger(cmd)
			locker := keylock.New(keylock.Options{
				Dir:          cfg.Cache.LockDir,
				CrossProcess: cfg.Cache.CrossProcessLock,
			}, logger)
			runner := recognition.NewRunner(cache, locker, recorder, recognition.RunnerOptions{
				MaxFileSize: cfg.MaxFileSizeBytes(),
			}, logger)

			path := args[0]
			out, err := runner.Process(cmd.Context(), recognition.Request{
				Filename: filepath.Base(path),
				Path:     path,
				Settings: flags.resolve(cmd, cfg),
				UseCache: !noCache,
			})
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, processSummary{
					Engine:          out.Result.Engine,
					CacheKey:        out.CacheKey,
					FileFingerprint: out.FileFingerprint,
					Cached:          out.Cached,
					JobID:           out.JobID,
					ProcessingTime:  out.Elapsed.Seconds(),
					Statistics:      out.Result.Statistics,
					Pages:           out.Result.Pages,
				})
			}
			w := cmd.OutOrStdout()
			stats := out.Result.Statistics
			fmt.Fprintf(w, "Engine:      %s\n", out.Result.Engine)
			fmt.Fprintf(w, "Cache key:   %s\n", out.CacheKey)
			fmt.Fprintf(w, "Cached:      %s\n", yesNo(out.Cached))
			if out.JobID != "" {
				fmt.Fprintf(w, "Job:         %s\n", out.JobID)
			}
			fmt.Fprintf(w, "Pages:       %d\n", stats.TotalPages)
			fmt.Fprintf(w, "Text blocks: %d\n", stats.TotalTextBlocks)
			fmt.Fprintf(w, "Characters:  %d\n", stats.TotalCharacters)
			fmt.Fprintf(w, "Confidence:  %s\n", strconv.FormatFloat(stats.AverageConfidence, 'f', 3, 64))
			fmt.Fprintf(w, "Elapsed:     %s\n", out.Elapsed.Round(time.Millisecond))
			if showText {
				for _, page := range out.Result.Pages {
					fmt.Fprintf(w, "\n--- page %d ---\n%s\n", page.Number, page.Text)
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the result cache")
	cmd.Flags().BoolVar(&showText, "text", false, "Print recognized text")
	return cmd
}
