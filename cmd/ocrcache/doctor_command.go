package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ocrcache/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, disk space and the configured engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			failed := preflight.Failed(results)

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					status := "ok"
					if !r.Passed {
						status = "FAIL"
					}
					rows = append(rows, []string{r.Name, status, r.Detail})
				}
				writeRows(cmd, []string{"Check", "Status", "Detail"}, rows, nil)
			}

			if len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}
}
