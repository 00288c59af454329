package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ocrcache/internal/fingerprint"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the result cache",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCacheDeleteCommand(ctx))
	cacheCmd.AddCommand(newCacheKeyCommand(ctx))
	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.resultCache(cmd)
			if err != nil {
				return err
			}
			stats := cache.Stats()
			if ctx.jsonOutput() {
				return writeJSON(cmd, stats)
			}
			w := cmd.OutOrStdout()
			if !stats.Enabled {
				fmt.Fprintln(w, "Cache disabled")
				return nil
			}
			fmt.Fprintf(w, "Location:   %s\n", stats.Location)
			fmt.Fprintf(w, "Entries:    %d / %d\n", stats.Items, stats.MaxSize)
			fmt.Fprintf(w, "TTL:        %ds\n", stats.TTLSeconds)
			fmt.Fprintf(w, "Disk usage: %s\n", formatBytes(stats.TotalDiskSize))
			fmt.Fprintf(w, "Free space: %s\n", formatBytes(int64(stats.FreeDiskBytes)))
			return nil
		},
	}
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List entries, most recently used first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.resultCache(cmd)
			if err != nil {
				return err
			}
			entries := cache.List()
			if ctx.jsonOutput() {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Cache is empty")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				state := "live"
				if e.Expired {
					state = "expired"
				}
				rows = append(rows, []string{
					e.Key,
					e.Metadata["filename"],
					e.Metadata["engine"],
					formatTimestamp(e.CreatedAt),
					state,
					strconv.FormatInt(e.SizeBytes, 10),
				})
			}
			writeRows(cmd,
				[]string{"Key", "File", "Engine", "Created", "State", "Bytes"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight})
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cache entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.resultCache(cmd)
			if err != nil {
				return err
			}
			before := cache.Stats().Items
			cache.Clear()
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cache entries\n", before)
			return nil
		},
	}
}

func newCacheDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>...",
		Short: "Remove specific cache entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.resultCache(cmd)
			if err != nil {
				return err
			}
			for _, key := range args {
				if err := cache.Delete(key); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", strings.TrimSpace(key))
			}
			return nil
		},
	}
}

func newCacheKeyCommand(ctx *commandContext) *cobra.Command {
	var flags settingsFlags

	cmd := &cobra.Command{
		Use:   "key <file>",
		Short: "Print the cache key a file would be stored under",
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
			fp, err := fingerprint.File(args[0])
			if err != nil {
				return err
			}
			key, err := cache.Key(fp, flags.resolve(cmd, cfg).Params())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]string{"key": key, "file_fingerprint": fp})
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
