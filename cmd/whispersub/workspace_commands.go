package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"whispersub/internal/history"
	"whispersub/internal/workspace"
)

func newWorkspaceCommand(ctx *commandContext) *cobra.Command {
	wsCmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage job workspaces under runs_dir",
	}
	wsCmd.AddCommand(newWorkspaceListCommand(ctx))
	wsCmd.AddCommand(newWorkspacePruneCommand(ctx))
	return wsCmd
}

func newWorkspaceListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List job workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runsDir := cfg.Paths.RunsDir
			dirs, err := workspace.List(runsDir)
			if err != nil {
				return fmt.Errorf("list workspaces: %w", err)
			}

			var totalSize int64
			for _, dir := range dirs {
				totalSize += dir.Size
			}
			if ctx.JSONMode() {
				if dirs == nil {
					dirs = []workspace.DirInfo{}
				}
				return writeJSON(cmd, map[string]any{
					"runs_dir":         runsDir,
					"workspaces":       dirs,
					"total_size_bytes": totalSize,
				})
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No workspaces found")
				return nil
			}
			fmt.Fprintf(out, "Runs directory: %s\n\n", runsDir)
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				age := time.Since(dir.ModTime).Truncate(time.Minute)
				rows = append(rows, []string{shortID(dir.Name), formatDuration(age), formatBytes(dir.Size), yesNo(dir.Locked)})
			}
			fmt.Fprint(out, renderTable(
				[]string{"ID", "Age", "Size", "In use"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "\nTotal: %d workspaces, %s\n", len(dirs), formatBytes(totalSize))
			return nil
		},
	}
}

func newWorkspacePruneCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove workspaces older than --max-age",
		Long: `Remove job workspaces whose last modification is older than --max-age.

Workspaces are never removed automatically. Workspaces held by a running job
are skipped. History entries of removed workspaces are deleted as well. The
default age comes from history.workspace_max_age_days.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			age := maxAge
			if !cmd.Flags().Changed("max-age") {
				age = cfg.WorkspaceMaxAge()
			}
			if age <= 0 {
				return fmt.Errorf("--max-age must be positive")
			}
			result := workspace.Prune(cmd.Context(), cfg.Paths.RunsDir, age, ctx.ensureLogger())
			if err := ctx.withHistory(func(store *history.Store) error {
				return forgetPrunedJobs(cmd.Context(), store, result.Removed)
			}); err != nil {
				return err
			}

			if ctx.JSONMode() {
				errs := make([]string, 0, len(result.Errors))
				for _, e := range result.Errors {
					errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
				}
				return writeJSON(cmd, map[string]any{
					"removed": result.Removed,
					"skipped": result.Skipped,
					"errors":  errs,
				})
			}

			out := cmd.OutOrStdout()
			if len(result.Removed) == 0 && len(result.Errors) == 0 {
				fmt.Fprintf(out, "No workspaces older than %s\n", formatDuration(age))
				return nil
			}
			fmt.Fprintf(out, "Removed %d workspaces", len(result.Removed))
			if len(result.Skipped) > 0 {
				fmt.Fprintf(out, ", skipped %d in use", len(result.Skipped))
			}
			fmt.Fprintln(out)
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Minimum age of workspaces to remove (e.g. 72h)")
	return cmd
}

// forgetPrunedJobs drops the history rows whose workspaces were removed.
func forgetPrunedJobs(ctx context.Context, store *history.Store, removed []string) error {
	if store == nil {
		return nil
	}
	for _, dir := range removed {
		if err := store.Remove(ctx, filepath.Base(dir)); err != nil {
			return err
		}
	}
	return nil
}
