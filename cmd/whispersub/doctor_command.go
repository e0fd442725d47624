package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"whispersub/internal/deps"
	"whispersub/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check tools, directories and the translation API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			tools := preflight.CheckSystemDeps(cmd.Context(), cfg)
			checks := preflight.RunAll(cmd.Context(), cfg, offline)
			checks = append(checks, preflight.ProbeGPU(cmd.Context()).DeviceResult(cfg.Transcription.Device))

			failed := len(deps.MissingRequired(tools)) + len(preflight.Failed(checks))

			if ctx.JSONMode() {
				if err := writeJSON(cmd, map[string]any{
					"platform": preflight.Platform(),
					"tools":    tools,
					"checks":   checks,
					"healthy":  failed == 0,
				}); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				lines := renderSectionHeader("Tools", colorize)
				lines = append(lines, dependencyLines(tools, colorize)...)
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Environment", colorize)...)
				lines = append(lines, preflightLines(checks, colorize)...)
				fmt.Fprintln(out, strings.Join(lines, "\n"))
			}

			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the translation API request")
	return cmd
}
