// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"terra-cli/internal/config"
	"terra-cli/internal/runtime"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// newAppCommand creates the `terra app` command tree.
func newAppCommand(app *App) *cobra.Command {
	appCmd := &cobra.Command{
		Use:   "app",
		Short: "Inspect and debug the supported tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var format string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the supported applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printAppList(cmd.OutOrStdout(), format)
		},
	}
	listCmd.Flags().StringVar(&format, "format", formatText, "output format: text, json or yaml")
	appCmd.AddCommand(listCmd)

	appCmd.AddCommand(&cobra.Command{
		Use:   "execute <command> [args...]",
		Short: "[FOR DEBUG] Execute a command in the application container, with no setup",
		Long: `Execute a command in the application container for the current workspace
without any of the setup tool commands get: no init script and no identity
activation. Only the container launch mode is supported.`,
		DisableFlagParsing: true,
		Args:               cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			return app.executeRaw(cmd.Context(), args)
		},
	})

	return appCmd
}

// executeRaw runs args in the container with SkipSetup.
func (a *App) executeRaw(ctx context.Context, args []string) error {
	cfg, _, err := a.loadConfig(ctx)
	if err != nil {
		return reportRunError(a.stderr, err, a.verbose)
	}
	if cfg.AppLaunch != config.AppLaunchContainer {
		return reportRunError(a.stderr, &runtime.ConfigurationError{
			Err: fmt.Errorf("'app execute' requires app_launch %q, have %q", config.AppLaunchContainer, cfg.AppLaunch),
		}, a.verbose)
	}

	return a.runTool(ctx, func(ctx context.Context, s *session) (runtime.ExitCode, error) {
		return s.executor.ExecuteRequest(ctx, &runtime.Request{
			Args:      args,
			Env:       s.env,
			SkipSetup: true,
		})
	})
}

func printAppList(w io.Writer, format string) error {
	apps := make([]string, 0, len(toolDescriptions))
	for _, a := range PassThroughApps() {
		apps = append(apps, a.String())
	}

	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(apps)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(apps); err != nil {
			return err
		}
		return enc.Close()
	case formatText:
		fmt.Fprintln(w, "Call any of the supported applications listed below, by prefixing it with 'terra' (e.g. terra gsutil ls, terra nextflow run hello)")
		fmt.Fprintln(w)
		for _, a := range apps {
			fmt.Fprintf(w, "  %s\n", a)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q (valid: %s, %s, %s)", format, formatText, formatJSON, formatYAML)
	}
}
