// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"terra-cli/internal/runtime"
)

// PassThroughApp is a tool terra runs on the user's behalf, with the
// arguments given after its name.
type PassThroughApp string

const (
	AppBq       PassThroughApp = "bq"
	AppGcloud   PassThroughApp = "gcloud"
	AppGit      PassThroughApp = "git"
	AppGsutil   PassThroughApp = "gsutil"
	AppNextflow PassThroughApp = "nextflow"
)

var toolDescriptions = map[PassThroughApp]string{
	AppBq:       "Call bq in the workspace",
	AppGcloud:   "Call gcloud in the workspace",
	AppGit:      "Call git in the workspace",
	AppGsutil:   "Call gsutil in the workspace",
	AppNextflow: "Call nextflow in the workspace",
}

// PassThroughApps returns the supported tools sorted by name.
func PassThroughApps() []PassThroughApp {
	apps := make([]PassThroughApp, 0, len(toolDescriptions))
	for app := range toolDescriptions {
		apps = append(apps, app)
	}
	slices.Sort(apps)
	return apps
}

// String returns the tool's executable name.
func (p PassThroughApp) String() string { return string(p) }

// newToolCommand creates `terra <tool> [args...]`. Flags are not parsed: every
// argument after the tool name belongs to the tool.
func newToolCommand(app *App, tool PassThroughApp) *cobra.Command {
	return &cobra.Command{
		Use:                tool.String() + " [args...]",
		Short:              toolDescriptions[tool],
		DisableFlagParsing: true,
		Args:               cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			return app.runTool(cmd.Context(), func(ctx context.Context, s *session) (runtime.ExitCode, error) {
				return s.executor.Execute(ctx, append([]string{tool.String()}, args...), s.env)
			})
		},
	}
}

// runTool opens a session, runs fn on it and reports the outcome.
func (a *App) runTool(ctx context.Context, fn func(context.Context, *session) (runtime.ExitCode, error)) error {
	s, err := a.openSession(ctx)
	if err != nil {
		return reportRunError(a.stderr, fmt.Errorf("prepare tool command: %w", err), a.verbose)
	}
	defer s.close()

	code, err := fn(ctx, s)
	s.logger.Debug("tool command finished", "exit_code", code)
	return reportRunError(a.stderr, err, a.verbose)
}
