// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"terra-cli/internal/issue"
	"terra-cli/internal/runtime"
)

const (
	// exitUserError is returned when the user can fix the problem: missing
	// workspace, credential mismatch, bad configuration.
	exitUserError runtime.ExitCode = 1
	// exitSystemError is returned when the tool could not be run or observed.
	exitSystemError runtime.ExitCode = 2
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand builds the command tree around app.
func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "terra",
		Short: "Run cloud tools in the context of a Terra workspace",
		Long: TitleStyle.Render("terra") + SubtitleStyle.Render(" - Run cloud tools in the context of a Terra workspace") + `

Supported tools run either locally or in a single-use container with the
workspace's project and credentials configured for them.

` + SubtitleStyle.Render("Examples:") + `
  terra gsutil ls                  List the workspace project's buckets
  terra nextflow run hello         Run a Nextflow pipeline
  terra app list                   List the supported tools
  terra config set app_launch local`,
		SilenceUsage: true,
	}
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $HOME/.config/terra/config.cue)")

	for _, tool := range PassThroughApps() {
		rootCmd.AddCommand(newToolCommand(app, tool))
	}
	rootCmd.AddCommand(newAppCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process with the resulting code.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(int(exitUserError))
	}
}

// errorHandler leaves ExitErrors alone; they were reported by the command.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// reportRunError turns an execution error into an ExitError, writing what the
// user needs to see. A tool's own nonzero exit is passed through silently.
func reportRunError(stderr io.Writer, err error, verbose bool) error {
	if err == nil {
		return nil
	}

	var passthrough *runtime.PassthroughError
	if errors.As(err, &passthrough) {
		return &ExitError{Code: passthrough.Code, Err: err}
	}

	code := exitUserError
	if errors.Is(err, runtime.ErrOrchestration) {
		code = exitSystemError
	}
	fmt.Fprintln(stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
	return &ExitError{Code: code, Err: err}
}

// formatErrorForDisplay formats an error for user display.
// If the error chain holds an ActionableError, its Format method is used.
func formatErrorForDisplay(err error, verbose bool) string {
	if ae, ok := issue.Find(err); ok {
		return ae.Format(verbose)
	}
	return err.Error()
}
