// SPDX-License-Identifier: MPL-2.0

package shellcmd

import (
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

const (
	// Separator joins script segments. Each segment runs regardless of the
	// status of the one before it.
	Separator = "; "

	// PrevProjectVar holds the gcloud project active before a local run.
	PrevProjectVar = "TERRA_PREV_GCLOUD_PROJECT"
	// ExitCodeVar holds the user command's status while cleanup runs.
	ExitCodeVar = "TERRA_EXIT_CODE"

	credentialEnvVar = "GOOGLE_APPLICATION_CREDENTIALS"
)

var (
	// ErrEmptyCommand is returned when no arguments were given.
	ErrEmptyCommand = errors.New("no command to run")
	// ErrInvalidScript is returned when the composed script does not parse.
	ErrInvalidScript = errors.New("composed command is not valid bash")
)

type (
	// LocalOptions controls the script for a host process.
	LocalOptions struct {
		// ProjectID is the workspace's backing Google project.
		ProjectID string
		// ActivateIdentity prepends a gcloud identity activation against
		// the injected credential file.
		ActivateIdentity bool
	}

	// ContainerOptions controls the script for a container.
	ContainerOptions struct {
		// InitScript is the pre-baked script that configures the image.
		InitScript string
		// ActivateIdentity prepends a gcloud identity activation.
		ActivateIdentity bool
		// SkipSetup runs the user command alone.
		SkipSetup bool
	}

	// Builder produces the final command text per strategy.
	Builder struct {
		variant syntax.LangVariant
	}
)

// NewBuilder creates a Builder.
func NewBuilder() *Builder {
	return &Builder{variant: syntax.LangBash}
}

// Join joins args with single spaces, leaving each argument as typed so
// shell expansion still applies. Empty arguments and arguments containing
// whitespace are double-quoted so their boundaries survive the join.
func Join(args []string) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = joinArg(arg)
	}
	return strings.Join(parts, " ")
}

func joinArg(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\n") {
		return arg
	}
	if isQuoted(arg) {
		return arg
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(arg) + `"`
}

func isQuoted(arg string) bool {
	if len(arg) < 2 {
		return false
	}
	first, last := arg[0], arg[len(arg)-1]
	return (first == '"' || first == '\'') && first == last
}

// ActivationLines returns the lines that make gcloud itself use the injected
// credential file, so nested tools see the same identity as ADC.
func ActivationLines() []string {
	return []string{
		`echo "Setting the gcloud credentials to match the application default credentials"`,
		"gcloud auth activate-service-account --key-file=${" + credentialEnvVar + "}",
	}
}

// Local wraps args so the gcloud project is switched to the workspace
// project for the duration of the command and restored afterwards, whatever
// the command's outcome. The script exits with the command's status.
func (b *Builder) Local(opts LocalOptions, args []string) (string, error) {
	if len(args) == 0 {
		return "", ErrEmptyCommand
	}
	if opts.ProjectID == "" {
		return "", errors.New("workspace project id is required")
	}
	project, err := syntax.Quote(opts.ProjectID, b.variant)
	if err != nil {
		return "", fmt.Errorf("quote project id: %w", err)
	}

	lines := []string{
		"echo 'Setting the gcloud project to the workspace project'",
		PrevProjectVar + "=$(gcloud config get-value project)",
		"gcloud config set project " + project,
	}
	if opts.ActivateIdentity {
		lines = append(lines, ActivationLines()...)
	}
	// The subshell keeps an explicit exit in the user command from skipping
	// the restore below.
	lines = append(lines,
		"("+Join(args)+"\n)",
		ExitCodeVar+"=$?",
		"echo 'Restoring the original gcloud project configuration:' \"$"+PrevProjectVar+"\"",
		`if [[ -z "$`+PrevProjectVar+`" ]]; then gcloud config unset project; else gcloud config set project "$`+PrevProjectVar+`"; fi`,
		"exit $"+ExitCodeVar,
	)
	return b.validated(strings.Join(lines, Separator))
}

// Plain returns args joined without any setup.
func (b *Builder) Plain(args []string) (string, error) {
	if len(args) == 0 {
		return "", ErrEmptyCommand
	}
	return b.validated(Join(args))
}

// Container prefixes args with the image's init script. No cleanup is
// emitted because the container is discarded after the run.
func (b *Builder) Container(opts ContainerOptions, args []string) (string, error) {
	if len(args) == 0 {
		return "", ErrEmptyCommand
	}
	body := Join(args)
	if opts.ActivateIdentity {
		body = strings.Join(append(ActivationLines(), body), Separator)
	}
	if opts.SkipSetup {
		return b.validated(body)
	}
	if opts.InitScript == "" {
		return "", errors.New("container init script is required")
	}
	return b.validated(opts.InitScript + " && " + body)
}

// validated checks that script parses as bash.
func (b *Builder) validated(script string) (string, error) {
	parser := syntax.NewParser(syntax.Variant(b.variant))
	if _, err := parser.Parse(strings.NewReader(script), ""); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}
	return script, nil
}
