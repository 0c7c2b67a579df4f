// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"terra-cli/internal/credential"
)

const (
	// RuntimeTypeLocal runs commands as a host process.
	RuntimeTypeLocal RuntimeType = "local"
	// RuntimeTypeContainer runs commands in a single-use container.
	RuntimeTypeContainer RuntimeType = "container"
)

type (
	// RuntimeType identifies the strategy.
	//
	//nolint:revive // RuntimeType is more descriptive than Type for external callers
	RuntimeType string

	// Runtime runs one Request to completion.
	Runtime interface {
		// Name returns the runtime name.
		Name() RuntimeType
		// Run executes req and returns the command's exit code verbatim.
		// A non-nil error is a *ConfigurationError or *OrchestrationError.
		Run(ctx context.Context, req *Request) (ExitCode, error)
	}

	// Request is one invocation. It is consumed by exactly one Run call.
	Request struct {
		// Args is the user's command as an ordered argument list.
		Args []string
		// Env holds extra variables for the command.
		Env map[string]string
		// SkipSetup runs Args without the strategy's setup lines.
		SkipSetup bool
		// CredentialOverride names a key file that replaces ADC resolution.
		// It exists for automated tests.
		CredentialOverride string
		// WorkDir is the host working directory; empty means the current one.
		WorkDir string
		Stdout  io.Writer
		Stderr  io.Writer
	}

	// Workspace is what the strategies need to know about the active
	// workspace and user.
	Workspace struct {
		// ProjectID is the workspace's backing Google project.
		ProjectID string
		// ContextDir is the host context directory.
		ContextDir string
		// PetKeyFile is the host path of the pet SA key for this workspace.
		// It anchors where injected credentials appear in a container.
		PetKeyFile string
		// SDKConfigDir is the host gcloud config directory ADC are resolved
		// from. Empty means $CLOUDSDK_CONFIG or ~/.config/gcloud.
		SDKConfigDir string
	}

	// CredentialResolver validates and locates ADC for one invocation.
	CredentialResolver interface {
		Resolve(ctx context.Context, override string) (credential.State, error)
	}
)

// String returns the string representation of the RuntimeType.
func (t RuntimeType) String() string { return string(t) }

// workDir returns the request's working directory.
func (r *Request) workDir() (string, error) {
	if r.WorkDir != "" {
		return r.WorkDir, nil
	}
	return os.Getwd()
}

// sinks returns the request's writers, discarding when unset.
func (r *Request) sinks() (stdout, stderr io.Writer) {
	stdout, stderr = r.Stdout, r.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	return stdout, stderr
}

// resolveCredentials maps resolver failures onto the error taxonomy: an
// unreadable file is an orchestration failure, anything else needs the user.
func resolveCredentials(ctx context.Context, resolver CredentialResolver, override string) (credential.State, error) {
	state, err := resolver.Resolve(ctx, override)
	if err == nil {
		return state, nil
	}
	if errors.Is(err, credential.ErrUnreadableFile) {
		return credential.State{}, &OrchestrationError{Stage: StageResolve, Err: err}
	}
	return credential.State{}, &ConfigurationError{Err: err}
}

// setCredentialVar points env at path, replacing any existing value.
func setCredentialVar(env map[string]string, path string, logger *log.Logger) {
	if prev, ok := env[credential.EnvVar]; ok && prev != path {
		logger.Debug("overriding credential variable", "var", credential.EnvVar, "previous", prev, "value", path)
	}
	env[credential.EnvVar] = path
}

// EnvToSlice converts a map of environment variables to a sorted slice.
func EnvToSlice(env map[string]string) []string {
	result := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		result = append(result, k+"="+env[k])
	}
	return result
}

// environMap parses KEY=VALUE entries; later entries win.
func environMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, e := range environ {
		k, v, ok := strings.Cut(e, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}
