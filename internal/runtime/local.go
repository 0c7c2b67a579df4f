// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"terra-cli/internal/shellcmd"
)

type (
	// LocalRuntime runs commands in a bash subprocess on the host, inheriting
	// the host environment.
	LocalRuntime struct {
		workspace Workspace
		resolver  CredentialResolver
		builder   *shellcmd.Builder
		lifecycle *Lifecycle
		logger    *log.Logger
		shell     string
		environ   func() []string
	}

	// LocalOption configures a LocalRuntime.
	LocalOption func(*LocalRuntime)
)

// WithShell replaces the bash binary.
func WithShell(path string) LocalOption {
	return func(r *LocalRuntime) { r.shell = path }
}

// WithEnviron replaces os.Environ as the base environment.
func WithEnviron(fn func() []string) LocalOption {
	return func(r *LocalRuntime) { r.environ = fn }
}

// WithLocalLifecycle replaces the Lifecycle.
func WithLocalLifecycle(l *Lifecycle) LocalOption {
	return func(r *LocalRuntime) { r.lifecycle = l }
}

// NewLocalRuntime creates a LocalRuntime. A nil logger discards output.
func NewLocalRuntime(ws Workspace, resolver CredentialResolver, logger *log.Logger, opts ...LocalOption) *LocalRuntime {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	r := &LocalRuntime{
		workspace: ws,
		resolver:  resolver,
		builder:   shellcmd.NewBuilder(),
		lifecycle: NewLifecycle(logger),
		logger:    logger,
		shell:     "bash",
		environ:   os.Environ,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the runtime name.
func (r *LocalRuntime) Name() RuntimeType { return RuntimeTypeLocal }

// Run resolves credentials, wraps the command with the project switch and
// restore, and runs it. A non-default credential file is referenced
// directly on the host and activated for gcloud before the command runs.
func (r *LocalRuntime) Run(ctx context.Context, req *Request) (ExitCode, error) {
	state, err := resolveCredentials(ctx, r.resolver, req.CredentialOverride)
	if err != nil {
		return 0, err
	}

	env := environMap(r.environ())
	for k, v := range req.Env {
		env[k] = v
	}
	if state.InjectsFile() {
		setCredentialVar(env, state.Path, r.logger)
	}

	var script string
	if req.SkipSetup {
		script, err = r.builder.Plain(req.Args)
	} else {
		script, err = r.builder.Local(shellcmd.LocalOptions{
			ProjectID:        r.workspace.ProjectID,
			ActivateIdentity: state.InjectsFile(),
		}, req.Args)
	}
	if err != nil {
		return 0, &ConfigurationError{Err: err}
	}

	dir, err := req.workDir()
	if err != nil {
		return 0, orchestration(StagePrepare, err)
	}

	r.logger.Debug("running local process", "credentials", state.Kind, "dir", dir)
	stdout, stderr := req.sinks()
	unit := newProcessUnit(r.shell, []string{"-c", script}, EnvToSlice(env), dir)
	return r.lifecycle.Drive(ctx, unit, stdout, stderr)
}
