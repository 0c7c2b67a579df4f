// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"terra-cli/internal/container"
	"terra-cli/internal/credential"
	"terra-cli/internal/pathmap"
	"terra-cli/internal/shellcmd"
)

type (
	// ContainerRuntime runs commands in a single-use container.
	ContainerRuntime struct {
		workspace  Workspace
		resolver   CredentialResolver
		engine     container.Engine
		image      string
		initScript string
		translator *pathmap.Translator
		builder    *shellcmd.Builder
		lifecycle  *Lifecycle
		logger     *log.Logger
		getenv     func(string) string
		homeDir    func() (string, error)
	}

	// ContainerRuntimeOptions holds what a ContainerRuntime needs besides its
	// collaborators.
	ContainerRuntimeOptions struct {
		Image      string
		InitScript string
	}

	// ContainerOption configures a ContainerRuntime.
	ContainerOption func(*ContainerRuntime)
)

// WithGetenv replaces os.Getenv for locating the gcloud config directory.
func WithGetenv(fn func(string) string) ContainerOption {
	return func(r *ContainerRuntime) { r.getenv = fn }
}

// WithHomeDir replaces os.UserHomeDir.
func WithHomeDir(fn func() (string, error)) ContainerOption {
	return func(r *ContainerRuntime) { r.homeDir = fn }
}

// WithTranslator replaces the path translator.
func WithTranslator(t *pathmap.Translator) ContainerOption {
	return func(r *ContainerRuntime) { r.translator = t }
}

// WithContainerLifecycle replaces the Lifecycle.
func WithContainerLifecycle(l *Lifecycle) ContainerOption {
	return func(r *ContainerRuntime) { r.lifecycle = l }
}

// NewContainerRuntime creates a ContainerRuntime. A nil logger discards output.
func NewContainerRuntime(ws Workspace, resolver CredentialResolver, engine container.Engine,
	opts ContainerRuntimeOptions, logger *log.Logger, options ...ContainerOption,
) *ContainerRuntime {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	r := &ContainerRuntime{
		workspace:  ws,
		resolver:   resolver,
		engine:     engine,
		image:      opts.Image,
		initScript: opts.InitScript,
		translator: pathmap.NewTranslator(),
		builder:    shellcmd.NewBuilder(),
		lifecycle:  NewLifecycle(logger),
		logger:     logger,
		getenv:     os.Getenv,
		homeDir:    os.UserHomeDir,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Name returns the runtime name.
func (r *ContainerRuntime) Name() RuntimeType { return RuntimeTypeContainer }

// Run resolves credentials, computes mounts, and runs the command in a fresh
// container that is removed afterwards. The returned code is the container's
// inspected exit code.
func (r *ContainerRuntime) Run(ctx context.Context, req *Request) (ExitCode, error) {
	state, err := resolveCredentials(ctx, r.resolver, req.CredentialOverride)
	if err != nil {
		return 0, err
	}

	workDir, err := req.workDir()
	if err != nil {
		return 0, orchestration(StagePrepare, err)
	}
	sdkDir, err := r.sdkConfigDir()
	if err != nil {
		return 0, orchestration(StagePrepare, err)
	}
	mounts, err := r.translator.ComputeMounts(r.workspace.ContextDir, workDir, sdkDir)
	if err != nil {
		return 0, classifyMountError(err)
	}

	env := make(map[string]string, len(req.Env)+1)
	for k, v := range req.Env {
		env[k] = v
	}
	if state.InjectsFile() {
		target, err := pathmap.CredentialFileOnContainer(r.workspace.ContextDir, r.workspace.PetKeyFile)
		if err != nil {
			return 0, &ConfigurationError{Err: err}
		}
		if err := mounts.Add(state.Path, target); err != nil {
			return 0, classifyMountError(err)
		}
		setCredentialVar(env, target, r.logger)
	}

	script, err := r.builder.Container(shellcmd.ContainerOptions{
		InitScript:       r.initScript,
		ActivateIdentity: state.Override,
		SkipSetup:        req.SkipSetup,
	}, req.Args)
	if err != nil {
		return 0, &ConfigurationError{Err: err}
	}

	unit := &containerUnit{
		engine: r.engine,
		opts: container.RunOptions{
			Image:   r.image,
			Command: []string{"bash", "-c", script},
			WorkDir: pathmap.ContainerWorkingDir,
			Env:     env,
			Volumes: volumeMounts(mounts),
		},
		logger: r.logger,
	}
	r.logger.Debug("running container", "credentials", state.Kind, "mounts", mounts.Len())
	stdout, stderr := req.sinks()
	return r.lifecycle.Drive(ctx, unit, stdout, stderr)
}

// sdkConfigDir returns the host gcloud config directory to expose in the
// container. It must be the directory default ADC were resolved from.
func (r *ContainerRuntime) sdkConfigDir() (string, error) {
	if r.workspace.SDKConfigDir != "" {
		return r.workspace.SDKConfigDir, nil
	}
	return credential.SDKConfigDir(r.getenv, r.homeDir)
}

func classifyMountError(err error) error {
	if errors.Is(err, pathmap.ErrMountCollision) {
		return &ConfigurationError{Err: err}
	}
	return orchestration(StagePrepare, err)
}

func volumeMounts(m *pathmap.Mapping) []container.VolumeMount {
	mounts := m.Mounts()
	out := make([]container.VolumeMount, 0, len(mounts))
	for _, mt := range mounts {
		out = append(out, container.VolumeMount{
			HostPath:      container.HostFilesystemPath(mt.Host),
			ContainerPath: container.MountTargetPath(mt.Container),
		})
	}
	return out
}
