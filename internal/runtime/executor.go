// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"io"
	"os"
	"slices"
)

type (
	// Executor is the single entry point for running a tool command.
	Executor struct {
		runtime  Runtime
		stdout   io.Writer
		stderr   io.Writer
		override string
	}

	// ExecutorOption configures an Executor.
	ExecutorOption func(*Executor)
)

// WithOutput sets the sinks command output is streamed to.
func WithOutput(stdout, stderr io.Writer) ExecutorOption {
	return func(e *Executor) {
		e.stdout = stdout
		e.stderr = stderr
	}
}

// WithCredentialOverride makes every run use the given key file.
func WithCredentialOverride(path string) ExecutorOption {
	return func(e *Executor) { e.override = path }
}

// NewExecutor creates an Executor over rt. Output defaults to os.Stdout and
// os.Stderr.
func NewExecutor(rt Runtime, opts ...ExecutorOption) *Executor {
	e := &Executor{runtime: rt, stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Runtime returns the strategy in use.
func (e *Executor) Runtime() Runtime { return e.runtime }

// Execute runs args with env added to the command's environment. A zero exit
// returns (0, nil); a nonzero exit returns the code and a *PassthroughError;
// anything that prevented running or observing the tool is returned as a
// *ConfigurationError or *OrchestrationError.
func (e *Executor) Execute(ctx context.Context, args []string, env map[string]string) (ExitCode, error) {
	return e.ExecuteRequest(ctx, &Request{Args: args, Env: env})
}

// ExecuteRequest runs a fully specified request. Unset sinks and override
// are filled from the Executor. Args and Env are copied so the caller's
// values are never mutated.
func (e *Executor) ExecuteRequest(ctx context.Context, req *Request) (ExitCode, error) {
	r := *req
	r.Args = slices.Clone(req.Args)
	r.Env = make(map[string]string, len(req.Env))
	for k, v := range req.Env {
		r.Env[k] = v
	}
	if r.Stdout == nil {
		r.Stdout = e.stdout
	}
	if r.Stderr == nil {
		r.Stderr = e.stderr
	}
	if r.CredentialOverride == "" {
		r.CredentialOverride = e.override
	}

	code, err := e.runtime.Run(ctx, &r)
	if err != nil {
		return code, err
	}
	if !code.IsSuccess() {
		return code, &PassthroughError{Code: code}
	}
	return 0, nil
}
