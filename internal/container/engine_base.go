// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os/exec"
	"slices"
	"strconv"
	"strings"
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// VolumeFormatFunc formats a volume mount for the -v flag.
	VolumeFormatFunc func(volume VolumeMount) string

	// CreateArgsTransformer modifies create arguments after they're built.
	CreateArgsTransformer func(args []string) []string

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine provides the lifecycle shared by CLI-based engines.
	// Docker and Podman engines embed this struct and only add availability
	// probing and flag quirks.
	BaseCLIEngine struct {
		name                  string
		binaryPath            HostFilesystemPath
		execCommand           ExecCommandFunc
		volumeFormatter       VolumeFormatFunc
		createArgsTransformer CreateArgsTransformer
	}
)

// WithName sets the engine name used in error messages.
func WithName(name string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.name = name
	}
}

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.execCommand = fn
	}
}

// WithVolumeFormatter sets a custom volume formatter function.
func WithVolumeFormatter(fn VolumeFormatFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.volumeFormatter = fn
	}
}

// WithCreateArgsTransformer sets a custom create args transformer.
func WithCreateArgsTransformer(fn CreateArgsTransformer) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.createArgsTransformer = fn
	}
}

// NewBaseCLIEngine creates a new base engine with the given binary path.
func NewBaseCLIEngine(binaryPath HostFilesystemPath, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		binaryPath:            binaryPath,
		execCommand:           exec.CommandContext,
		volumeFormatter:       VolumeMount.String,
		createArgsTransformer: func(args []string) []string { return args },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the engine name used in error messages.
func (e *BaseCLIEngine) Name() string {
	return e.name
}

// BinaryPath returns the path to the container engine binary.
func (e *BaseCLIEngine) BinaryPath() string {
	return string(e.binaryPath)
}

// CreateArgs constructs arguments for creating a container without starting it.
//
// Generated command: <binary> create [options] <image> [command...]
func (e *BaseCLIEngine) CreateArgs(opts RunOptions) []string {
	args := []string{"create"}

	if opts.Name != "" {
		args = append(args, "--name", opts.Name)
	}

	if opts.WorkDir != "" {
		args = append(args, "-w", string(opts.WorkDir))
	}

	for _, k := range slices.Sorted(maps.Keys(opts.Env)) {
		args = append(args, "-e", k+"="+opts.Env[k])
	}

	for _, v := range opts.Volumes {
		args = append(args, "-v", e.volumeFormatter(v))
	}

	args = append(args, opts.Image)
	args = append(args, opts.Command...)

	return e.createArgsTransformer(args)
}

// RemoveArgs constructs arguments for a container remove command.
func (e *BaseCLIEngine) RemoveArgs(id ContainerID, force bool) []string {
	args := []string{"rm"}
	if force {
		args = append(args, "-f")
	}
	return append(args, string(id))
}

// Start creates the container, then starts it detached. A container that was
// created but failed to start is force-removed before the error is returned.
func (e *BaseCLIEngine) Start(ctx context.Context, opts RunOptions) (ContainerID, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}
	out, err := e.RunCommandWithOutput(ctx, e.CreateArgs(opts)...)
	if err != nil {
		return "", err
	}
	id := ContainerID(lastLine(out))
	if id == "" {
		return "", fmt.Errorf("%s create printed no container id", e.name)
	}

	if err := e.RunCommandStatus(ctx, "start", string(id)); err != nil {
		if rmErr := e.Remove(context.WithoutCancel(ctx), id, true); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
		return "", fmt.Errorf("start container %s: %w", id, err)
	}
	return id, nil
}

// Logs follows the container output into stdout and stderr.
func (e *BaseCLIEngine) Logs(ctx context.Context, id ContainerID, stdout, stderr io.Writer) error {
	cmd := e.CreateCommand(ctx, "logs", "-f", string(id))
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s logs %s: %w", e.name, id, err)
	}
	return nil
}

// Wait blocks until the container stops and returns the status printed by
// the wait command.
func (e *BaseCLIEngine) Wait(ctx context.Context, id ContainerID) (int, error) {
	out, err := e.RunCommandWithOutput(ctx, "wait", string(id))
	if err != nil {
		return 0, err
	}
	return parseStatus(out)
}

// InspectExitCode returns .State.ExitCode of the container.
func (e *BaseCLIEngine) InspectExitCode(ctx context.Context, id ContainerID) (int, error) {
	out, err := e.RunCommandWithOutput(ctx, "inspect", "--format", "{{.State.ExitCode}}", string(id))
	if err != nil {
		return 0, err
	}
	return parseStatus(out)
}

// Remove removes a container.
func (e *BaseCLIEngine) Remove(ctx context.Context, id ContainerID, force bool) error {
	return e.RunCommandStatus(ctx, e.RemoveArgs(id, force)...)
}

// RunCommandStatus executes a command and returns only the error status.
func (e *BaseCLIEngine) RunCommandStatus(ctx context.Context, args ...string) error {
	cmd := e.CreateCommand(ctx, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return e.commandError(args, stderr.String(), err)
	}
	return nil
}

// RunCommandWithOutput executes a command with stdout captured to a buffer.
func (e *BaseCLIEngine) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	cmd := e.CreateCommand(ctx, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", e.commandError(args, stderr.String(), err)
	}

	return out.String(), nil
}

// CreateCommand creates an exec.Cmd for the given arguments.
func (e *BaseCLIEngine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	return e.execCommand(ctx, string(e.binaryPath), args...)
}

func (e *BaseCLIEngine) commandError(args []string, stderr string, err error) error {
	sub := ""
	if len(args) > 0 {
		sub = args[0]
	}
	if msg := strings.TrimSpace(stderr); msg != "" {
		return fmt.Errorf("%s %s failed: %w: %s", e.name, sub, err, msg)
	}
	return fmt.Errorf("%s %s failed: %w", e.name, sub, err)
}

func parseStatus(out string) (int, error) {
	s := lastLine(out)
	code, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("unexpected exit status %q: %w", s, err)
	}
	return code, nil
}

// lastLine returns the last non-empty line; engines may print pull progress
// before the container id.
func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
