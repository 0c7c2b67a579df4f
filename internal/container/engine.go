// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"io"
)

const (
	// EngineTypeAPI talks to the Docker Engine API directly.
	EngineTypeAPI EngineType = "api"
	// EngineTypeDocker drives the docker binary.
	EngineTypeDocker EngineType = "docker"
	// EngineTypePodman drives the podman binary.
	EngineTypePodman EngineType = "podman"
)

// ErrInvalidEngineType is the sentinel error wrapped by InvalidEngineTypeError.
var ErrInvalidEngineType = errors.New("invalid container engine type")

type (
	// Engine is a container client able to run one detached container and
	// observe it until exit.
	Engine interface {
		// Name returns the engine name.
		Name() string
		// Available reports whether the engine can be reached.
		Available() bool
		// Start creates and starts a detached container.
		Start(ctx context.Context, opts RunOptions) (ContainerID, error)
		// Logs follows the container output until it exits.
		Logs(ctx context.Context, id ContainerID, stdout, stderr io.Writer) error
		// Wait blocks until the container stops and returns the status the
		// wait call itself reported.
		Wait(ctx context.Context, id ContainerID) (int, error)
		// InspectExitCode returns the recorded exit code of a stopped container.
		InspectExitCode(ctx context.Context, id ContainerID) (int, error)
		// Remove deletes a container.
		Remove(ctx context.Context, id ContainerID, force bool) error
	}

	// RunOptions describes one detached container.
	RunOptions struct {
		Image   string
		Command []string
		WorkDir MountTargetPath
		Env     map[string]string
		Volumes []VolumeMount
		// Name is optional; engines generate one when empty.
		Name string
	}

	// ContainerID identifies a started container.
	ContainerID string

	// EngineType identifies the container engine.
	EngineType string

	// InvalidEngineTypeError is returned for an unknown EngineType.
	InvalidEngineTypeError struct {
		Value EngineType
	}

	// ErrEngineNotAvailable is returned when no engine can be reached.
	ErrEngineNotAvailable struct {
		Engine string
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidEngineTypeError) Error() string {
	return fmt.Sprintf("invalid container engine type %q (valid: api, docker, podman)", e.Value)
}

// Unwrap returns ErrInvalidEngineType for errors.Is.
func (e *InvalidEngineTypeError) Unwrap() error { return ErrInvalidEngineType }

// Validate returns an error if the EngineType is not one of the defined types.
func (t EngineType) Validate() error {
	switch t {
	case EngineTypeAPI, EngineTypeDocker, EngineTypePodman:
		return nil
	default:
		return &InvalidEngineTypeError{Value: t}
	}
}

// String returns the string representation of the EngineType.
func (t EngineType) String() string { return string(t) }

// String returns the string representation of the ContainerID.
func (id ContainerID) String() string { return string(id) }

func (e *ErrEngineNotAvailable) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// Validate returns an error if the options cannot start a container.
func (o RunOptions) Validate() error {
	var errs []error
	if o.Image == "" {
		errs = append(errs, errors.New("image is required"))
	}
	if len(o.Command) == 0 {
		errs = append(errs, errors.New("command is required"))
	}
	if o.WorkDir != "" {
		if err := o.WorkDir.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, v := range o.Volumes {
		if err := v.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// candidates is overridden in tests.
var candidates = func(t EngineType) []Engine {
	switch t {
	case EngineTypeAPI:
		api, err := NewAPIEngine()
		if err != nil {
			return []Engine{NewDockerEngine(), NewPodmanEngine()}
		}
		return []Engine{api, NewDockerEngine(), NewPodmanEngine()}
	case EngineTypeDocker:
		return []Engine{NewDockerEngine(), NewPodmanEngine()}
	case EngineTypePodman:
		return []Engine{NewPodmanEngine(), NewDockerEngine()}
	default:
		return nil
	}
}

// NewEngine returns the preferred engine, falling back to the next available
// one: api -> docker -> podman, docker -> podman, podman -> docker.
func NewEngine(preferred EngineType) (Engine, error) {
	if err := preferred.Validate(); err != nil {
		return nil, err
	}
	for _, engine := range candidates(preferred) {
		if engine.Available() {
			return engine, nil
		}
	}
	return nil, &ErrEngineNotAvailable{
		Engine: string(preferred),
		Reason: "it is not reachable and no fallback engine is available either",
	}
}
