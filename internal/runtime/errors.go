// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
)

const (
	// StageResolve covers credential resolution.
	StageResolve Stage = "resolve"
	// StagePrepare covers mount and command assembly.
	StagePrepare Stage = "prepare"
	// StageLaunch covers process start and container create+start.
	StageLaunch Stage = "launch"
	// StageStream covers relaying output to the caller.
	StageStream Stage = "stream"
	// StageWait covers blocking until the unit terminates.
	StageWait Stage = "wait"
	// StageInspect covers reading the exit status.
	StageInspect Stage = "inspect"
)

var (
	// ErrConfiguration is the sentinel wrapped by ConfigurationError.
	ErrConfiguration = errors.New("configuration error")
	// ErrOrchestration is the sentinel wrapped by OrchestrationError.
	ErrOrchestration = errors.New("orchestration failure")
	// ErrPassthrough is the sentinel wrapped by PassthroughError.
	ErrPassthrough = errors.New("command exited with a nonzero status")
)

type (
	// Stage names the step of a run that failed.
	Stage string

	// ConfigurationError is a user-actionable problem detected before
	// anything was launched.
	ConfigurationError struct {
		Err error
	}

	// OrchestrationError means the tool could not be run or observed.
	OrchestrationError struct {
		Stage Stage
		Err   error
	}

	// PassthroughError means the tool ran and exited nonzero. Its output has
	// already been relayed.
	PassthroughError struct {
		Code ExitCode
	}
)

// Error implements the error interface.
func (e *ConfigurationError) Error() string { return e.Err.Error() }

// Unwrap returns both the cause and ErrConfiguration.
func (e *ConfigurationError) Unwrap() []error { return []error{ErrConfiguration, e.Err} }

// Error implements the error interface.
func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

// Unwrap returns both the cause and ErrOrchestration.
func (e *OrchestrationError) Unwrap() []error { return []error{ErrOrchestration, e.Err} }

// Error implements the error interface.
func (e *PassthroughError) Error() string {
	return fmt.Sprintf("command exited with status %d", e.Code)
}

// Unwrap returns ErrPassthrough for errors.Is.
func (e *PassthroughError) Unwrap() error { return ErrPassthrough }

// orchestration wraps err with a stage unless it already carries one.
func orchestration(stage Stage, err error) error {
	var oe *OrchestrationError
	if errors.As(err, &oe) {
		return err
	}
	return &OrchestrationError{Stage: stage, Err: err}
}
