// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// AppLaunchContainer runs tools inside a single-use container.
	AppLaunchContainer AppLaunch = "container"
	// AppLaunchLocal runs tools as a child process of the CLI.
	AppLaunchLocal AppLaunch = "local"

	// ContainerEngineAPI talks to the Docker Engine API directly.
	ContainerEngineAPI ContainerEngine = "api"
	// ContainerEngineDocker drives the docker binary.
	ContainerEngineDocker ContainerEngine = "docker"
	// ContainerEnginePodman drives the podman binary.
	ContainerEnginePodman ContainerEngine = "podman"

	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"

	// DefaultImage is the client image with gcloud, gsutil, bq, nextflow and git installed.
	DefaultImage = "terra-cli/client:stable"
	// DefaultInitScript is baked into DefaultImage and configures gcloud for the workspace.
	DefaultInitScript = "terra_init.sh"
)

var (
	// ErrInvalidAppLaunch is the sentinel wrapped by InvalidAppLaunchError.
	ErrInvalidAppLaunch = errors.New("invalid app launch mode")
	// ErrInvalidContainerEngine is the sentinel wrapped by InvalidContainerEngineError.
	ErrInvalidContainerEngine = errors.New("invalid container engine")
	// ErrInvalidLogLevel is the sentinel wrapped by InvalidLogLevelError.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidConfig is the sentinel wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrUnknownKey is returned by Get and Set for keys that are not settable.
	ErrUnknownKey = errors.New("unknown config key")
)

type (
	// AppLaunch selects the execution strategy. Exactly one is active per invocation.
	AppLaunch string

	// InvalidAppLaunchError is returned for an unrecognized AppLaunch.
	InvalidAppLaunchError struct {
		Value AppLaunch
	}

	// ContainerEngine selects the container client implementation.
	ContainerEngine string

	// InvalidContainerEngineError is returned for an unrecognized ContainerEngine.
	InvalidContainerEngineError struct {
		Value ContainerEngine
	}

	// LogLevel is the console logging threshold.
	LogLevel string

	// InvalidLogLevelError is returned for an unrecognized LogLevel.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidConfigError aggregates field validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the root configuration.
	Config struct {
		// AppLaunch selects local or container execution.
		AppLaunch AppLaunch `json:"app_launch" yaml:"app_launch" mapstructure:"app_launch"`
		// ContextDir overrides the default $HOME/.terra context directory.
		ContextDir string `json:"context_dir,omitempty" yaml:"context_dir,omitempty" mapstructure:"context_dir"`
		// Container configures the container strategy.
		Container ContainerConfig `json:"container" yaml:"container" mapstructure:"container"`
		// Logging configures console logging.
		Logging LoggingConfig `json:"logging" yaml:"logging" mapstructure:"logging"`
	}

	// ContainerConfig configures the container strategy.
	ContainerConfig struct {
		Image      string          `json:"image" yaml:"image" mapstructure:"image"`
		Engine     ContainerEngine `json:"engine" yaml:"engine" mapstructure:"engine"`
		InitScript string          `json:"init_script" yaml:"init_script" mapstructure:"init_script"`
	}

	// LoggingConfig configures console logging.
	LoggingConfig struct {
		ConsoleLevel LogLevel `json:"console_level" yaml:"console_level" mapstructure:"console_level"`
	}
)

// Error implements the error interface.
func (e *InvalidAppLaunchError) Error() string {
	return fmt.Sprintf("invalid app launch mode %q (valid: container, local)", e.Value)
}

// Unwrap returns ErrInvalidAppLaunch.
func (e *InvalidAppLaunchError) Unwrap() error { return ErrInvalidAppLaunch }

// Validate returns an error if the AppLaunch is not a known mode.
func (a AppLaunch) Validate() error {
	switch a {
	case AppLaunchContainer, AppLaunchLocal:
		return nil
	default:
		return &InvalidAppLaunchError{Value: a}
	}
}

// String returns the string representation of the AppLaunch.
func (a AppLaunch) String() string { return string(a) }

// Error implements the error interface.
func (e *InvalidContainerEngineError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: api, docker, podman)", e.Value)
}

// Unwrap returns ErrInvalidContainerEngine.
func (e *InvalidContainerEngineError) Unwrap() error { return ErrInvalidContainerEngine }

// Validate returns an error if the ContainerEngine is not a known engine.
func (c ContainerEngine) Validate() error {
	switch c {
	case ContainerEngineAPI, ContainerEngineDocker, ContainerEnginePodman:
		return nil
	default:
		return &InvalidContainerEngineError{Value: c}
	}
}

// String returns the string representation of the ContainerEngine.
func (c ContainerEngine) String() string { return string(c) }

// Error implements the error interface.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// Validate returns an error if the LogLevel is not a known level.
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	default:
		return &InvalidLogLevelError{Value: l}
	}
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// Validate checks every enumerated field. Viper env overrides bypass the CUE
// schema, so this runs after every load.
func (c *Config) Validate() error {
	var errs []error
	if err := c.AppLaunch.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Container.Engine.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Logging.ConsoleLevel.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.AppLaunch == AppLaunchContainer && strings.TrimSpace(c.Container.Image) == "" {
		errs = append(errs, errors.New("container.image must be set when app_launch is container"))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		AppLaunch: AppLaunchContainer,
		Container: ContainerConfig{
			Image:      DefaultImage,
			Engine:     ContainerEngineAPI,
			InitScript: DefaultInitScript,
		},
		Logging: LoggingConfig{
			ConsoleLevel: LogLevelWarn,
		},
	}
}
