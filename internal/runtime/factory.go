// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"terra-cli/internal/config"
	"terra-cli/internal/container"
)

type (
	// BuildOptions configures runtime construction.
	BuildOptions struct {
		// Config selects the strategy and, for containers, the image and engine.
		Config *config.Config
		// Workspace describes the active workspace.
		Workspace Workspace
		// Resolver validates credentials per run.
		Resolver CredentialResolver
		Logger   *log.Logger
		// NewEngine overrides container.NewEngine.
		NewEngine func(container.EngineType) (container.Engine, error)
	}

	// BuildResult holds the runtime and its cleanup hook. Cleanup is never nil.
	BuildResult struct {
		Runtime Runtime
		Cleanup func()
	}
)

// Build constructs the runtime selected by opts.Config.AppLaunch.
func Build(opts BuildOptions) (*BuildResult, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	switch cfg.AppLaunch {
	case config.AppLaunchLocal:
		return &BuildResult{
			Runtime: NewLocalRuntime(opts.Workspace, opts.Resolver, logger),
			Cleanup: func() {},
		}, nil

	case config.AppLaunchContainer:
		newEngine := opts.NewEngine
		if newEngine == nil {
			newEngine = container.NewEngine
		}
		engine, err := newEngine(container.EngineType(cfg.Container.Engine))
		if err != nil {
			return nil, fmt.Errorf("container runtime: %w", err)
		}
		cleanup := func() {}
		if c, ok := engine.(io.Closer); ok {
			cleanup = func() {
				if err := c.Close(); err != nil {
					logger.Debug("failed to close container engine", "err", err)
				}
			}
		}
		logger.Debug("using container engine", "engine", engine.Name())
		rt := NewContainerRuntime(opts.Workspace, opts.Resolver, engine, ContainerRuntimeOptions{
			Image:      cfg.Container.Image,
			InitScript: cfg.Container.InitScript,
		}, logger)
		return &BuildResult{Runtime: rt, Cleanup: cleanup}, nil

	default:
		return nil, fmt.Errorf("unknown app launch mode %q", cfg.AppLaunch)
	}
}
