// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"terra-cli/internal/config"
	"terra-cli/internal/credential"
	"terra-cli/internal/runtime"
	"terra-cli/internal/workspace"
)

// TestCredentialsEnv names a key file that replaces ADC resolution. It exists
// so automated tests can run tools as a test user.
const TestCredentialsEnv = "TERRA_TEST_CREDENTIALS_FILE"

type (
	// App wires CLI services and shared dependencies. It is the composition root
	// for the CLI layer: every Cobra handler receives an App and delegates
	// through it.
	App struct {
		Config      config.Provider
		Runtimes    RuntimeBuilder
		Credentials credential.Store
		getenv      func(string) string
		stdout      io.Writer
		stderr      io.Writer

		// Global flag values, bound by newRootCommand.
		verbose    bool
		configPath string
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults by NewApp.
	Dependencies struct {
		Config      config.Provider
		Runtimes    RuntimeBuilder
		Credentials credential.Store
		Getenv      func(string) string
		Stdout      io.Writer
		Stderr      io.Writer
	}

	// RuntimeBuilder constructs the execution strategy for one invocation.
	RuntimeBuilder func(runtime.BuildOptions) (*runtime.BuildResult, error)

	// session is everything one tool invocation needs. close must be called
	// once the invocation is over.
	session struct {
		executor *runtime.Executor
		env      map[string]string
		logger   *log.Logger
		cleanup  func()
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Runtimes == nil {
		deps.Runtimes = runtime.Build
	}
	if deps.Credentials == nil {
		deps.Credentials = credential.NewADCStore()
	}
	if deps.Getenv == nil {
		deps.Getenv = os.Getenv
	}

	return &App{
		Config:      deps.Config,
		Runtimes:    deps.Runtimes,
		Credentials: deps.Credentials,
		getenv:      deps.Getenv,
		stdout:      deps.Stdout,
		stderr:      deps.Stderr,
	}
}

// loadConfig loads configuration honoring --config.
func (a *App) loadConfig(ctx context.Context) (*config.Config, string, error) {
	return a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configPath})
}

// newLogger returns a console logger at level, or debug with --verbose.
func (a *App) newLogger(level config.LogLevel) *log.Logger {
	logger := log.NewWithOptions(a.stderr, log.Options{Prefix: config.AppName})
	lvl, err := log.ParseLevel(string(level))
	if err != nil {
		lvl = log.WarnLevel
	}
	if a.verbose {
		lvl = log.DebugLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// openSession loads configuration and the workspace context and builds the
// runtime tool commands execute on.
func (a *App) openSession(ctx context.Context) (*session, error) {
	cfg, _, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	logger := a.newLogger(cfg.Logging.ConsoleLevel)

	ctxDir, err := cfg.ResolveContextDir()
	if err != nil {
		return nil, err
	}
	wsCtx, err := workspace.NewStore(ctxDir).Load()
	if err != nil {
		return nil, err
	}
	user, err := wsCtx.RequireUser()
	if err != nil {
		return nil, err
	}
	ws, err := wsCtx.RequireWorkspace()
	if err != nil {
		return nil, err
	}
	petKeyFile, err := wsCtx.PetSAKeyFile()
	if err != nil {
		return nil, err
	}

	resolver := credential.NewResolver(a.Credentials, credential.Identity{
		Email:      user.Email,
		PetSAEmail: user.PetSAEmail,
	}, logger)

	sdkConfigDir := ""
	if cd, ok := a.Credentials.(interface{ ConfigDir() (string, error) }); ok {
		if sdkConfigDir, err = cd.ConfigDir(); err != nil {
			return nil, err
		}
	}

	built, err := a.Runtimes(runtime.BuildOptions{
		Config: cfg,
		Workspace: runtime.Workspace{
			ProjectID:    ws.GoogleProjectID,
			ContextDir:   ctxDir,
			PetKeyFile:   petKeyFile,
			SDKConfigDir: sdkConfigDir,
		},
		Resolver: resolver,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up %s runtime: %w", cfg.AppLaunch, err)
	}
	logger.Debug("runtime ready", "runtime", built.Runtime.Name(), "workspace", ws.ID)

	opts := []runtime.ExecutorOption{runtime.WithOutput(a.stdout, a.stderr)}
	if override := a.getenv(TestCredentialsEnv); override != "" {
		logger.Debug("using test credentials override", "file", override)
		opts = append(opts, runtime.WithCredentialOverride(override))
	}

	return &session{
		executor: runtime.NewExecutor(built.Runtime, opts...),
		env:      workspaceEnv(user, ws),
		logger:   logger,
		cleanup:  built.Cleanup,
	}, nil
}

func (s *session) close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// workspaceEnv describes the workspace to the tool.
func workspaceEnv(user *workspace.User, ws *workspace.Workspace) map[string]string {
	return map[string]string{
		"GOOGLE_CLOUD_PROJECT": ws.GoogleProjectID,
		"TERRA_WORKSPACE_ID":   ws.ID,
		"TERRA_USER_EMAIL":     user.Email,
	}
}
