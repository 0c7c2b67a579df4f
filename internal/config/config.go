// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"terra-cli/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name used for directories and env prefixes.
	AppName = "terra"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// DefaultContextDirName is the context directory created under $HOME.
	DefaultContextDirName = ".terra"

	envPrefix = "TERRA"

	// maxConfigFileSize bounds what is handed to the CUE compiler.
	maxConfigFileSize = 1 << 20
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the terra configuration directory: %APPDATA% on Windows,
// ~/Library/Application Support on macOS and $XDG_CONFIG_HOME (default
// ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string
	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// ConfigFilePath returns the default config file location.
func ConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// ResolveContextDir returns cfg.ContextDir as an absolute path, defaulting to
// $HOME/.terra.
func (c *Config) ResolveContextDir() (string, error) {
	if c.ContextDir != "" {
		return filepath.Abs(c.ContextDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DefaultContextDirName), nil
}

// loadWithOptions loads configuration without touching package-level state.
// It returns the config and the path of the file it was read from ("" when
// only defaults and environment applied).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := opts.ConfigFilePath
	explicit := path != ""
	if !explicit {
		var err error
		if opts.ConfigDirPath != "" {
			path = filepath.Join(opts.ConfigDirPath, ConfigFileName+"."+ConfigFileExt)
		} else if path, err = ConfigFilePath(); err != nil {
			return nil, "", err
		}
	}

	resolvedPath := ""
	switch {
	case fileExists(path):
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Run 'terra config list' to see the accepted keys").
				Wrap(err).
				BuildError()
		}
		resolvedPath = path
	case explicit:
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Verify the file path passed to --config").
			Wrap(fmt.Errorf("config file not found: %s", path)).
			BuildError()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check TERRA_* environment variables for typos").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("app_launch", string(d.AppLaunch))
	v.SetDefault("context_dir", d.ContextDir)
	v.SetDefault("container.image", d.Container.Image)
	v.SetDefault("container.engine", string(d.Container.Engine))
	v.SetDefault("container.init_script", d.Container.InitScript)
	v.SetDefault("logging.console_level", string(d.Logging.ConsoleLevel))
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into v.
// Concrete(false) because every field is optional.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxConfigFileSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", path, len(data), maxConfigFileSize)
	}

	cctx := cuecontext.New()
	schemaValue := cctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := cctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	unified := schemaValue.LookupPath(cue.ParsePath("#Config")).Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// formatCUEError flattens CUE errors into "<file>: <path>: <message>" lines.
func formatCUEError(err error, filePath string) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		path := strings.Join(cueerrors.Path(e), ".")
		msg := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(e.Error(), path), ":"))
		if path != "" {
			lines = append(lines, path+": "+msg)
		} else {
			lines = append(lines, msg)
		}
	}

	if len(lines) == 1 {
		return fmt.Errorf("%s: %s", filePath, lines[0])
	}
	return fmt.Errorf("%s: validation failed:\n  %s", filePath, strings.Join(lines, "\n  "))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Save writes cfg as CUE to path, creating the parent directory.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE renders cfg in the config file format.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// terra CLI configuration\n\n")
	fmt.Fprintf(&sb, "app_launch: %q\n", cfg.AppLaunch)
	if cfg.ContextDir != "" {
		fmt.Fprintf(&sb, "context_dir: %q\n", cfg.ContextDir)
	}

	sb.WriteString("\ncontainer: {\n")
	fmt.Fprintf(&sb, "\timage: %q\n", cfg.Container.Image)
	fmt.Fprintf(&sb, "\tengine: %q\n", cfg.Container.Engine)
	fmt.Fprintf(&sb, "\tinit_script: %q\n", cfg.Container.InitScript)
	sb.WriteString("}\n")

	sb.WriteString("\nlogging: {\n")
	fmt.Fprintf(&sb, "\tconsole_level: %q\n", cfg.Logging.ConsoleLevel)
	sb.WriteString("}\n")

	return sb.String()
}
