// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"terra-cli/internal/config"
)

// newConfigCommand creates the `terra config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage terra configuration",
		Long: `Manage terra configuration.

Configuration is stored in:
  - Linux: ~/.config/terra/config.cue
  - macOS: ~/Library/Application Support/terra/config.cue
  - Windows: %APPDATA%\terra\config.cue

Every key can also be set through the environment, e.g. TERRA_APP_LAUNCH=local
or TERRA_CONTAINER_IMAGE=<image>.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.listConfig(cmd.Context())
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			value, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, value)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.setConfigValue(cmd.Context(), args[0], args[1])
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := app.configFilePath()
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	return cfgCmd
}

func (a *App) listConfig(ctx context.Context) error {
	cfg, path, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(a.stdout)
	if path != "" {
		fmt.Fprintf(a.stdout, "%s: %s\n", CmdStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(a.stdout, "%s: %s\n", CmdStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(a.stdout)

	for _, key := range config.Keys() {
		value, err := cfg.Get(key)
		if err != nil {
			return err
		}
		if value == "" {
			value = SubtitleStyle.Render("(unset)")
		} else {
			value = SuccessStyle.Render(value)
		}
		fmt.Fprintf(a.stdout, "%s: %s\n", CmdStyle.Render(key), value)
	}
	return nil
}

func (a *App) setConfigValue(ctx context.Context, key, value string) error {
	cfg, path, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return fmt.Errorf("%w\nValid keys: %v", err, config.Keys())
	}

	if path == "" {
		if path, err = a.configFilePath(); err != nil {
			return err
		}
	}
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(a.stdout, "%s Set %s = %s\n", SuccessStyle.Render("✓"), key, value)
	return nil
}

// configFilePath returns the file config is read from and written to.
func (a *App) configFilePath() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.ConfigFilePath()
}
