// SPDX-License-Identifier: MPL-2.0

package config

import "fmt"

// Settable keys, in the order 'terra config list' prints them.
var keys = []string{
	"app_launch",
	"context_dir",
	"container.image",
	"container.engine",
	"container.init_script",
	"logging.console_level",
}

// Keys returns the settable configuration keys.
func Keys() []string {
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// Get returns the string value of key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "app_launch":
		return string(c.AppLaunch), nil
	case "context_dir":
		return c.ContextDir, nil
	case "container.image":
		return c.Container.Image, nil
	case "container.engine":
		return string(c.Container.Engine), nil
	case "container.init_script":
		return c.Container.InitScript, nil
	case "logging.console_level":
		return string(c.Logging.ConsoleLevel), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}

// Set assigns value to key and validates the result. On error c is unchanged.
func (c *Config) Set(key, value string) error {
	next := *c
	switch key {
	case "app_launch":
		next.AppLaunch = AppLaunch(value)
	case "context_dir":
		next.ContextDir = value
	case "container.image":
		next.Container.Image = value
	case "container.engine":
		next.Container.Engine = ContainerEngine(value)
	case "container.init_script":
		next.Container.InitScript = value
	case "logging.console_level":
		next.Logging.ConsoleLevel = LogLevel(value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}
