// SPDX-License-Identifier: MPL-2.0

// Package config loads the terra CLI configuration.
//
// The file is CUE (config.cue in the platform config directory), validated
// against the embedded #Config schema and merged into Viper on top of the
// defaults. TERRA_* environment variables override file values, so
// TERRA_APP_LAUNCH=local or TERRA_CONTAINER_IMAGE=... work without touching
// the file.
package config
