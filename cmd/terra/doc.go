// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for terra.
//
// Tool commands (gcloud, gsutil, bq, nextflow, git) hand their arguments,
// unparsed, to a runtime.Executor built per invocation from the loaded
// configuration and the current workspace context.
package cmd
