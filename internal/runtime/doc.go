// SPDX-License-Identifier: MPL-2.0

// Package runtime runs workspace-scoped tool commands.
//
// Two strategies implement Runtime:
//   - local: a bash subprocess on the host that switches the gcloud project
//     for the duration of the command and restores it afterwards.
//   - container: a single-use container with the context directory, working
//     directory and gcloud config bind-mounted, removed after the run.
//
// Both drive their execution unit through the same Lifecycle:
// launch, stream and wait concurrently, read the exit status, tear down.
// Executor is the entry point callers use; it separates a tool's own
// nonzero exit (PassthroughError) from orchestration failures.
package runtime
