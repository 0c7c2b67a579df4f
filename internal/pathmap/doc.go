// SPDX-License-Identifier: MPL-2.0

// Package pathmap translates host filesystem locations into the bind mounts a
// single-use container needs: the context directory, the working directory,
// the gcloud config directory and an optional credential file.
//
// Container paths are always POSIX paths regardless of the host OS.
package pathmap
