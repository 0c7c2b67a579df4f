// SPDX-License-Identifier: MPL-2.0

// Package container provides the clients used to run single-use containers.
//
// Three engines implement Engine:
//   - APIEngine talks to the Docker Engine API through the official SDK.
//   - DockerEngine and PodmanEngine drive the docker and podman binaries.
//
// Every engine exposes the same detached lifecycle (start, follow logs, wait,
// inspect, remove) so callers can stream output while waiting.
package container
