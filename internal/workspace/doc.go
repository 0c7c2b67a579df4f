// SPDX-License-Identifier: MPL-2.0

// Package workspace persists the workspace context: the logged-in user, the
// current workspace and its backing Google project. The context lives in
// context.toml inside the context directory, next to the pet service account
// key files.
package workspace
