// SPDX-License-Identifier: MPL-2.0

// Package testutil holds small test helpers that fail the test on error
// instead of returning it: environment and home directory overrides, file
// fixtures, and a limiter for tests that start real containers.
package testutil
