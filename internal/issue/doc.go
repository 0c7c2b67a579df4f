// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors for the terra CLI.
//
// An ActionableError names the operation that failed, the resource involved and
// suggestions the user can follow. The CLI renders it with Format; everything
// else treats it as a plain wrapped error.
package issue
