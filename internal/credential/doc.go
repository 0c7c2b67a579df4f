// SPDX-License-Identifier: MPL-2.0

// Package credential decides which application default credentials (ADC) a
// wrapped tool will see.
//
// Resolve is called once per tool invocation and never cached: the user can
// switch credentials between two commands. It refuses to proceed when the
// ambient ADC belong to anyone other than the logged-in user or their pet
// service account, and otherwise reports whether the executing command needs
// a credential file injected.
package credential
