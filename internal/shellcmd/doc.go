// SPDX-License-Identifier: MPL-2.0

// Package shellcmd assembles the literal bash scripts the execution strategies
// run: setup lines, the user's command and cleanup lines. All quoting and
// joining rules live here.
package shellcmd
