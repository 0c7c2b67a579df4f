// SPDX-License-Identifier: MPL-2.0

package credential

import "fmt"

const (
	// NoOverride is the zero Kind: nothing has been resolved.
	NoOverride Kind = iota
	// MatchesDefault means ADC are backed by the well-known default file,
	// which every execution target already sees.
	MatchesDefault
	// NonDefaultFile means ADC are backed by a file elsewhere; the caller must
	// expose it and point EnvVar at it.
	NonDefaultFile
	// MetadataServer means ADC come from the metadata server; nothing to inject.
	MetadataServer
)

type (
	// Kind classifies where the active credentials come from.
	Kind int

	// State is the outcome of one Resolve call.
	State struct {
		Kind Kind
		// Path is the host path of the backing file when Kind is NonDefaultFile.
		Path string
		// Override is set when Path came from the testing override. The
		// executing command must then activate the identity itself.
		Override bool
	}
)

// String returns the name of the Kind.
func (k Kind) String() string {
	switch k {
	case NoOverride:
		return "no-override"
	case MatchesDefault:
		return "matches-default"
	case NonDefaultFile:
		return "non-default-file"
	case MetadataServer:
		return "metadata-server"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// InjectsFile reports whether the caller must make Path visible and set EnvVar.
func (s State) InjectsFile() bool {
	return s.Kind == NonDefaultFile
}
