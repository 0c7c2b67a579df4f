// SPDX-License-Identifier: MPL-2.0

package pathmap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	// ContainerHomeDir is the home directory of the user inside the image.
	ContainerHomeDir = "/root"
	// ContainerWorkingDir is where the host working directory is mounted and
	// where every container command starts.
	ContainerWorkingDir = "/usr/local/etc"
	// SDKConfigRelDir is the gcloud config directory relative to the container home.
	SDKConfigRelDir = ".config/gcloud"
	// CredentialFileName is the name the injected credential file takes inside
	// the container.
	CredentialFileName = "application_default_credentials.json"
)

var (
	// ErrMountCollision is returned when two host paths claim the same container path.
	ErrMountCollision = errors.New("container mount path collision")
	// ErrOutsideBase is returned when a path cannot be re-rooted because it
	// does not live under the base directory.
	ErrOutsideBase = errors.New("path is not inside the base directory")
)

type (
	// Mount is one host-to-container bind.
	Mount struct {
		Host      string
		Container string
	}

	// Mapping is an ordered set of mounts keyed by container path.
	Mapping struct {
		mounts []Mount
		index  map[string]int
	}

	// MountCollisionError reports the container path claimed twice.
	MountCollisionError struct {
		Container string
		Existing  string
		Rejected  string
	}

	// StatFunc matches os.Stat.
	StatFunc func(name string) (fs.FileInfo, error)

	// Translator computes mounts for one invocation.
	Translator struct {
		stat StatFunc
	}

	// Option configures a Translator.
	Option func(*Translator)
)

// Error implements the error interface.
func (e *MountCollisionError) Error() string {
	return fmt.Sprintf("container path %s is already mounted from %s, cannot also mount %s",
		e.Container, e.Existing, e.Rejected)
}

// Unwrap returns ErrMountCollision for errors.Is.
func (e *MountCollisionError) Unwrap() error { return ErrMountCollision }

// NewMapping returns an empty Mapping.
func NewMapping() *Mapping {
	return &Mapping{index: make(map[string]int)}
}

// Add records a mount. Adding the identical pair twice is a no-op; reusing a
// container path for a different host path is a collision.
func (m *Mapping) Add(host, container string) error {
	container = path.Clean(container)
	if i, ok := m.index[container]; ok {
		if m.mounts[i].Host == host {
			return nil
		}
		return &MountCollisionError{Container: container, Existing: m.mounts[i].Host, Rejected: host}
	}
	m.index[container] = len(m.mounts)
	m.mounts = append(m.mounts, Mount{Host: host, Container: container})
	return nil
}

// Mounts returns the mounts in insertion order.
func (m *Mapping) Mounts() []Mount {
	out := make([]Mount, len(m.mounts))
	copy(out, m.mounts)
	return out
}

// HostFor returns the host path mounted at container.
func (m *Mapping) HostFor(container string) (string, bool) {
	i, ok := m.index[path.Clean(container)]
	if !ok {
		return "", false
	}
	return m.mounts[i].Host, true
}

// Len returns the number of mounts.
func (m *Mapping) Len() int { return len(m.mounts) }

// WithStat replaces os.Stat for the SDK config directory probe.
func WithStat(fn StatFunc) Option {
	return func(t *Translator) { t.stat = fn }
}

// NewTranslator creates a Translator.
func NewTranslator(opts ...Option) *Translator {
	t := &Translator{stat: os.Stat}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ComputeMounts builds the base mounts for one container run. hostSDKConfigDir
// is the gcloud config directory ADC are read from on the host; it is mounted
// at the container's default gcloud location only when it exists.
func (t *Translator) ComputeMounts(hostContextDir, hostWorkingDir, hostSDKConfigDir string) (*Mapping, error) {
	m := NewMapping()
	if err := m.Add(hostContextDir, ContextDirOnContainer(hostContextDir)); err != nil {
		return nil, err
	}
	if err := m.Add(hostWorkingDir, ContainerWorkingDir); err != nil {
		return nil, err
	}

	if hostSDKConfigDir == "" {
		return m, nil
	}
	sdkDir := filepath.Clean(hostSDKConfigDir)
	info, err := t.stat(sdkDir)
	switch {
	case err == nil && info.IsDir():
		if err := m.Add(sdkDir, path.Join(ContainerHomeDir, SDKConfigRelDir)); err != nil {
			return nil, err
		}
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("stat %s: %w", sdkDir, err)
	}
	return m, nil
}

// ContextDirOnContainer returns where hostContextDir is mounted:
// <ContainerHomeDir>/<basename of hostContextDir>.
func ContextDirOnContainer(hostContextDir string) string {
	return path.Join(ContainerHomeDir, filepath.Base(filepath.Clean(hostContextDir)))
}

// Reroot maps hostPath, which must live under hostBase, onto containerBase
// keeping its relative suffix.
func Reroot(hostBase, containerBase, hostPath string) (string, error) {
	rel, err := filepath.Rel(filepath.Clean(hostBase), filepath.Clean(hostPath))
	if err != nil {
		return "", fmt.Errorf("%w: %s not under %s: %w", ErrOutsideBase, hostPath, hostBase, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s not under %s", ErrOutsideBase, hostPath, hostBase)
	}
	return path.Join(containerBase, filepath.ToSlash(rel)), nil
}

// CredentialFileOnContainer returns the container path for an injected
// credential file: the directory of anchor, re-rooted under the container
// context mount, joined with CredentialFileName. anchor is a path inside
// hostContextDir that owns the identity material (the pet key file).
func CredentialFileOnContainer(hostContextDir, anchor string) (string, error) {
	dir, err := Reroot(hostContextDir, ContextDirOnContainer(hostContextDir), filepath.Dir(anchor))
	if err != nil {
		return "", err
	}
	return path.Join(dir, CredentialFileName), nil
}
