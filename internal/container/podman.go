// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"os"
	"os/exec"
	"strings"
)

type (
	// SELinuxCheckFunc reports whether SELinux is enforcing.
	SELinuxCheckFunc func() bool

	// PodmanEngine implements Engine using the podman CLI.
	PodmanEngine struct {
		*BaseCLIEngine
	}
)

// NewPodmanEngine creates a new Podman engine. On SELinux-enforcing hosts,
// unlabeled volume mounts get the shared :z label.
func NewPodmanEngine(opts ...BaseCLIEngineOption) *PodmanEngine {
	path, _ := exec.LookPath("podman")
	allOpts := append([]BaseCLIEngineOption{
		WithName(string(EngineTypePodman)),
		WithVolumeFormatter(selinuxVolumeFormatter(isSELinuxEnabled)),
	}, opts...)
	return &PodmanEngine{
		BaseCLIEngine: NewBaseCLIEngine(HostFilesystemPath(path), allOpts...),
	}
}

// Available checks if Podman is available.
func (e *PodmanEngine) Available() bool {
	if e.BinaryPath() == "" {
		return false
	}
	cmd := e.CreateCommand(context.Background(), "version", "--format", "{{.Version}}")
	return cmd.Run() == nil
}

func isSELinuxEnabled() bool {
	data, err := os.ReadFile("/sys/fs/selinux/enforce")
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == "1"
}

// selinuxVolumeFormatter labels mounts with :z when enabled reports true and
// the mount carries no label yet.
func selinuxVolumeFormatter(enabled SELinuxCheckFunc) VolumeFormatFunc {
	return func(v VolumeMount) string {
		if v.SELinux == SELinuxLabelNone && enabled() {
			v.SELinux = SELinuxLabelShared
		}
		return v.String()
	}
}
