// SPDX-License-Identifier: MPL-2.0

package container

import "testing"

func TestSELinuxVolumeFormatter(t *testing.T) {
	t.Parallel()

	mount := VolumeMount{HostPath: "/h", ContainerPath: "/c"}

	enabled := selinuxVolumeFormatter(func() bool { return true })
	if got := enabled(mount); got != "/h:/c:z" {
		t.Errorf("enforcing: %q, want /h:/c:z", got)
	}

	private := mount
	private.SELinux = SELinuxLabelPrivate
	if got := enabled(private); got != "/h:/c:Z" {
		t.Errorf("existing label must be kept: %q", got)
	}

	disabled := selinuxVolumeFormatter(func() bool { return false })
	if got := disabled(mount); got != "/h:/c" {
		t.Errorf("permissive: %q, want /h:/c", got)
	}
}

func TestPodmanEngine_Name(t *testing.T) {
	t.Parallel()

	engine := NewPodmanEngine()
	if engine.Name() != "podman" {
		t.Errorf("Name() = %q", engine.Name())
	}
}
