// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

const (
	// SELinuxLabelNone means no SELinux label is applied to volume mounts.
	SELinuxLabelNone SELinuxLabel = ""
	// SELinuxLabelShared allows sharing the volume between containers.
	SELinuxLabelShared SELinuxLabel = "z"
	// SELinuxLabelPrivate restricts the volume to a single container.
	SELinuxLabelPrivate SELinuxLabel = "Z"
)

var (
	// ErrInvalidSELinuxLabel is the sentinel error wrapped by InvalidSELinuxLabelError.
	ErrInvalidSELinuxLabel = errors.New("invalid SELinux label")
	// ErrInvalidHostFilesystemPath is the sentinel error wrapped by InvalidHostFilesystemPathError.
	ErrInvalidHostFilesystemPath = errors.New("invalid host filesystem path")
	// ErrInvalidMountTargetPath is the sentinel error wrapped by InvalidMountTargetPathError.
	ErrInvalidMountTargetPath = errors.New("invalid container filesystem path")
	// ErrInvalidVolumeMount is the sentinel error wrapped by InvalidVolumeMountError.
	ErrInvalidVolumeMount = errors.New("invalid volume mount")
)

type (
	// SELinuxLabel represents an SELinux volume labeling option.
	SELinuxLabel string

	// InvalidSELinuxLabelError is returned when an SELinuxLabel is not a recognized label.
	InvalidSELinuxLabelError struct {
		Value SELinuxLabel
	}

	// HostFilesystemPath is a path on the host side of a bind mount.
	HostFilesystemPath string

	// InvalidHostFilesystemPathError is returned when a HostFilesystemPath is empty.
	InvalidHostFilesystemPathError struct {
		Value HostFilesystemPath
	}

	// MountTargetPath is an absolute POSIX path inside the container.
	MountTargetPath string

	// InvalidMountTargetPathError is returned when a MountTargetPath is empty or relative.
	InvalidMountTargetPathError struct {
		Value MountTargetPath
	}

	// VolumeMount is one bind mount.
	VolumeMount struct {
		HostPath      HostFilesystemPath
		ContainerPath MountTargetPath
		ReadOnly      bool
		SELinux       SELinuxLabel
	}

	// InvalidVolumeMountError wraps the field errors of a VolumeMount.
	InvalidVolumeMountError struct {
		Value     VolumeMount
		FieldErrs []error
	}
)

// Error implements the error interface.
func (e *InvalidSELinuxLabelError) Error() string {
	return fmt.Sprintf("invalid SELinux label %q (valid: empty, z, Z)", e.Value)
}

// Unwrap returns ErrInvalidSELinuxLabel for errors.Is.
func (e *InvalidSELinuxLabelError) Unwrap() error { return ErrInvalidSELinuxLabel }

// Validate returns an error if the SELinuxLabel is not one of the defined labels.
func (s SELinuxLabel) Validate() error {
	switch s {
	case SELinuxLabelNone, SELinuxLabelShared, SELinuxLabelPrivate:
		return nil
	default:
		return &InvalidSELinuxLabelError{Value: s}
	}
}

// String returns the string representation of the HostFilesystemPath.
func (p HostFilesystemPath) String() string { return string(p) }

// Validate returns an error if the path is empty or whitespace-only.
func (p HostFilesystemPath) Validate() error {
	if strings.TrimSpace(string(p)) == "" {
		return &InvalidHostFilesystemPathError{Value: p}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidHostFilesystemPathError) Error() string {
	return fmt.Sprintf("invalid host filesystem path %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidHostFilesystemPath for errors.Is.
func (e *InvalidHostFilesystemPathError) Unwrap() error { return ErrInvalidHostFilesystemPath }

// String returns the string representation of the MountTargetPath.
func (p MountTargetPath) String() string { return string(p) }

// Validate returns an error unless the path is absolute.
func (p MountTargetPath) Validate() error {
	if strings.TrimSpace(string(p)) == "" || !path.IsAbs(string(p)) {
		return &InvalidMountTargetPathError{Value: p}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidMountTargetPathError) Error() string {
	return fmt.Sprintf("invalid container filesystem path %q: must be absolute", e.Value)
}

// Unwrap returns ErrInvalidMountTargetPath for errors.Is.
func (e *InvalidMountTargetPathError) Unwrap() error { return ErrInvalidMountTargetPath }

// Error implements the error interface.
func (e *InvalidVolumeMountError) Error() string {
	return fmt.Sprintf("invalid volume mount %s:%s: %s",
		e.Value.HostPath, e.Value.ContainerPath, errors.Join(e.FieldErrs...))
}

// Unwrap returns ErrInvalidVolumeMount for errors.Is.
func (e *InvalidVolumeMountError) Unwrap() error { return ErrInvalidVolumeMount }

// Validate returns an error if any field of the VolumeMount is invalid.
func (v VolumeMount) Validate() error {
	var errs []error
	if err := v.HostPath.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := v.ContainerPath.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := v.SELinux.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &InvalidVolumeMountError{Value: v, FieldErrs: errs}
	}
	return nil
}

// String returns the volume mount in "host:container[:options]" format.
func (v VolumeMount) String() string {
	s := string(v.HostPath) + ":" + string(v.ContainerPath)
	var opts []string
	if v.ReadOnly {
		opts = append(opts, "ro")
	}
	if v.SELinux != SELinuxLabelNone {
		opts = append(opts, string(v.SELinux))
	}
	if len(opts) > 0 {
		s += ":" + strings.Join(opts, ",")
	}
	return s
}
