// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"io"
	"testing"
)

type stubEngine struct {
	name      string
	available bool
}

func (s *stubEngine) Name() string    { return s.name }
func (s *stubEngine) Available() bool { return s.available }
func (s *stubEngine) Start(context.Context, RunOptions) (ContainerID, error) {
	return "", nil
}
func (s *stubEngine) Logs(context.Context, ContainerID, io.Writer, io.Writer) error { return nil }
func (s *stubEngine) Wait(context.Context, ContainerID) (int, error)                { return 0, nil }
func (s *stubEngine) InspectExitCode(context.Context, ContainerID) (int, error)     { return 0, nil }
func (s *stubEngine) Remove(context.Context, ContainerID, bool) error               { return nil }

func withCandidates(t *testing.T, engines ...Engine) {
	t.Helper()
	orig := candidates
	candidates = func(EngineType) []Engine { return engines }
	t.Cleanup(func() { candidates = orig })
}

func TestNewEngine_Fallback(t *testing.T) {
	withCandidates(t,
		&stubEngine{name: "api"},
		&stubEngine{name: "docker", available: true},
		&stubEngine{name: "podman", available: true},
	)

	engine, err := NewEngine(EngineTypeAPI)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if engine.Name() != "docker" {
		t.Errorf("NewEngine() = %s, want the first available fallback", engine.Name())
	}
}

func TestNewEngine_NoneAvailable(t *testing.T) {
	withCandidates(t, &stubEngine{name: "podman"}, &stubEngine{name: "docker"})

	_, err := NewEngine(EngineTypePodman)
	var notAvail *ErrEngineNotAvailable
	if !errors.As(err, &notAvail) || notAvail.Engine != "podman" {
		t.Fatalf("NewEngine() error = %v, want *ErrEngineNotAvailable", err)
	}
}

func TestNewEngine_InvalidType(t *testing.T) {
	t.Parallel()

	if _, err := NewEngine("lxc"); !errors.Is(err, ErrInvalidEngineType) {
		t.Errorf("NewEngine(lxc) error = %v, want ErrInvalidEngineType", err)
	}
}
