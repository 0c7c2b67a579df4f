// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"terra-cli/internal/container"
	"terra-cli/internal/credential"
)

type fakeResolver struct {
	state     credential.State
	err       error
	overrides []string
}

func (f *fakeResolver) Resolve(_ context.Context, override string) (credential.State, error) {
	f.overrides = append(f.overrides, override)
	if override != "" && f.err == nil {
		return credential.State{Kind: credential.NonDefaultFile, Path: override, Override: true}, nil
	}
	return f.state, f.err
}

// fakeEngine records lifecycle calls and plays back configured results.
type fakeEngine struct {
	mu sync.Mutex

	startErr   error
	logs       string
	waitStatus int
	waitErr    error
	exitCode   int
	inspectErr error
	removeErr  error

	started []container.RunOptions
	removed []container.ContainerID
	calls   []string
}

func (f *fakeEngine) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeEngine) Name() string    { return "fake" }
func (f *fakeEngine) Available() bool { return true }

func (f *fakeEngine) Start(_ context.Context, opts container.RunOptions) (container.ContainerID, error) {
	f.record("start")
	if f.startErr != nil {
		return "", f.startErr
	}
	f.mu.Lock()
	f.started = append(f.started, opts)
	id := container.ContainerID(fmt.Sprintf("c%d", len(f.started)))
	f.mu.Unlock()
	return id, nil
}

func (f *fakeEngine) Logs(_ context.Context, _ container.ContainerID, stdout, _ io.Writer) error {
	f.record("logs")
	_, err := io.WriteString(stdout, f.logs)
	return err
}

func (f *fakeEngine) Wait(context.Context, container.ContainerID) (int, error) {
	f.record("wait")
	return f.waitStatus, f.waitErr
}

func (f *fakeEngine) InspectExitCode(context.Context, container.ContainerID) (int, error) {
	f.record("inspect")
	return f.exitCode, f.inspectErr
}

func (f *fakeEngine) Remove(_ context.Context, id container.ContainerID, _ bool) error {
	f.record("remove")
	f.mu.Lock()
	f.removed = append(f.removed, id)
	f.mu.Unlock()
	return f.removeErr
}

// fakeUnit is a scripted Unit.
type fakeUnit struct {
	launchErr   error
	streamErr   error
	waitErr     error
	statusErr   error
	teardownErr error
	code        ExitCode

	// done, when set, makes Stream block until Wait has run.
	done chan struct{}

	teardowns int
}

func (u *fakeUnit) Launch(context.Context) error { return u.launchErr }

func (u *fakeUnit) Stream(ctx context.Context, stdout, _ io.Writer) error {
	if u.done != nil {
		select {
		case <-u.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	_, _ = io.WriteString(stdout, "output\n")
	return u.streamErr
}

func (u *fakeUnit) Wait(context.Context) error {
	if u.done != nil {
		close(u.done)
	}
	return u.waitErr
}

func (u *fakeUnit) ExitStatus(context.Context) (ExitCode, error) { return u.code, u.statusErr }

type tearingUnit struct{ *fakeUnit }

func (u tearingUnit) Teardown(context.Context) error {
	u.teardowns++
	return u.teardownErr
}

var errBoom = errors.New("boom")
