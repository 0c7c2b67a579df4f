// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// processWaitDelay bounds how long Wait keeps copying output after the shell
// exits while a background child still holds its stdout or stderr open. It
// also bounds the grace period between the interrupt and a kill.
const processWaitDelay = 5 * time.Second

// processUnit is a host subprocess whose output is relayed through pipes so
// streaming and waiting can proceed independently.
type processUnit struct {
	name string
	args []string
	env  []string
	dir  string

	waitDelay  time.Duration
	cmd        *exec.Cmd
	outR, errR *io.PipeReader
	outW, errW *io.PipeWriter
	code       ExitCode
}

func newProcessUnit(name string, args, env []string, dir string) *processUnit {
	return &processUnit{name: name, args: args, env: env, dir: dir, waitDelay: processWaitDelay}
}

func (u *processUnit) Launch(ctx context.Context) error {
	u.outR, u.outW = io.Pipe()
	u.errR, u.errW = io.Pipe()

	cmd := exec.CommandContext(ctx, u.name, u.args...)
	cmd.Env = u.env
	cmd.Dir = u.dir
	cmd.Stdout = u.outW
	cmd.Stderr = u.errW
	// Interrupt rather than kill so the script still restores the gcloud project.
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = u.waitDelay

	if err := cmd.Start(); err != nil {
		u.closeWriters()
		return fmt.Errorf("start %s: %w", u.name, err)
	}
	u.cmd = cmd
	return nil
}

func (u *processUnit) Stream(_ context.Context, stdout, stderr io.Writer) error {
	var g errgroup.Group
	g.Go(func() error { return relay(stdout, u.outR) })
	g.Go(func() error { return relay(stderr, u.errR) })
	return g.Wait()
}

func (u *processUnit) Wait(context.Context) error {
	err := u.cmd.Wait()
	u.closeWriters()
	if err == nil || errors.Is(err, exec.ErrWaitDelay) {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		u.code = processExitCode(exitErr)
		return nil
	}
	return fmt.Errorf("wait for %s: %w", u.name, err)
}

func (u *processUnit) ExitStatus(context.Context) (ExitCode, error) {
	return u.code, nil
}

func (u *processUnit) closeWriters() {
	_ = u.outW.Close()
	_ = u.errW.Close()
}

// relay copies src to dst. If dst fails, src is still drained so the
// process never blocks on a full pipe.
func relay(dst io.Writer, src io.Reader) error {
	if _, err := io.Copy(dst, src); err != nil {
		_, _ = io.Copy(io.Discard, src)
		return err
	}
	return nil
}

// processExitCode follows the shell convention of 128+signal for processes
// killed by a signal.
func processExitCode(exitErr *exec.ExitError) ExitCode {
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return exitCodeFromStatus(128 + int(ws.Signal()))
	}
	return exitCodeFromStatus(exitErr.ExitCode())
}
