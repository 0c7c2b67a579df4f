// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"

	"terra-cli/internal/container"
)

// containerUnit is a single-use container. Its exit code comes from
// inspecting the stopped container, not from the wait call.
type containerUnit struct {
	engine container.Engine
	opts   container.RunOptions
	logger *log.Logger

	id container.ContainerID
}

func (u *containerUnit) Launch(ctx context.Context) error {
	id, err := u.engine.Start(ctx, u.opts)
	if err != nil {
		return err
	}
	u.id = id
	u.logger.Debug("container started", "id", id, "engine", u.engine.Name(), "image", u.opts.Image)
	return nil
}

func (u *containerUnit) Stream(ctx context.Context, stdout, stderr io.Writer) error {
	return u.engine.Logs(ctx, u.id, stdout, stderr)
}

func (u *containerUnit) Wait(ctx context.Context) error {
	status, err := u.engine.Wait(ctx, u.id)
	if err != nil {
		return err
	}
	u.logger.Debug("container wait returned", "id", u.id, "status", status)
	return nil
}

func (u *containerUnit) ExitStatus(ctx context.Context) (ExitCode, error) {
	status, err := u.engine.InspectExitCode(ctx, u.id)
	if err != nil {
		return 0, err
	}
	u.logger.Debug("container exit code", "id", u.id, "exit_code", status)
	return exitCodeFromStatus(status), nil
}

func (u *containerUnit) Teardown(ctx context.Context) error {
	if u.id == "" {
		return errors.New("no container to remove")
	}
	if err := u.engine.Remove(ctx, u.id, true); err != nil {
		return err
	}
	u.logger.Debug("container removed", "id", u.id)
	return nil
}
