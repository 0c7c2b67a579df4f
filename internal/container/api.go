// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// pingTimeout bounds the availability probe.
const pingTimeout = 3 * time.Second

// APIEngine implements Engine over the Docker Engine API.
type APIEngine struct {
	cli client.APIClient
}

// NewAPIEngine creates an engine from the environment (DOCKER_HOST,
// DOCKER_CERT_PATH, ...) with API version negotiation.
func NewAPIEngine() (*APIEngine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return NewAPIEngineWithClient(cli), nil
}

// NewAPIEngineWithClient wraps an existing client.
func NewAPIEngineWithClient(cli client.APIClient) *APIEngine {
	return &APIEngine{cli: cli}
}

// Name returns the engine name.
func (e *APIEngine) Name() string {
	return string(EngineTypeAPI)
}

// Available pings the daemon.
func (e *APIEngine) Available() bool {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	_, err := e.cli.Ping(ctx)
	return err == nil
}

// Start creates and starts the container. A container that was created but
// failed to start is removed before returning.
func (e *APIEngine) Start(ctx context.Context, opts RunOptions) (ContainerID, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}

	cfg := &container.Config{
		Image:      opts.Image,
		Cmd:        opts.Command,
		WorkingDir: string(opts.WorkDir),
		Env:        envList(opts.Env),
	}
	hostCfg := &container.HostConfig{Mounts: bindMounts(opts.Volumes)}

	created, err := e.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, opts.Name)
	if client.IsErrNotFound(err) {
		// The CLI engines pull implicitly on run; match them.
		if pullErr := e.pull(ctx, opts.Image); pullErr != nil {
			return "", pullErr
		}
		created, err = e.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, opts.Name)
	}
	if err != nil {
		return "", fmt.Errorf("create container from %s: %w", opts.Image, err)
	}
	id := ContainerID(created.ID)

	if err := e.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		if rmErr := e.Remove(context.WithoutCancel(ctx), id, true); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
		return "", fmt.Errorf("start container %s: %w", id, err)
	}
	return id, nil
}

func (e *APIEngine) pull(ctx context.Context, ref string) error {
	rc, err := e.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull %s: %w", ref, err)
	}
	defer rc.Close()
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("pull %s: %w", ref, err)
	}
	return nil
}

// Logs follows the multiplexed log stream and splits it into stdout and stderr.
func (e *APIEngine) Logs(ctx context.Context, id ContainerID, stdout, stderr io.Writer) error {
	rc, err := e.cli.ContainerLogs(ctx, string(id), container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return fmt.Errorf("attach logs of %s: %w", id, err)
	}
	defer rc.Close()

	if _, err := stdcopy.StdCopy(stdout, stderr, rc); err != nil {
		return fmt.Errorf("stream logs of %s: %w", id, err)
	}
	return nil
}

// Wait blocks until the container is no longer running.
func (e *APIEngine) Wait(ctx context.Context, id ContainerID) (int, error) {
	statusCh, errCh := e.cli.ContainerWait(ctx, string(id), container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return 0, fmt.Errorf("wait for %s: %w", id, err)
	case status := <-statusCh:
		if status.Error != nil && status.Error.Message != "" {
			return int(status.StatusCode), fmt.Errorf("wait for %s: %s", id, status.Error.Message)
		}
		return int(status.StatusCode), nil
	}
}

// InspectExitCode returns the exit code recorded in the container state.
func (e *APIEngine) InspectExitCode(ctx context.Context, id ContainerID) (int, error) {
	info, err := e.cli.ContainerInspect(ctx, string(id))
	if err != nil {
		return 0, fmt.Errorf("inspect %s: %w", id, err)
	}
	if info.ContainerJSONBase == nil || info.State == nil {
		return 0, fmt.Errorf("inspect %s: no state reported", id)
	}
	return info.State.ExitCode, nil
}

// Remove deletes the container.
func (e *APIEngine) Remove(ctx context.Context, id ContainerID, force bool) error {
	if err := e.cli.ContainerRemove(ctx, string(id), container.RemoveOptions{Force: force}); err != nil {
		return fmt.Errorf("remove %s: %w", id, err)
	}
	return nil
}

// Close releases the client's transport.
func (e *APIEngine) Close() error {
	return e.cli.Close()
}

func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}

// bindMounts converts volumes to API mounts. SELinux labels have no API
// equivalent on bind mounts and are dropped.
func bindMounts(volumes []VolumeMount) []mount.Mount {
	out := make([]mount.Mount, 0, len(volumes))
	for _, v := range volumes {
		out = append(out, mount.Mount{
			Type:     mount.TypeBind,
			Source:   string(v.HostPath),
			Target:   string(v.ContainerPath),
			ReadOnly: v.ReadOnly,
		})
	}
	return out
}
