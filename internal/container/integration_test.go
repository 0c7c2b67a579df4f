// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/testcontainers/testcontainers-go"

	"terra-cli/internal/testutil"
)

const integrationImage = "debian:stable-slim"

// checkTestcontainersAvailable safely checks if testcontainers can be used.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return provider.Health(context.Background()) == nil
}

func TestEngine_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping container integration tests: testcontainers provider not available")
	}

	engine, err := NewEngine(EngineTypeAPI)
	if err != nil {
		t.Skipf("skipping container integration tests: %v", err)
	}
	if c, ok := engine.(io.Closer); ok {
		defer testutil.MustClose(t, c)
	}

	sem := testutil.ContainerSemaphore()
	sem <- struct{}{}
	defer func() { <-sem }()

	t.Run("ExitCodeAndLogs", func(t *testing.T) {
		ctx := context.Background()
		workDir := t.TempDir()

		id, err := engine.Start(ctx, RunOptions{
			Image:   integrationImage,
			Command: []string{"bash", "-c", "echo out; echo err >&2; pwd; exit 42"},
			WorkDir: "/usr/local/etc",
			Volumes: []VolumeMount{{HostPath: HostFilesystemPath(workDir), ContainerPath: "/usr/local/etc"}},
		})
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		t.Cleanup(func() { _ = engine.Remove(context.Background(), id, true) })

		var stdout, stderr bytes.Buffer
		if err := engine.Logs(ctx, id, &stdout, &stderr); err != nil {
			t.Fatalf("Logs() error = %v", err)
		}
		if _, err := engine.Wait(ctx, id); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		code, err := engine.InspectExitCode(ctx, id)
		if err != nil {
			t.Fatalf("InspectExitCode() error = %v", err)
		}

		if code != 42 {
			t.Errorf("exit code = %d, want 42", code)
		}
		if !strings.Contains(stdout.String(), "out") || !strings.Contains(stdout.String(), "/usr/local/etc") {
			t.Errorf("stdout = %q", stdout.String())
		}
		if strings.TrimSpace(stderr.String()) != "err" {
			t.Errorf("stderr = %q", stderr.String())
		}
		if err := engine.Remove(ctx, id, true); err != nil {
			t.Errorf("Remove() error = %v", err)
		}
	})
}
