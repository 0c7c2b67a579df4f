// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"terra-cli/internal/config"
	"terra-cli/internal/runtime"
	"terra-cli/internal/workspace"
)

type (
	fakeProvider struct {
		cfg  *config.Config
		path string
		err  error
	}

	// recordingRuntime records requests and returns a fixed outcome.
	recordingRuntime struct {
		mu       sync.Mutex
		name     runtime.RuntimeType
		output   string
		code     runtime.ExitCode
		err      error
		requests []runtime.Request
	}

	testApp struct {
		app      *App
		stdout   *bytes.Buffer
		stderr   *bytes.Buffer
		runtime  *recordingRuntime
		built    []runtime.BuildOptions
		cleanups int
		env      map[string]string
	}
)

func (p *fakeProvider) Load(_ context.Context, _ config.LoadOptions) (*config.Config, string, error) {
	if p.err != nil {
		return nil, "", p.err
	}
	cfg := *p.cfg
	return &cfg, p.path, nil
}

func (r *recordingRuntime) Name() runtime.RuntimeType { return r.name }

func (r *recordingRuntime) Run(_ context.Context, req *runtime.Request) (runtime.ExitCode, error) {
	r.mu.Lock()
	r.requests = append(r.requests, *req)
	r.mu.Unlock()
	if r.output != "" && req.Stdout != nil {
		_, _ = io.WriteString(req.Stdout, r.output)
	}
	return r.code, r.err
}

func (r *recordingRuntime) lastRequest(t *testing.T) runtime.Request {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		t.Fatal("runtime was never run")
	}
	return r.requests[len(r.requests)-1]
}

// newTestApp builds an App over a seeded workspace context and a recording
// runtime. cfg.ContextDir is replaced with a fresh temp dir.
func newTestApp(t *testing.T, cfg *config.Config) *testApp {
	t.Helper()

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg.ContextDir = t.TempDir()
	seedWorkspace(t, cfg.ContextDir)

	ta := &testApp{
		stdout:  &bytes.Buffer{},
		stderr:  &bytes.Buffer{},
		runtime: &recordingRuntime{name: runtime.RuntimeTypeContainer},
		env:     map[string]string{},
	}
	ta.app = NewApp(Dependencies{
		Config: &fakeProvider{cfg: cfg},
		Runtimes: func(opts runtime.BuildOptions) (*runtime.BuildResult, error) {
			ta.built = append(ta.built, opts)
			return &runtime.BuildResult{
				Runtime: ta.runtime,
				Cleanup: func() { ta.cleanups++ },
			}, nil
		},
		Getenv: func(key string) string { return ta.env[key] },
		Stdout: ta.stdout,
		Stderr: ta.stderr,
	})
	return ta
}

func (ta *testApp) run(args ...string) error {
	root := newRootCommand(ta.app)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func seedWorkspace(t *testing.T, dir string) {
	t.Helper()

	err := workspace.NewStore(dir).Save(&workspace.Context{
		User: &workspace.User{
			ID:         "u-123",
			Email:      "alice@example.com",
			PetSAEmail: "pet-123@terra-ws.iam.gserviceaccount.com",
		},
		Workspace: &workspace.Workspace{
			ID:              "ws-1",
			GoogleProjectID: "terra-ws-project",
		},
	})
	if err != nil {
		t.Fatalf("seed workspace: %v", err)
	}
}
