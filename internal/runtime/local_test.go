// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"terra-cli/internal/credential"
	"terra-cli/internal/testutil"
)

// fakeGcloud keeps the active project in a file so tests can observe the
// switch and restore the local script performs.
const fakeGcloud = `#!/usr/bin/env bash
state="$FAKE_GCLOUD_STATE"
case "$1 $2" in
  "config get-value") [ -f "$state" ] && cat "$state" ;;
  "config set") printf '%s' "$4" > "$state" ;;
  "config unset") rm -f "$state" ;;
  "auth activate-service-account") printf '%s' "$3" > "$state.activated" ;;
esac
exit 0
`

type localFixture struct {
	dir   string
	state string
	rt    *LocalRuntime
}

func newLocalFixture(t *testing.T, resolver CredentialResolver) localFixture {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping local process test in short mode")
	}
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}

	dir := t.TempDir()
	bin := filepath.Join(dir, "bin")
	testutil.MustWriteFile(t, filepath.Join(bin, "gcloud"), []byte(fakeGcloud))
	if err := os.Chmod(filepath.Join(bin, "gcloud"), 0o755); err != nil {
		t.Fatal(err)
	}
	state := filepath.Join(dir, "project")

	environ := func() []string {
		return append(os.Environ(),
			"PATH="+bin+string(os.PathListSeparator)+os.Getenv("PATH"),
			"FAKE_GCLOUD_STATE="+state,
		)
	}
	rt := NewLocalRuntime(Workspace{ProjectID: "terra-ws-proj"}, resolver, nil, WithEnviron(environ))
	return localFixture{dir: dir, state: state, rt: rt}
}

func (f localFixture) project(t *testing.T) (string, bool) {
	t.Helper()
	data, err := os.ReadFile(f.state)
	if errors.Is(err, os.ErrNotExist) {
		return "", false
	}
	if err != nil {
		t.Fatal(err)
	}
	return string(data), true
}

func TestLocalRuntime_EchoHello(t *testing.T) {
	t.Parallel()

	f := newLocalFixture(t, &fakeResolver{state: credential.State{Kind: credential.MatchesDefault}})
	testutil.MustWriteFile(t, f.state, []byte("previous-proj"))

	var stdout bytes.Buffer
	code, err := f.rt.Run(context.Background(), &Request{
		Args:    []string{"echo", "hello"},
		WorkDir: f.dir,
		Stdout:  &stdout,
		Stderr:  &bytes.Buffer{},
	})
	if err != nil || code != 0 {
		t.Fatalf("Run() = %d, %v", code, err)
	}
	if !strings.Contains(stdout.String(), "hello\n") {
		t.Errorf("stdout = %q", stdout.String())
	}
	if got, _ := f.project(t); got != "previous-proj" {
		t.Errorf("project after run = %q, want previous-proj restored", got)
	}
	if _, err := os.Stat(f.state + ".activated"); err == nil {
		t.Error("identity must not be activated for default credentials")
	}
}

func TestLocalRuntime_RestoresUnsetProjectOnFailure(t *testing.T) {
	t.Parallel()

	f := newLocalFixture(t, &fakeResolver{state: credential.State{Kind: credential.MatchesDefault}})

	var stdout bytes.Buffer
	code, err := f.rt.Run(context.Background(), &Request{
		Args:    []string{"gcloud", "config", "get-value", "project;", "exit", "3"},
		WorkDir: f.dir,
		Stdout:  &stdout,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != 3 {
		t.Errorf("Run() = %d, want the command's status 3", code)
	}
	if !strings.Contains(stdout.String(), "terra-ws-proj") {
		t.Errorf("command did not see the workspace project: %q", stdout.String())
	}
	if _, ok := f.project(t); ok {
		t.Error("no project was set before the run, it must be unset afterwards")
	}
}

func TestLocalRuntime_Idempotent(t *testing.T) {
	t.Parallel()

	f := newLocalFixture(t, &fakeResolver{state: credential.State{Kind: credential.MatchesDefault}})
	testutil.MustWriteFile(t, f.state, []byte("mine"))

	for range 2 {
		if _, err := f.rt.Run(context.Background(), &Request{Args: []string{"true"}, WorkDir: f.dir}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	}
	if got, _ := f.project(t); got != "mine" {
		t.Errorf("project = %q after two runs, want mine", got)
	}
}

func TestLocalRuntime_NonDefaultFile(t *testing.T) {
	t.Parallel()

	keyFile := "/secrets/pet-key.json"
	f := newLocalFixture(t, &fakeResolver{state: credential.State{Kind: credential.NonDefaultFile, Path: keyFile}})

	var stdout bytes.Buffer
	_, err := f.rt.Run(context.Background(), &Request{
		Args:    []string{"printenv", credential.EnvVar},
		Env:     map[string]string{credential.EnvVar: "/stale.json"},
		WorkDir: f.dir,
		Stdout:  &stdout,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !hasLine(stdout.String(), keyFile) {
		t.Errorf("%s seen by command = %q, want %q", credential.EnvVar, stdout.String(), keyFile)
	}
	activated, err := os.ReadFile(f.state + ".activated")
	if err != nil || string(activated) != "--key-file="+keyFile {
		t.Errorf("activation = %q, %v", activated, err)
	}
}

func TestLocalRuntime_CredentialMismatch(t *testing.T) {
	t.Parallel()

	f := newLocalFixture(t, &fakeResolver{err: credential.ErrMismatch})

	_, err := f.rt.Run(context.Background(), &Request{Args: []string{"touch", filepath.Join(f.dir, "ran")}, WorkDir: f.dir})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Run() error = %v, want ErrConfiguration", err)
	}
	if _, statErr := os.Stat(filepath.Join(f.dir, "ran")); statErr == nil {
		t.Error("command ran despite a credential mismatch")
	}
	if _, ok := f.project(t); ok {
		t.Error("gcloud project touched despite a credential mismatch")
	}
}

func TestLocalRuntime_LaunchFailure(t *testing.T) {
	t.Parallel()

	rt := NewLocalRuntime(Workspace{ProjectID: "p"}, &fakeResolver{}, nil, WithShell("/nonexistent/bash"))

	_, err := rt.Run(context.Background(), &Request{Args: []string{"true"}, WorkDir: t.TempDir()})
	var oe *OrchestrationError
	if !errors.As(err, &oe) || oe.Stage != StageLaunch {
		t.Fatalf("Run() error = %v, want launch OrchestrationError", err)
	}
}

func hasLine(s, want string) bool {
	for line := range strings.Lines(s) {
		if strings.TrimSpace(line) == want {
			return true
		}
	}
	return false
}
