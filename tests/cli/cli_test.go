// SPDX-License-Identifier: MPL-2.0

// Package cli contains CLI integration tests using testscript.
//
// The terra binary is built once and run against scripts in testdata. Tool
// commands use the local launch mode with a fake gcloud on PATH, so no cloud
// access or container engine is needed.
package cli

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

// binaryPath is the path to the built terra binary.
var binaryPath string

func TestMain(m *testing.M) {
	wd, err := os.Getwd()
	if err != nil {
		panic("failed to get working directory: " + err.Error())
	}

	// Walk up to find go.mod
	projectRoot := wd
	for {
		if _, err := os.Stat(filepath.Join(projectRoot, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(projectRoot)
		if parent == projectRoot {
			panic("could not find project root (go.mod)")
		}
		projectRoot = parent
	}

	binDir, err := os.MkdirTemp("", "terra-cli-bin-")
	if err != nil {
		panic("failed to create bin directory: " + err.Error())
	}

	binaryName := "terra"
	if runtime.GOOS == "windows" {
		binaryName = "terra.exe"
	}
	binaryPath = filepath.Join(binDir, binaryName)

	cmd := exec.CommandContext(context.Background(), "go", "build", "-o", binaryPath, ".")
	cmd.Dir = projectRoot
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build terra: " + err.Error())
	}

	code := m.Run()
	_ = os.RemoveAll(binDir)
	os.Exit(code)
}

// TestCLI runs all testscript tests in the testdata directory.
func TestCLI(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping CLI integration tests in short mode")
	}

	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		Setup: func(env *testscript.Env) error {
			binDir := filepath.Dir(binaryPath)
			env.Setenv("PATH", binDir+string(os.PathListSeparator)+env.Getenv("PATH"))

			// Isolate config, context dir and ADC lookups from the host.
			home := filepath.Join(env.WorkDir, "home")
			env.Setenv("HOME", home)
			env.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
			env.Setenv("CLOUDSDK_CONFIG", filepath.Join(home, ".config", "gcloud"))
			env.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
			env.Setenv("NO_COLOR", "1")
			return nil
		},
		// Continue running all tests even if one fails
		ContinueOnError: true,
	})
}
