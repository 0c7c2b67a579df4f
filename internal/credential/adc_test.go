// SPDX-License-Identifier: MPL-2.0

package credential

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"terra-cli/internal/testutil"
)

func newTestStore(t *testing.T, env map[string]string, home string, onGCE bool, mdEmail string) *ADCStore {
	t.Helper()
	return NewADCStore(
		WithGetenv(func(k string) string { return env[k] }),
		WithHomeDir(func() (string, error) { return home, nil }),
		WithMetadata(
			func() bool { return onGCE },
			func(context.Context) (string, error) { return mdEmail, nil },
		),
	)
}

func TestADCStore_DefaultFile(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil, "/home/u", false, "")
	got, err := s.DefaultFile()
	if err != nil {
		t.Fatalf("DefaultFile() error = %v", err)
	}
	if want := filepath.Join("/home/u", ".config", "gcloud", DefaultFileName); got != want {
		t.Errorf("DefaultFile() = %q, want %q", got, want)
	}

	s = newTestStore(t, map[string]string{"CLOUDSDK_CONFIG": "/opt/gcloud"}, "/home/u", false, "")
	if got, _ := s.DefaultFile(); got != filepath.Join("/opt/gcloud", DefaultFileName) {
		t.Errorf("DefaultFile() with CLOUDSDK_CONFIG = %q", got)
	}
}

func TestADCStore_BackingFileFromEnv(t *testing.T) {
	t.Parallel()

	key := filepath.Join(t.TempDir(), "key.json")
	testutil.MustWriteFile(t, key, []byte(`{"type":"service_account","client_email":"pet@p.iam.gserviceaccount.com"}`))

	s := newTestStore(t, map[string]string{EnvVar: key}, t.TempDir(), false, "")
	path, ok, err := s.BackingFile()
	if err != nil || !ok || path != key {
		t.Fatalf("BackingFile() = %q, %v, %v; want %q", path, ok, err, key)
	}

	email, err := s.Email(context.Background())
	if err != nil || email != "pet@p.iam.gserviceaccount.com" {
		t.Errorf("Email() = %q, %v", email, err)
	}
}

func TestADCStore_BackingFileEnvMissing(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, map[string]string{EnvVar: "/does/not/exist.json"}, t.TempDir(), false, "")
	if _, _, err := s.BackingFile(); err == nil {
		t.Error("BackingFile() expected error for a dangling env var")
	}
}

func TestADCStore_DefaultLocation(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	def := filepath.Join(home, ".config", "gcloud", DefaultFileName)
	testutil.MustWriteFile(t, def, []byte(`{"type":"authorized_user","account":"alice@example.com"}`))

	s := newTestStore(t, nil, home, false, "")
	path, ok, err := s.BackingFile()
	if err != nil || !ok || path != def {
		t.Fatalf("BackingFile() = %q, %v, %v; want %q", path, ok, err, def)
	}
	if email, err := s.Email(context.Background()); err != nil || email != "alice@example.com" {
		t.Errorf("Email() = %q, %v", email, err)
	}
}

func TestADCStore_MetadataServer(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil, t.TempDir(), true, "pet@p.iam.gserviceaccount.com")

	if _, ok, err := s.BackingFile(); ok || err != nil {
		t.Fatalf("BackingFile() ok=%v err=%v, want no file", ok, err)
	}
	if email, err := s.Email(context.Background()); err != nil || email != "pet@p.iam.gserviceaccount.com" {
		t.Errorf("Email() = %q, %v", email, err)
	}
}

func TestADCStore_NoCredentials(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil, t.TempDir(), false, "")
	if _, err := s.Email(context.Background()); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("Email() error = %v, want ErrNoCredentials", err)
	}
}

func TestEmailFromFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"service account", `{"type":"service_account","client_email":"sa@p.iam.gserviceaccount.com"}`, "sa@p.iam.gserviceaccount.com", false},
		{"impersonated", `{"type":"impersonated_service_account","service_account_impersonation_url":"https://iamcredentials.googleapis.com/v1/projects/-/serviceAccounts/pet@p.iam.gserviceaccount.com:generateAccessToken"}`, "pet@p.iam.gserviceaccount.com", false},
		{"authorized user without account", `{"type":"authorized_user","refresh_token":"x"}`, "", true},
		{"not json", `{`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "adc.json")
			testutil.MustWriteFile(t, path, []byte(tt.content))

			got, err := emailFromFile(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("emailFromFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("emailFromFile() = %q, want %q", got, tt.want)
			}
		})
	}
}
