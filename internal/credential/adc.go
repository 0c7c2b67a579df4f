// SPDX-License-Identifier: MPL-2.0

package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/compute/metadata"
)

const (
	// DefaultFileName is the ADC file gcloud writes into its config directory.
	DefaultFileName = "application_default_credentials.json"

	// cloudSDKConfigEnv relocates the gcloud config directory.
	cloudSDKConfigEnv = "CLOUDSDK_CONFIG"
)

// ErrNoCredentials is returned when no ADC source is available at all.
var ErrNoCredentials = errors.New("no application default credentials found")

type (
	// ADCStore locates ADC the same way the Google client libraries do:
	// $GOOGLE_APPLICATION_CREDENTIALS, then the gcloud default file, then the
	// metadata server.
	ADCStore struct {
		getenv        func(string) string
		homeDir       func() (string, error)
		onGCE         func() bool
		metadataEmail func(ctx context.Context) (string, error)
	}

	// ADCStoreOption configures an ADCStore.
	ADCStoreOption func(*ADCStore)

	// keyFile holds the fields of an ADC JSON file that reveal its identity.
	keyFile struct {
		Type                           string `json:"type"`
		ClientEmail                    string `json:"client_email"`
		Account                        string `json:"account"`
		ServiceAccountImpersonationURL string `json:"service_account_impersonation_url"`
	}
)

// WithGetenv replaces os.Getenv.
func WithGetenv(fn func(string) string) ADCStoreOption {
	return func(s *ADCStore) { s.getenv = fn }
}

// WithHomeDir replaces os.UserHomeDir.
func WithHomeDir(fn func() (string, error)) ADCStoreOption {
	return func(s *ADCStore) { s.homeDir = fn }
}

// WithMetadata replaces the metadata server probes.
func WithMetadata(onGCE func() bool, email func(ctx context.Context) (string, error)) ADCStoreOption {
	return func(s *ADCStore) {
		s.onGCE = onGCE
		s.metadataEmail = email
	}
}

// NewADCStore creates an ADCStore backed by the process environment.
func NewADCStore(opts ...ADCStoreOption) *ADCStore {
	s := &ADCStore{
		getenv:  os.Getenv,
		homeDir: os.UserHomeDir,
		onGCE:   metadata.OnGCE,
		metadataEmail: func(ctx context.Context) (string, error) {
			return metadata.EmailWithContext(ctx, "default")
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SDKConfigDir returns the gcloud config directory: $CLOUDSDK_CONFIG when set,
// otherwise ~/.config/gcloud.
func SDKConfigDir(getenv func(string) string, homeDir func() (string, error)) (string, error) {
	if dir := getenv(cloudSDKConfigEnv); dir != "" {
		return dir, nil
	}
	home, err := homeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "gcloud"), nil
}

// ConfigDir returns the gcloud config directory this store reads ADC from.
func (s *ADCStore) ConfigDir() (string, error) {
	return SDKConfigDir(s.getenv, s.homeDir)
}

// DefaultFile returns the well-known ADC location inside the gcloud config directory.
func (s *ADCStore) DefaultFile() (string, error) {
	dir, err := s.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultFileName), nil
}

// BackingFile returns the file ADC are read from, if any.
func (s *ADCStore) BackingFile() (string, bool, error) {
	if path := s.getenv(EnvVar); path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", false, fmt.Errorf("%s=%s: %w", EnvVar, path, err)
		}
		return path, true, nil
	}

	def, err := s.DefaultFile()
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(def); err == nil {
		return def, true, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", false, fmt.Errorf("stat %s: %w", def, err)
	}
	return "", false, nil
}

// Email returns the identity behind ADC.
func (s *ADCStore) Email(ctx context.Context) (string, error) {
	path, ok, err := s.BackingFile()
	if err != nil {
		return "", err
	}
	if ok {
		return emailFromFile(path)
	}
	if !s.onGCE() {
		return "", ErrNoCredentials
	}
	email, err := s.metadataEmail(ctx)
	if err != nil {
		return "", fmt.Errorf("query metadata server: %w", err)
	}
	return email, nil
}

func emailFromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnreadableFile, err)
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}

	switch kf.Type {
	case "service_account":
		if kf.ClientEmail != "" {
			return kf.ClientEmail, nil
		}
	case "external_account", "impersonated_service_account":
		if email := impersonatedEmail(kf.ServiceAccountImpersonationURL); email != "" {
			return email, nil
		}
	case "authorized_user":
		if kf.Account != "" {
			return kf.Account, nil
		}
	}
	return "", fmt.Errorf("%s: credential type %q carries no identity", path, kf.Type)
}

// impersonatedEmail extracts the service account from
// .../serviceAccounts/<email>:generateAccessToken.
func impersonatedEmail(url string) string {
	_, rest, ok := strings.Cut(url, "/serviceAccounts/")
	if !ok {
		return ""
	}
	email, _, _ := strings.Cut(rest, ":")
	return email
}
