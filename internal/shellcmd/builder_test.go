// SPDX-License-Identifier: MPL-2.0

package shellcmd

import (
	"errors"
	"strings"
	"testing"
)

func TestJoin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"plain", []string{"gsutil", "ls", "gs://bucket"}, "gsutil ls gs://bucket"},
		{"variables stay live", []string{"echo", "$GOOGLE_CLOUD_PROJECT"}, "echo $GOOGLE_CLOUD_PROJECT"},
		{"whitespace boundary", []string{"git", "commit", "-m", "two words"}, `git commit -m "two words"`},
		{"empty argument", []string{"printf", "%s", ""}, `printf %s ""`},
		{"already quoted", []string{"bq", "query", "'SELECT 1'"}, "bq query 'SELECT 1'"},
		{"embedded quote", []string{"echo", `say "hi" now`}, `echo "say \"hi\" now"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Join(tt.args); got != tt.want {
				t.Errorf("Join(%q) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestBuilder_Local(t *testing.T) {
	t.Parallel()

	script, err := NewBuilder().Local(LocalOptions{ProjectID: "terra-proj-1"}, []string{"echo", "hello"})
	if err != nil {
		t.Fatalf("Local() error = %v", err)
	}

	segments := strings.Split(script, Separator)
	if !strings.HasPrefix(segments[1], PrevProjectVar+"=$(gcloud config get-value project)") {
		t.Errorf("capture must precede the project switch, got %q", segments[1])
	}
	if segments[2] != "gcloud config set project terra-proj-1" {
		t.Errorf("set project segment = %q", segments[2])
	}
	if segments[3] != "(echo hello\n)" {
		t.Errorf("user command segment = %q", segments[3])
	}

	restore := strings.Index(script, "gcloud config unset project")
	user := strings.Index(script, "echo hello")
	if restore < user {
		t.Error("restore must come after the user command")
	}
	if !strings.HasSuffix(script, "exit $"+ExitCodeVar) {
		t.Errorf("script must exit with the user command status: %q", script)
	}
	if strings.Contains(script, "activate-service-account") {
		t.Error("identity activation emitted without being requested")
	}
}

func TestBuilder_LocalActivation(t *testing.T) {
	t.Parallel()

	script, err := NewBuilder().Local(LocalOptions{ProjectID: "p", ActivateIdentity: true}, []string{"gcloud", "info"})
	if err != nil {
		t.Fatalf("Local() error = %v", err)
	}
	activate := strings.Index(script, "gcloud auth activate-service-account --key-file=${GOOGLE_APPLICATION_CREDENTIALS}")
	user := strings.Index(script, "(gcloud info")
	if activate < 0 || activate > user {
		t.Errorf("activation must precede the user command:\n%s", script)
	}
}

func TestBuilder_LocalQuotesProject(t *testing.T) {
	t.Parallel()

	script, err := NewBuilder().Local(LocalOptions{ProjectID: "p; rm -rf /"}, []string{"true"})
	if err != nil {
		t.Fatalf("Local() error = %v", err)
	}
	if !strings.Contains(script, "gcloud config set project 'p; rm -rf /'") {
		t.Errorf("project id not quoted:\n%s", script)
	}
}

func TestBuilder_Container(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	tests := []struct {
		name string
		opts ContainerOptions
		want string
	}{
		{
			name: "init script",
			opts: ContainerOptions{InitScript: "terra_init.sh"},
			want: "terra_init.sh && nextflow run main.nf",
		},
		{
			name: "test override activation",
			opts: ContainerOptions{InitScript: "terra_init.sh", ActivateIdentity: true},
			want: `terra_init.sh && echo "Setting the gcloud credentials to match the application default credentials"; ` +
				"gcloud auth activate-service-account --key-file=${GOOGLE_APPLICATION_CREDENTIALS}; nextflow run main.nf",
		},
		{
			name: "skip setup",
			opts: ContainerOptions{InitScript: "terra_init.sh", SkipSetup: true},
			want: "nextflow run main.nf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Container(tt.opts, []string{"nextflow", "run", "main.nf"})
			if err != nil {
				t.Fatalf("Container() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Container() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestBuilder_Errors(t *testing.T) {
	t.Parallel()

	b := NewBuilder()

	if _, err := b.Local(LocalOptions{ProjectID: "p"}, nil); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("Local(nil) error = %v, want ErrEmptyCommand", err)
	}
	if _, err := b.Container(ContainerOptions{InitScript: "x"}, nil); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("Container(nil) error = %v, want ErrEmptyCommand", err)
	}
	if _, err := b.Local(LocalOptions{}, []string{"true"}); err == nil {
		t.Error("Local() without project id should fail")
	}
	if _, err := b.Container(ContainerOptions{}, []string{"true"}); err == nil {
		t.Error("Container() without init script should fail")
	}
	if _, err := b.Container(ContainerOptions{SkipSetup: true}, []string{"echo", "'unterminated"}); !errors.Is(err, ErrInvalidScript) {
		t.Errorf("Container() error = %v, want ErrInvalidScript", err)
	}
}

func TestBuilder_Plain(t *testing.T) {
	t.Parallel()

	got, err := NewBuilder().Plain([]string{"ls", "-la", "my dir"})
	if err != nil {
		t.Fatalf("Plain() error = %v", err)
	}
	if got != `ls -la "my dir"` {
		t.Errorf("Plain() = %q", got)
	}
}
