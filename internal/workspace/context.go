// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"terra-cli/internal/issue"

	"github.com/pelletier/go-toml/v2"
)

const (
	// FileName is the context file inside the context directory.
	FileName = "context.toml"
	// PetKeysDirName holds pet service account keys, one directory per user.
	PetKeysDirName = "pet-keys"
)

var (
	// ErrNoUser is returned when no user is logged in.
	ErrNoUser = errors.New("no user logged in")
	// ErrNoWorkspace is returned when no workspace is set.
	ErrNoWorkspace = errors.New("no workspace set")
)

type (
	// User is the logged-in identity and its delegated pet service account.
	User struct {
		ID         string `toml:"id"`
		Email      string `toml:"email"`
		PetSAEmail string `toml:"pet_sa_email"`
	}

	// Workspace is the current workspace.
	Workspace struct {
		ID              string `toml:"id"`
		Name            string `toml:"name,omitempty"`
		GoogleProjectID string `toml:"google_project_id"`
	}

	// Context is the persisted workspace context. Dir is not serialized; it is
	// the directory the context was loaded from.
	Context struct {
		Dir       string     `toml:"-"`
		User      *User      `toml:"user,omitempty"`
		Workspace *Workspace `toml:"workspace,omitempty"`
	}

	// Store reads and writes the context file of one context directory.
	Store struct {
		dir string
	}
)

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the context directory.
func (s *Store) Dir() string {
	return s.dir
}

// Load reads the context file. A missing file yields an empty Context.
func (s *Store) Load() (*Context, error) {
	ctx := &Context{Dir: s.dir}

	data, err := os.ReadFile(filepath.Join(s.dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return ctx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read workspace context: %w", err)
	}
	if err := toml.Unmarshal(data, ctx); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("parse workspace context").
			WithResource(filepath.Join(s.dir, FileName)).
			WithSuggestion("Delete the file and set the workspace again").
			Wrap(err).
			BuildError()
	}
	ctx.Dir = s.dir
	return ctx, nil
}

// Save writes ctx to the context file, creating the directory if needed.
func (s *Store) Save(ctx *Context) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create context directory: %w", err)
	}
	data, err := toml.Marshal(ctx)
	if err != nil {
		return fmt.Errorf("encode workspace context: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, FileName), data, 0o600); err != nil {
		return fmt.Errorf("write workspace context: %w", err)
	}
	return nil
}

// RequireUser returns the logged-in user or an actionable error.
func (c *Context) RequireUser() (*User, error) {
	if c.User == nil || c.User.Email == "" {
		return nil, issue.NewErrorContext().
			WithOperation("find the current user").
			WithSuggestion("Log in with 'terra auth login'").
			Wrap(ErrNoUser).
			BuildError()
	}
	return c.User, nil
}

// RequireWorkspace returns the current workspace or an actionable error.
func (c *Context) RequireWorkspace() (*Workspace, error) {
	if c.Workspace == nil || c.Workspace.GoogleProjectID == "" {
		return nil, issue.NewErrorContext().
			WithOperation("find the current workspace").
			WithSuggestion("Set one with 'terra workspace set --id=<id>'").
			Wrap(ErrNoWorkspace).
			BuildError()
	}
	return c.Workspace, nil
}

// PetSAKeyFile returns <dir>/pet-keys/<user id>/<workspace id>. The file may
// not exist yet; it is only used to derive where credentials live.
func (c *Context) PetSAKeyFile() (string, error) {
	user, err := c.RequireUser()
	if err != nil {
		return "", err
	}
	ws, err := c.RequireWorkspace()
	if err != nil {
		return "", err
	}
	return filepath.Join(c.Dir, PetKeysDirName, user.ID, ws.ID), nil
}
