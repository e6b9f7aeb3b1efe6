package editloop

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Workspace abstracts file access for the loop. Paths are always relative
// to the workspace root; implementations must refuse paths that reach
// outside it. *LocalWorkspace satisfies lineedit.FileStore as well.
type Workspace interface {
	Root() string
	Read(path string) (string, error)
	Write(path, content string) error
	Delete(path string) error
	Exists(path string) bool
}

// LocalWorkspace is a Workspace over a local directory tree.
type LocalWorkspace struct {
	root string
}

// NewLocalWorkspace creates a workspace rooted at dir, which must exist.
func NewLocalWorkspace(dir string) (*LocalWorkspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", abs)
	}
	return &LocalWorkspace{root: abs}, nil
}

// Root returns the absolute workspace root.
func (w *LocalWorkspace) Root() string { return w.root }

// resolve maps a workspace-relative path to an absolute one, rejecting
// absolute paths and anything that escapes the root.
func (w *LocalWorkspace) resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("absolute path not allowed: %s", path)
	}
	cleaned := filepath.Clean(path)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes the workspace: %s", path)
	}
	return filepath.Join(w.root, cleaned), nil
}

func (w *LocalWorkspace) Read(path string) (string, error) {
	resolved, err := w.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func (w *LocalWorkspace) Write(path, content string) error {
	resolved, err := w.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return fmt.Errorf("write %s: failed to create directory: %w", path, err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (w *LocalWorkspace) Delete(path string) error {
	resolved, err := w.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(resolved); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (w *LocalWorkspace) Exists(path string) bool {
	resolved, err := w.resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(resolved)
	return err == nil
}
