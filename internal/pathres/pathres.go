// SPDX-License-Identifier: MPL-2.0

// Package pathres resolves configuration file references against an ordered
// list of search roots.
package pathres

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Advantech-EECC/modular-bsp-build/internal/issue"
)

// ErrNotFound is the sentinel wrapped by NotFoundError.
var ErrNotFound = errors.New("file not found")

type (
	// Resolver locates files by trying, in order: the reference itself when
	// absolute, then WorkDir, BuildDir, InstallDir and each of SearchRoots.
	// Empty roots are skipped.
	Resolver struct {
		WorkDir     string
		BuildDir    string
		InstallDir  string
		SearchRoots []string
	}

	// Options configures New.
	Options struct {
		BuildDir    string
		SearchRoots []string
	}

	// NotFoundError reports a reference that exists under none of the roots.
	NotFoundError struct {
		Reference string
		Searched  []string
	}
)

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s (searched in: %s)", e.Reference, strings.Join(e.Searched, ", "))
}

func (e *NotFoundError) Unwrap() []error { return []error{issue.ErrResolution, ErrNotFound} }

// New returns a Resolver rooted at the process working directory and the
// directory holding the running executable.
func New(opts Options) *Resolver {
	r := &Resolver{
		BuildDir:    opts.BuildDir,
		SearchRoots: opts.SearchRoots,
	}
	if wd, err := os.Getwd(); err == nil {
		r.WorkDir = wd
	}
	if exe, err := os.Executable(); err == nil {
		r.InstallDir = filepath.Dir(exe)
	}
	return r
}

// WithBuildDir returns a copy of r using dir as its build directory.
func (r *Resolver) WithBuildDir(dir string) *Resolver {
	cp := *r
	cp.BuildDir = dir
	return &cp
}

// Roots returns the non-empty search roots in lookup order, with duplicates removed.
func (r *Resolver) Roots() []string {
	candidates := append([]string{r.WorkDir, r.BuildDir, r.InstallDir}, r.SearchRoots...)

	roots := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, root := range candidates {
		if root == "" {
			continue
		}
		root = ExpandHome(root)
		if seen[root] {
			continue
		}
		seen[root] = true
		roots = append(roots, root)
	}
	return roots
}

// Resolve returns the absolute path of the first existing candidate for ref.
func (r *Resolver) Resolve(ref string) (string, error) {
	if path, ok := r.Lookup(ref); ok {
		return path, nil
	}
	return "", &NotFoundError{Reference: ref, Searched: r.Roots()}
}

// Lookup is Resolve without the error.
func (r *Resolver) Lookup(ref string) (string, bool) {
	ref = ExpandHome(ref)

	if filepath.IsAbs(ref) {
		if Exists(ref) {
			return filepath.Clean(ref), true
		}
		return "", false
	}

	for _, root := range r.Roots() {
		candidate := filepath.Join(root, ref)
		if Exists(candidate) {
			return absolute(candidate), true
		}
	}
	return "", false
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(ExpandHome(path))
	return err == nil
}

// EnsureDir creates path and any missing parents.
func EnsureDir(path string) error {
	if err := os.MkdirAll(ExpandHome(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, errors.Join(issue.ErrEnvironment, err))
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~"+string(filepath.Separator)) && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// Absolute returns path made absolute against the working directory, with ~ expanded.
func Absolute(path string) string {
	return absolute(ExpandHome(path))
}

func absolute(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
