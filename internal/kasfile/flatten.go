// SPDX-License-Identifier: MPL-2.0

package kasfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/Advantech-EECC/modular-bsp-build/internal/dag"
	"github.com/Advantech-EECC/modular-bsp-build/internal/issue"
	"github.com/Advantech-EECC/modular-bsp-build/internal/logging"
	"github.com/Advantech-EECC/modular-bsp-build/internal/pathres"

	"github.com/charmbracelet/log"
)

const (
	unvisited visitState = iota
	visiting
	done
)

type (
	// Locator resolves file references against ordered search roots.
	// *pathres.Resolver implements it.
	Locator interface {
		Resolve(ref string) (string, error)
		Lookup(ref string) (string, bool)
		Roots() []string
	}

	// Flattener expands root kas files into the full ordered file list.
	Flattener struct {
		locator Locator
		strict  bool
		logger  *log.Logger
		// readFile is swapped in tests.
		readFile func(string) ([]byte, error)
	}

	// Option configures a Flattener.
	Option func(*Flattener)

	visitState int

	// pass holds the state of a single Flatten call.
	pass struct {
		*Flattener
		cache map[string]*File
		state map[string]visitState
		graph *dag.Graph
		order []string
	}
)

// WithStrictIncludes makes include cycles an error instead of being ignored.
func WithStrictIncludes(strict bool) Option {
	return func(f *Flattener) { f.strict = strict }
}

// WithLogger sets the logger used for include diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(f *Flattener) { f.logger = l }
}

// NewFlattener creates a Flattener that resolves root references with loc.
func NewFlattener(loc Locator, opts ...Option) *Flattener {
	f := &Flattener{locator: loc, readFile: os.ReadFile}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.Ensure(f.logger)
	return f
}

// Flatten returns the absolute paths of roots and everything they include,
// each file appearing once and after every file it includes. Root order is
// kept for roots that are not included by an earlier root.
func (f *Flattener) Flatten(roots []string) ([]string, error) {
	p := &pass{
		Flattener: f,
		cache:     make(map[string]*File),
		state:     make(map[string]visitState),
		graph:     dag.New(),
	}

	for _, ref := range roots {
		path, err := f.locator.Resolve(ref)
		if err != nil {
			return nil, err
		}
		if err := p.visit(path); err != nil {
			return nil, err
		}
	}

	if f.strict {
		if _, err := p.graph.TopologicalSort(); err != nil {
			var cycleErr *dag.CycleError
			if errors.As(err, &cycleErr) {
				// Graph edges point from include to includer; report includer first.
				chain := slices.Clone(cycleErr.Cycle)
				slices.Reverse(chain)
				return nil, &CycleError{Chain: chain}
			}
			return nil, err
		}
	}

	return p.order, nil
}

func (p *pass) visit(path string) error {
	switch p.state[path] {
	case done:
		p.logger.Debug("include already listed", "file", path)
		return nil
	case visiting:
		p.logger.Debug("include cycle ignored", "file", path)
		return nil
	}

	p.state[path] = visiting
	p.graph.AddNode(path)

	file, err := p.load(path)
	if err != nil {
		return err
	}

	for _, ref := range file.Includes {
		incPath, err := p.resolveInclude(ref, path)
		if err != nil {
			return err
		}
		p.graph.AddEdge(incPath, path)
		if err := p.visit(incPath); err != nil {
			return err
		}
	}
	for _, ri := range file.RepoIncludes {
		p.logger.Debug("repository include left to kas", "file", path, "repo", ri.Repo, "include", ri.File)
	}

	p.state[path] = done
	p.order = append(p.order, path)
	return nil
}

func (p *pass) load(path string) (*File, error) {
	if f, ok := p.cache[path]; ok {
		return f, nil
	}

	data, err := p.readFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read kas file %s: %w", path, errors.Join(issue.ErrConfiguration, err))
	}

	f, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	for _, key := range f.Ignored {
		p.logger.Debug("includes is not a list, ignoring it", "file", path, "key", key)
	}
	p.cache[path] = f
	return f, nil
}

// resolveInclude looks for ref next to the declaring file first, then in the general search roots.
func (p *pass) resolveInclude(ref, parent string) (string, error) {
	ref = pathres.ExpandHome(ref)
	parentDir := filepath.Dir(parent)

	if filepath.IsAbs(ref) {
		if pathres.Exists(ref) {
			return filepath.Clean(ref), nil
		}
		return "", &IncludeNotFoundError{Include: ref, Parent: parent, Searched: []string{filepath.Dir(ref)}}
	}

	if candidate := filepath.Join(parentDir, ref); pathres.Exists(candidate) {
		return candidate, nil
	}
	if path, ok := p.locator.Lookup(ref); ok {
		return path, nil
	}

	searched := []string{parentDir}
	for _, root := range p.locator.Roots() {
		if filepath.Clean(root) != parentDir {
			searched = append(searched, root)
		}
	}
	return "", &IncludeNotFoundError{Include: ref, Parent: parent, Searched: searched}
}
