// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Advantech-EECC/modular-bsp-build/internal/issue"
	"github.com/Advantech-EECC/modular-bsp-build/internal/logging"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	// FormatYAML is the default registry format.
	FormatYAML Format = "yaml"
	// FormatTOML is selected by a .toml extension.
	FormatTOML Format = "toml"
)

type (
	// Format is a registry file encoding.
	Format string

	// LoadOptions controls registry decoding.
	LoadOptions struct {
		// RejectUnknownFields makes fields the model does not know a load error.
		RejectUnknownFields bool
		// Logger receives warnings about skipped or overridden entries.
		Logger *log.Logger
	}

	specificationSection struct {
		Version string `yaml:"version" toml:"version"`
	}

	registrySection struct {
		BSP []Target `yaml:"bsp" toml:"bsp"`
	}

	yamlDocument struct {
		Specification specificationSection `yaml:"specification"`
		Registry      registrySection      `yaml:"registry"`
		Containers    containerTable       `yaml:"containers"`
		Environment   []Variable           `yaml:"environment"`
	}

	// TOML registries only support the table form of containers.
	tomlDocument struct {
		Specification specificationSection     `toml:"specification"`
		Registry      registrySection          `toml:"registry"`
		Containers    map[string]ContainerSpec `toml:"containers"`
		Environment   []Variable               `toml:"environment"`
	}

	// containerTable accepts containers either as a mapping of name to
	// definition or as a list of single-key mappings.
	containerTable struct {
		entries []namedNode
		skipped []string
	}

	namedNode struct {
		name string
		node *yaml.Node
	}
)

// FormatFor picks the registry format from a file extension.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads and validates the registry at path.
func Load(path string, opts LoadOptions) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		ctx := issue.NewErrorContext().
			WithOperation("load registry").
			WithResource(path)
		if errors.Is(err, fs.ErrNotExist) {
			ctx = ctx.WithIssue(issue.RegistryNotFoundId).
				WithSuggestion("Pass --registry to point at another file")
		}
		return nil, ctx.Wrap(&LoadError{Path: path, Err: err}).BuildError()
	}

	reg, err := Decode(bytes.NewReader(data), FormatFor(path), opts)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Path = path
		}
		return nil, issue.NewErrorContext().
			WithOperation("load registry").
			WithResource(path).
			WithIssue(issue.RegistryInvalidId).
			Wrap(err).
			BuildError()
	}

	reg.Path = path
	return reg, nil
}

// Decode reads a registry document in the given format and validates it.
func Decode(r io.Reader, format Format, opts LoadOptions) (*Registry, error) {
	logger := logging.Ensure(opts.Logger)

	var (
		reg *Registry
		err error
	)
	switch format {
	case FormatTOML:
		reg, err = decodeTOML(r, opts)
	default:
		reg, err = decodeYAML(r, opts, logger)
	}
	if err != nil {
		return nil, err
	}

	if problems := validate(reg); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	return reg, nil
}

func decodeYAML(r io.Reader, opts LoadOptions, logger *log.Logger) (*Registry, error) {
	var doc yamlDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(opts.RejectUnknownFields)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, &LoadError{Err: err}
	}

	for _, name := range doc.Containers.skipped {
		logger.Warn("invalid container configuration, skipping", "entry", name)
	}

	containers := make(map[string]ContainerSpec, len(doc.Containers.entries))
	for _, entry := range doc.Containers.entries {
		var spec ContainerSpec
		if err := decodeNode(entry.node, &spec, opts.RejectUnknownFields); err != nil {
			return nil, &LoadError{Err: fmt.Errorf("container %q: %w", entry.name, err)}
		}
		if _, dup := containers[entry.name]; dup {
			logger.Warn("container defined more than once, last definition wins", "container", entry.name)
		}
		spec.Name = entry.name
		containers[entry.name] = spec
	}

	return &Registry{
		SpecificationVersion: doc.Specification.Version,
		Targets:              doc.Registry.BSP,
		Containers:           containers,
		Environment:          doc.Environment,
	}, nil
}

func decodeTOML(r io.Reader, opts LoadOptions) (*Registry, error) {
	var doc tomlDocument
	dec := toml.NewDecoder(r)
	if opts.RejectUnknownFields {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&doc); err != nil {
		return nil, &LoadError{Err: err}
	}

	containers := make(map[string]ContainerSpec, len(doc.Containers))
	for name, spec := range doc.Containers {
		spec.Name = name
		containers[name] = spec
	}

	return &Registry{
		SpecificationVersion: doc.Specification.Version,
		Targets:              doc.Registry.BSP,
		Containers:           containers,
		Environment:          doc.Environment,
	}, nil
}

// UnmarshalYAML keeps the raw nodes so they can be decoded with the caller's strictness.
func (t *containerTable) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		t.addPairs(value)
	case yaml.SequenceNode:
		for i, item := range value.Content {
			if item.Kind != yaml.MappingNode {
				t.skipped = append(t.skipped, fmt.Sprintf("containers[%d]", i))
				continue
			}
			t.addPairs(item)
		}
	case yaml.ScalarNode:
		if value.Tag != "!!null" {
			return fmt.Errorf("line %d: containers must be a mapping or a list", value.Line)
		}
	default:
		return fmt.Errorf("line %d: containers must be a mapping or a list", value.Line)
	}
	return nil
}

func (t *containerTable) addPairs(mapping *yaml.Node) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key, val := mapping.Content[i], mapping.Content[i+1]
		if val.Kind != yaml.MappingNode && val.Tag != "!!null" {
			t.skipped = append(t.skipped, key.Value)
			continue
		}
		t.entries = append(t.entries, namedNode{name: key.Value, node: val})
	}
}

// decodeNode decodes a node, honoring KnownFields, which yaml.Node.Decode ignores.
func decodeNode(node *yaml.Node, out any, strict bool) error {
	if !strict {
		return node.Decode(out)
	}
	data, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
