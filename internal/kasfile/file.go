// SPDX-License-Identifier: MPL-2.0

package kasfile

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type (
	// File is the include-relevant part of a kas configuration file.
	File struct {
		Path string
		// Includes are the local include references, in declaration order.
		Includes []string
		// RepoIncludes are includes that name another repository.
		RepoIncludes []RepoInclude
		// Ignored names the includes keys whose value was not a list.
		Ignored []string
	}

	// RepoInclude is an include resolved by kas against a checked out repository.
	RepoInclude struct {
		Repo string `yaml:"repo"`
		File string `yaml:"file"`
	}

	document struct {
		Header struct {
			Includes includeList `yaml:"includes"`
		} `yaml:"header"`
		Includes includeList `yaml:"includes"`
	}

	// includeList is an includes value. Anything but a sequence is ignored.
	includeList struct {
		entries []includeEntry
		ignored bool
	}

	includeEntry struct {
		local string
		repo  *RepoInclude
	}
)

// UnmarshalYAML decodes a sequence of entries and marks any other value as ignored.
func (l *includeList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		l.ignored = value.Tag != "!!null"
		return nil
	}
	return value.Decode(&l.entries)
}

// UnmarshalYAML accepts a plain path or a {repo, file} mapping.
func (e *includeEntry) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		e.local = value.Value
		return nil
	case yaml.MappingNode:
		var ri RepoInclude
		if err := value.Decode(&ri); err != nil {
			return err
		}
		if ri.Repo == "" {
			// A mapping without repo refers to a file in the current repository.
			e.local = ri.File
			return nil
		}
		e.repo = &ri
		return nil
	default:
		return fmt.Errorf("line %d: include must be a path or a mapping", value.Line)
	}
}

// Parse decodes the include declarations of a kas file.
// An empty document has no includes.
func Parse(path string, data []byte) (*File, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	f := &File{Path: path}
	if doc.Includes.ignored {
		f.Ignored = append(f.Ignored, "includes")
	}
	if doc.Header.Includes.ignored {
		f.Ignored = append(f.Ignored, "header.includes")
	}
	for _, entry := range append(doc.Includes.entries, doc.Header.Includes.entries...) {
		switch {
		case entry.repo != nil:
			f.RepoIncludes = append(f.RepoIncludes, *entry.repo)
		case entry.local != "":
			f.Includes = append(f.Includes, entry.local)
		}
	}
	return f, nil
}
