// SPDX-License-Identifier: MPL-2.0

package registry

type (
	// Variable is a named environment variable whose value may contain
	// $ENV{NAME}, $NAME or ${NAME} references.
	Variable struct {
		Name  string `yaml:"name" toml:"name"`
		Value string `yaml:"value" toml:"value"`
	}

	// BuildArg is a --build-arg passed to the container engine. Order is preserved.
	BuildArg struct {
		Name  string `yaml:"name" toml:"name"`
		Value string `yaml:"value" toml:"value"`
	}

	// ContainerSpec describes a build container. Image and Dockerfile are optional;
	// an image is built only when both are set.
	ContainerSpec struct {
		// Name is the registry key, empty for inline definitions.
		Name       string     `yaml:"-" toml:"-"`
		Image      string     `yaml:"image" toml:"image"`
		Dockerfile string     `yaml:"file" toml:"file"`
		BuildArgs  []BuildArg `yaml:"args" toml:"args"`
	}

	// OperatingSystem is descriptive metadata about the distribution a target produces.
	OperatingSystem struct {
		Name        string `yaml:"name" toml:"name"`
		BuildSystem string `yaml:"build_system" toml:"build_system"`
		Version     string `yaml:"version" toml:"version"`
	}

	// Environment selects the target's build container, by reference or inline.
	Environment struct {
		// Container references an entry of Registry.Containers.
		Container string `yaml:"container" toml:"container"`
		// Docker is an inline container definition, used when Container is empty.
		Docker *ContainerSpec `yaml:"docker" toml:"docker"`
	}

	// BuildSetup describes where and how a target is built.
	BuildSetup struct {
		// Path is the build directory, relative to the working directory.
		Path        string      `yaml:"path" toml:"path"`
		Environment Environment `yaml:"environment" toml:"environment"`
		// Engine optionally overrides the container engine passed to kas-container.
		Engine string `yaml:"docker" toml:"docker"`
		// Configuration lists the root kas files, in order.
		Configuration []string `yaml:"configuration" toml:"configuration"`
	}

	// Target is one buildable board support package.
	Target struct {
		Name        string          `yaml:"name" toml:"name"`
		Description string          `yaml:"description" toml:"description"`
		OS          OperatingSystem `yaml:"os" toml:"os"`
		Build       BuildSetup      `yaml:"build" toml:"build"`
	}

	// Registry is the validated, read-only registry model.
	Registry struct {
		// Path is the file the registry was loaded from, if any.
		Path                 string
		SpecificationVersion string
		Targets              []Target
		// Containers maps container names to their definitions.
		Containers  map[string]ContainerSpec
		Environment []Variable
	}
)

// HasBuildableImage reports whether the container should be built before use.
func (c ContainerSpec) HasBuildableImage() bool {
	return c.Image != "" && c.Dockerfile != ""
}
