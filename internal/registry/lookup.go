// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"maps"
	"slices"
)

// FindTarget returns the target with the given name.
func (r *Registry) FindTarget(name string) (Target, error) {
	for _, t := range r.Targets {
		if t.Name == name {
			return t, nil
		}
	}
	return Target{}, &TargetNotFoundError{Name: name, Known: r.TargetNames()}
}

// TargetNames returns the target names in registry order.
func (r *Registry) TargetNames() []string {
	names := make([]string, 0, len(r.Targets))
	for _, t := range r.Targets {
		names = append(names, t.Name)
	}
	return names
}

// ContainerNames returns the defined container names, sorted.
func (r *Registry) ContainerNames() []string {
	return slices.Sorted(maps.Keys(r.Containers))
}

// Container returns the named container definition.
func (r *Registry) Container(name string) (ContainerSpec, bool) {
	c, ok := r.Containers[name]
	return c, ok
}

// EffectiveContainer returns the container a target builds in. A reference to
// a registry container takes precedence over an inline definition; a
// reference that does not resolve is an error even if an inline definition exists.
func (r *Registry) EffectiveContainer(t Target) (ContainerSpec, error) {
	env := t.Build.Environment

	if env.Container != "" {
		c, ok := r.Containers[env.Container]
		if !ok {
			return ContainerSpec{}, &ContainerNotFoundError{
				Name:      env.Container,
				Target:    t.Name,
				Available: r.ContainerNames(),
			}
		}
		return c, nil
	}

	if env.Docker != nil {
		return *env.Docker, nil
	}

	return ContainerSpec{}, &NoContainerError{Target: t.Name}
}
