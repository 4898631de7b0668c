// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"fmt"
	"strings"
)

// validate returns every structural problem in reg.
func validate(reg *Registry) []string {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(reg.SpecificationVersion) == "" {
		add("specification.version is required")
	}

	seen := make(map[string]int, len(reg.Targets))
	for i, t := range reg.Targets {
		where := fmt.Sprintf("registry.bsp[%d]", i)
		if t.Name == "" {
			add("%s.name is required", where)
		} else {
			where = fmt.Sprintf("%s (%s)", where, t.Name)
			if first, dup := seen[t.Name]; dup {
				add("%s: duplicate name, first defined at registry.bsp[%d]", where, first)
			} else {
				seen[t.Name] = i
			}
		}

		if t.Build.Path == "" {
			add("%s: build.path is required", where)
		}
		if len(t.Build.Configuration) == 0 {
			add("%s: build.configuration must list at least one kas file", where)
		}
		for j, f := range t.Build.Configuration {
			if strings.TrimSpace(f) == "" {
				add("%s: build.configuration[%d] is empty", where, j)
			}
		}
		if d := t.Build.Environment.Docker; d != nil {
			problems = append(problems, validateArgs(where+": build.environment.docker", d.BuildArgs)...)
		}
	}

	for _, name := range reg.ContainerNames() {
		problems = append(problems, validateArgs("containers."+name, reg.Containers[name].BuildArgs)...)
	}

	for i, v := range reg.Environment {
		if strings.TrimSpace(v.Name) == "" {
			add("environment[%d].name is required", i)
		}
	}

	return problems
}

func validateArgs(where string, args []BuildArg) []string {
	var problems []string
	for i, a := range args {
		if strings.TrimSpace(a.Name) == "" {
			problems = append(problems, fmt.Sprintf("%s.args[%d].name is required", where, i))
		}
	}
	return problems
}
