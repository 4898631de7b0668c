// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	RegistryNotFoundId Id = iota + 1
	RegistryInvalidId
	TargetNotFoundId
	ContainerNotFoundId
	KasFileNotFoundId
	IncludeCycleId
	KasNotAvailableId
	ContainerEngineNotFoundId
	DockerfileNotFoundId
	BuildFailedId
	ConfigLoadFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render returns the issue as terminal-formatted Markdown.
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	kasDocs = HttpLink("https://kas.readthedocs.io/en/latest/")

	registryNotFoundIssue = &Issue{
		id: RegistryNotFoundId,
		mdMsg: `
# No BSP registry found!

The registry file lists every board support package that can be built.

## Things you can try:
- Run from the directory that contains ` + "`bsp-registry.yml`" + `
- Point at another file:
~~~
$ bsp --registry path/to/registry.yml list
~~~
- Set ` + "`registry`" + ` in your bsp config file or export ` + "`BSP_REGISTRY`",
	}

	registryInvalidIssue = &Issue{
		id: RegistryInvalidId,
		mdMsg: `
# The BSP registry is not valid

The file was read but its contents do not describe a usable registry.

## Minimal registry:
~~~yaml
specification:
  version: "1.0"
registry:
  bsp:
    - name: board-a
      description: "Board A"
      build:
        path: build/board-a
        environment:
          container: ubuntu-22.04
        configuration:
          - kas/board-a.yml
containers:
  ubuntu-22.04:
    image: bsp/ubuntu:22.04
    file: Dockerfile
~~~`,
	}

	targetNotFoundIssue = &Issue{
		id: TargetNotFoundId,
		mdMsg: `
# Unknown BSP target

No entry in the registry has that name.

## Things you can try:
- List the available targets:
~~~
$ bsp list
~~~
- Check the spelling; names are case-sensitive`,
	}

	containerNotFoundIssue = &Issue{
		id: ContainerNotFoundId,
		mdMsg: `
# Unknown build container

The target references a container that is not defined under ` + "`containers`" + `.

## Things you can try:
- List the defined containers:
~~~
$ bsp containers
~~~
- Fix ` + "`build.environment.container`" + ` or define the container inline with ` + "`build.environment.docker`",
	}

	kasFileNotFoundIssue = &Issue{
		id: KasFileNotFoundId,
		mdMsg: `
# Configuration file not found

A kas file listed by the target, or included by another kas file, could not be found.

## Search order:
1. Absolute paths are used as-is
2. The declaring file's directory (includes only)
3. The current directory
4. The target's build directory
5. The directory containing the bsp binary
6. Every path in ` + "`search_paths`" + ` from your bsp config`,
		docLinks: []HttpLink{kasDocs},
	}

	includeCycleIssue = &Issue{
		id: IncludeCycleId,
		mdMsg: `
# Include cycle detected

Two or more kas files include each other. Cycles are reported as errors because
` + "`strict_includes`" + ` is enabled.

## Things you can try:
- Remove one of the includes in the cycle
- Disable ` + "`strict_includes`" + ` to ignore repeated includes`,
	}

	kasNotAvailableIssue = &Issue{
		id: KasNotAvailableId,
		mdMsg: `
# kas is not available

The build driver could not be started.

## Things you can try:
- Install kas:
~~~
$ pip install kas
~~~
- Make sure ` + "`kas-container`" + ` is on your PATH for containerized builds
- Override the command names with ` + "`kas.command`" + ` and ` + "`kas.container_command`",
		docLinks: []HttpLink{kasDocs},
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not available

Building the target's container image requires Docker or Podman.

## Things you can try:
- Install Docker or Podman and make sure the daemon is running
- Select the engine with ` + "`container_engine`" + ` in your bsp config`,
	}

	dockerfileNotFoundIssue = &Issue{
		id: DockerfileNotFoundId,
		mdMsg: `
# Dockerfile not found

The container definition names a build file that does not exist.

## Things you can try:
- Check the container's ` + "`file`" + ` field; it is relative to the current directory
- Remove ` + "`file`" + ` to use the image as-is`,
	}

	buildFailedIssue = &Issue{
		id: BuildFailedId,
		mdMsg: `
# Build failed

kas exited with an error. Its output above usually names the failing recipe.

## Things you can try:
- Rerun with ` + "`--verbose`" + ` to see the exact kas invocation
- Open a shell in the build environment:
~~~
$ bsp shell <target>
~~~`,
		docLinks: []HttpLink{kasDocs},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load bsp configuration

The bsp configuration file could not be parsed or did not match its schema.

## Things you can try:
- Show where the file lives:
~~~
$ bsp config path
~~~
- Regenerate a default file:
~~~
$ bsp config init --force
~~~`,
	}

	issues = map[Id]*Issue{
		registryNotFoundIssue.Id():        registryNotFoundIssue,
		registryInvalidIssue.Id():         registryInvalidIssue,
		targetNotFoundIssue.Id():          targetNotFoundIssue,
		containerNotFoundIssue.Id():       containerNotFoundIssue,
		kasFileNotFoundIssue.Id():         kasFileNotFoundIssue,
		includeCycleIssue.Id():            includeCycleIssue,
		kasNotAvailableIssue.Id():         kasNotAvailableIssue,
		containerEngineNotFoundIssue.Id(): containerEngineNotFoundIssue,
		dockerfileNotFoundIssue.Id():      dockerfileNotFoundIssue,
		buildFailedIssue.Id():             buildFailedIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
	}
)

func Values() []*Issue {
	return slices.Collect(maps.Values(issues))
}

func Get(id Id) *Issue {
	return issues[id]
}
