// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/Advantech-EECC/modular-bsp-build/internal/issue"
	"github.com/Advantech-EECC/modular-bsp-build/internal/logging"
)

const sampleRegistry = `
specification:
  version: "1.0"
registry:
  bsp:
    - name: imx8-scarthgap
      description: "i.MX8 Yocto 5.0"
      os:
        name: linux
        build_system: yocto
        version: "5.0"
      build:
        path: build/imx8
        environment:
          container: ubuntu-22.04
        configuration:
          - adv-mbsp-oree.yaml
          - imx8.yaml
    - name: inline-board
      description: "Inline container"
      build:
        path: build/inline
        docker: podman
        environment:
          docker:
            image: local/inline:1
            file: Dockerfile.inline
            args:
              - name: DISTRO
                value: debian
        configuration:
          - inline.yml
containers:
  ubuntu-22.04:
    image: bsp/ubuntu:22.04
    file: Dockerfile
    args:
      - name: UBUNTU_VERSION
        value: "22.04"
      - name: PYTHON
        value: "3.10"
  debian-12:
    image: bsp/debian:12
environment:
  - name: DL_DIR
    value: "$ENV{HOME}/yocto/downloads"
  - name: SSTATE_DIR
    value: "$HOME/yocto/sstate"
`

func decodeString(t *testing.T, doc string, opts LoadOptions) *Registry {
	t.Helper()
	reg, err := Decode(strings.NewReader(doc), FormatYAML, opts)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return reg
}

func TestDecode_YAML(t *testing.T) {
	reg := decodeString(t, sampleRegistry, LoadOptions{})

	if reg.SpecificationVersion != "1.0" {
		t.Errorf("SpecificationVersion = %q", reg.SpecificationVersion)
	}
	if got := reg.TargetNames(); !slices.Equal(got, []string{"imx8-scarthgap", "inline-board"}) {
		t.Errorf("TargetNames() = %v", got)
	}
	if got := reg.ContainerNames(); !slices.Equal(got, []string{"debian-12", "ubuntu-22.04"}) {
		t.Errorf("ContainerNames() = %v", got)
	}

	ubuntu, ok := reg.Container("ubuntu-22.04")
	if !ok {
		t.Fatal("ubuntu-22.04 missing")
	}
	if ubuntu.Name != "ubuntu-22.04" || ubuntu.Image != "bsp/ubuntu:22.04" || ubuntu.Dockerfile != "Dockerfile" {
		t.Errorf("unexpected container: %+v", ubuntu)
	}
	wantArgs := []BuildArg{{"UBUNTU_VERSION", "22.04"}, {"PYTHON", "3.10"}}
	if !slices.Equal(ubuntu.BuildArgs, wantArgs) {
		t.Errorf("BuildArgs = %v, want %v (order preserved)", ubuntu.BuildArgs, wantArgs)
	}
	if !ubuntu.HasBuildableImage() {
		t.Error("ubuntu-22.04 should be buildable")
	}
	if debian, _ := reg.Container("debian-12"); debian.HasBuildableImage() {
		t.Error("debian-12 has no Dockerfile and should not be buildable")
	}

	target := reg.Targets[0]
	if target.OS.BuildSystem != "yocto" || target.Build.Path != "build/imx8" {
		t.Errorf("unexpected target: %+v", target)
	}
	if len(reg.Environment) != 2 || reg.Environment[0].Name != "DL_DIR" {
		t.Errorf("Environment = %+v", reg.Environment)
	}
	if reg.Targets[1].Build.Engine != "podman" {
		t.Errorf("Build.Engine = %q, want podman", reg.Targets[1].Build.Engine)
	}
}

func TestDecode_ContainerList(t *testing.T) {
	doc := `
specification: {version: "1"}
containers:
  - ubuntu:
      image: bsp/ubuntu
  - just-a-string
  - broken: not-a-mapping
  - ubuntu:
      image: bsp/ubuntu:override
    debian:
      image: bsp/debian
`
	var logs bytes.Buffer
	reg := decodeString(t, doc, LoadOptions{Logger: logging.New(logging.Options{Writer: &logs, NoColor: true})})

	if got := reg.ContainerNames(); !slices.Equal(got, []string{"debian", "ubuntu"}) {
		t.Errorf("ContainerNames() = %v", got)
	}
	if c, _ := reg.Container("ubuntu"); c.Image != "bsp/ubuntu:override" {
		t.Errorf("later duplicate should win, got %q", c.Image)
	}

	out := logs.String()
	for _, want := range []string{"containers[1]", "broken", "last definition wins"} {
		if !strings.Contains(out, want) {
			t.Errorf("warnings should mention %q:\n%s", want, out)
		}
	}
}

func TestDecode_UnknownFields(t *testing.T) {
	doc := `
specification:
  version: "1"
  released: 2024
registry:
  bsp:
    - name: a
      maintainer: someone
      build: {path: b, configuration: [a.yml]}
containers:
  c:
    image: x
    labels: {team: bsp}
`
	reg := decodeString(t, doc, LoadOptions{})
	if len(reg.Targets) != 1 {
		t.Fatalf("unknown fields should be ignored, got %d targets", len(reg.Targets))
	}

	_, err := Decode(strings.NewReader(doc), FormatYAML, LoadOptions{RejectUnknownFields: true})
	if !errors.Is(err, issue.ErrConfiguration) {
		t.Fatalf("strict Decode() error = %v, want configuration error", err)
	}
}

func TestDecode_StrictRejectsUnknownContainerField(t *testing.T) {
	doc := `
specification: {version: "1"}
containers:
  c:
    image: x
    labels: {team: bsp}
`
	_, err := Decode(strings.NewReader(doc), FormatYAML, LoadOptions{RejectUnknownFields: true})
	if err == nil || !strings.Contains(err.Error(), `container "c"`) {
		t.Fatalf("strict Decode() error = %v, want error naming container c", err)
	}
}

func TestDecode_Validation(t *testing.T) {
	doc := `
registry:
  bsp:
    - description: nameless
      build: {path: x, configuration: [a.yml]}
    - name: dup
      build: {path: x, configuration: [a.yml]}
    - name: dup
      build:
        configuration: []
containers:
  c:
    args:
      - value: orphan
environment:
  - value: nobody
`
	_, err := Decode(strings.NewReader(doc), FormatYAML, LoadOptions{})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Decode() error = %v, want *ValidationError", err)
	}
	if !errors.Is(err, issue.ErrConfiguration) {
		t.Error("ValidationError should unwrap to ErrConfiguration")
	}

	want := []string{
		"specification.version is required",
		"registry.bsp[0].name is required",
		"registry.bsp[2] (dup): duplicate name, first defined at registry.bsp[1]",
		"registry.bsp[2] (dup): build.path is required",
		"registry.bsp[2] (dup): build.configuration must list at least one kas file",
		"containers.c.args[0].name is required",
		"environment[0].name is required",
	}
	if !slices.Equal(verr.Problems, want) {
		t.Errorf("Problems =\n%s\nwant\n%s", strings.Join(verr.Problems, "\n"), strings.Join(want, "\n"))
	}
}

func TestDecode_TOML(t *testing.T) {
	doc := `
[specification]
version = "1.0"

[[registry.bsp]]
name = "rpi4"
description = "Raspberry Pi 4"
[registry.bsp.build]
path = "build/rpi4"
configuration = ["rpi4.yml"]
[registry.bsp.build.environment]
container = "ubuntu"

[containers.ubuntu]
image = "bsp/ubuntu"
file = "Dockerfile"
args = [{ name = "A", value = "1" }]

[[environment]]
name = "DL_DIR"
value = "/srv/dl"
`
	reg, err := Decode(strings.NewReader(doc), FormatTOML, LoadOptions{})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	target, err := reg.FindTarget("rpi4")
	if err != nil {
		t.Fatalf("FindTarget() error = %v", err)
	}
	c, err := reg.EffectiveContainer(target)
	if err != nil {
		t.Fatalf("EffectiveContainer() error = %v", err)
	}
	if c.Name != "ubuntu" || !c.HasBuildableImage() || c.BuildArgs[0] != (BuildArg{"A", "1"}) {
		t.Errorf("unexpected container: %+v", c)
	}
	if reg.Environment[0].Value != "/srv/dl" {
		t.Errorf("Environment = %+v", reg.Environment)
	}
}

func TestFormatFor(t *testing.T) {
	tests := map[string]Format{
		"bsp-registry.yml":  FormatYAML,
		"bsp-registry.yaml": FormatYAML,
		"registry.TOML":     FormatTOML,
		"noext":             FormatYAML,
	}
	for path, want := range tests {
		if got := FormatFor(path); got != want {
			t.Errorf("FormatFor(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bsp-registry.yml")
	if err := os.WriteFile(path, []byte(sampleRegistry), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reg.Path != path {
		t.Errorf("Path = %q, want %q", reg.Path, path)
	}
}

func TestLoad_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bsp-registry.yml")

	_, err := Load(path, LoadOptions{})
	if !errors.Is(err, fs.ErrNotExist) || !errors.Is(err, issue.ErrConfiguration) {
		t.Fatalf("Load() error = %v, want not-exist configuration error", err)
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Issue != issue.RegistryNotFoundId {
		t.Errorf("expected ActionableError linked to RegistryNotFoundId, got %v", err)
	}
}

func TestLoad_InvalidReportsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bsp-registry.yml")
	if err := os.WriteFile(path, []byte("registry: {bsp: []}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path, LoadOptions{})

	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path != path {
		t.Fatalf("Load() error = %v, want ValidationError for %s", err, path)
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bsp-registry.yml")
	if err := os.WriteFile(path, []byte("registry: [unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path, LoadOptions{})

	var lerr *LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("Load() error = %v, want *LoadError", err)
	}
}
