// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/Advantech-EECC/modular-bsp-build/internal/issue"
	"github.com/Advantech-EECC/modular-bsp-build/internal/testutil"
)

func TestHelperProcess(t *testing.T) { testutil.HelperProcess() }

func newMockDocker(t *testing.T, recorder *testutil.MockCommandRecorder) *DockerEngine {
	t.Helper()
	return NewDockerEngine(WithBinaryPath("/usr/bin/docker"), WithExecCommand(recorder.ContextCommandFunc(t)))
}

func TestBaseCLIEngine_BuildArgs(t *testing.T) {
	t.Parallel()

	engine := NewBaseCLIEngine("/usr/bin/docker")

	tests := []struct {
		name string
		opts BuildOptions
		want []string
	}{
		{
			name: "context only",
			opts: BuildOptions{},
			want: []string{"build", "."},
		},
		{
			name: "full options",
			opts: BuildOptions{
				ContextDir: "ctx",
				Dockerfile: "Dockerfile.ubuntu",
				Tag:        "bsp/ubuntu:22.04",
				NoCache:    true,
				BuildArgs: []BuildArg{
					{Name: "DISTRO", Value: "jammy"},
					{Name: "USER", Value: "builder"},
				},
			},
			want: []string{
				"build", "-f", filepath.Join("ctx", "Dockerfile.ubuntu"),
				"-t", "bsp/ubuntu:22.04", "--no-cache",
				"--build-arg", "DISTRO=jammy", "--build-arg", "USER=builder",
				"ctx",
			},
		},
		{
			name: "absolute dockerfile kept",
			opts: BuildOptions{ContextDir: ".", Dockerfile: "/abs/Dockerfile", Tag: "img"},
			want: []string{"build", "-f", "/abs/Dockerfile", "-t", "img", "."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := engine.BuildArgs(tt.opts); !slices.Equal(got, tt.want) {
				t.Errorf("BuildArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBaseCLIEngine_BuildArgsKeepsOrder(t *testing.T) {
	t.Parallel()

	engine := NewBaseCLIEngine("docker")
	args := engine.BuildArgs(BuildOptions{BuildArgs: []BuildArg{
		{Name: "Z", Value: "1"}, {Name: "A", Value: "2"}, {Name: "M", Value: "3"},
	}})

	var got []string
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "--build-arg" {
			got = append(got, args[i+1])
		}
	}
	if want := []string{"Z=1", "A=2", "M=3"}; !slices.Equal(got, want) {
		t.Errorf("build args order = %v, want %v", got, want)
	}
}

func TestDockerEngine_Build(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "Dockerfile"), "FROM ubuntu:22.04\n")

	recorder := testutil.NewMockCommandRecorder()
	engine := newMockDocker(t, recorder)

	err := engine.Build(context.Background(), BuildOptions{
		ContextDir: dir,
		Dockerfile: "Dockerfile",
		Tag:        "bsp/test",
		BuildArgs:  []BuildArg{{Name: "A", Value: "b"}},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	recorder.AssertInvocationCount(t, 1)
	recorder.AssertCommandName(t, "/usr/bin/docker")
	recorder.AssertFirstArg(t, "build")
	if !recorder.HasArgPair("-t", "bsp/test") {
		t.Errorf("missing tag, got %v", recorder.LastArgs())
	}
	if !recorder.HasArgPair("--build-arg", "A=b") {
		t.Errorf("missing build arg, got %v", recorder.LastArgs())
	}
}

func TestDockerEngine_BuildMissingDockerfile(t *testing.T) {
	t.Parallel()

	recorder := testutil.NewMockCommandRecorder()
	engine := newMockDocker(t, recorder)

	err := engine.Build(context.Background(), BuildOptions{
		ContextDir: t.TempDir(),
		Dockerfile: "Dockerfile.missing",
		Tag:        "bsp/test",
	})
	if err == nil {
		t.Fatal("expected error for missing Dockerfile")
	}
	if !errors.Is(err, ErrDockerfileNotFound) {
		t.Errorf("expected ErrDockerfileNotFound, got %v", err)
	}
	if !errors.Is(err, issue.ErrResolution) {
		t.Errorf("expected resolution kind, got %v", err)
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Issue != issue.DockerfileNotFoundId {
		t.Errorf("expected actionable error with DockerfileNotFoundId, got %#v", err)
	}
	recorder.AssertInvocationCount(t, 0)
}

func TestDockerEngine_BuildFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "Dockerfile"), "FROM scratch\n")

	recorder := testutil.NewMockCommandRecorder()
	recorder.ExitCode = 1
	recorder.Stderr = "step 3 failed"
	engine := newMockDocker(t, recorder)

	err := engine.Build(context.Background(), BuildOptions{ContextDir: dir, Dockerfile: "Dockerfile", Tag: "bsp/fail"})
	if err == nil {
		t.Fatal("expected build error")
	}

	var be *BuildError
	if !errors.As(err, &be) {
		t.Fatalf("expected *BuildError, got %T", err)
	}
	if be.Engine != "docker" || be.Tag != "bsp/fail" {
		t.Errorf("BuildError = %+v", be)
	}
	if !errors.Is(err, issue.ErrExternalTool) {
		t.Errorf("expected external tool kind, got %v", err)
	}
}

func TestDockerEngine_VersionAndImageExists(t *testing.T) {
	t.Parallel()

	recorder := testutil.NewMockCommandRecorder()
	recorder.Responses = map[string]testutil.MockResponse{
		"version": {Stdout: "27.1.0\n"},
		"image":   {ExitCode: 1},
	}
	engine := newMockDocker(t, recorder)

	version, err := engine.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if version != "27.1.0" {
		t.Errorf("Version() = %q, want 27.1.0", version)
	}
	if !recorder.HasArgPair("--format", "{{.Server.Version}}") {
		t.Errorf("unexpected version args %v", recorder.LastArgs())
	}

	exists, err := engine.ImageExists(context.Background(), "bsp/none")
	if err != nil {
		t.Fatalf("ImageExists() error = %v", err)
	}
	if exists {
		t.Error("ImageExists() = true, want false")
	}
	recorder.AssertArgsContain(t, "image inspect bsp/none")
}

func TestPodmanEngine_Available(t *testing.T) {
	t.Parallel()

	recorder := testutil.NewMockCommandRecorder()
	engine := NewPodmanEngine(WithBinaryPath("/usr/bin/podman"), WithExecCommand(recorder.ContextCommandFunc(t)))

	if !engine.Available() {
		t.Error("Available() = false, want true")
	}
	if !recorder.HasArgPair("--format", "{{.Version}}") {
		t.Errorf("unexpected probe args %v", recorder.LastArgs())
	}

	missing := NewPodmanEngine(WithBinaryPath(""), WithExecCommand(recorder.ContextCommandFunc(t)))
	if missing.Available() {
		t.Error("engine without binary should not be available")
	}
}

func TestNewEngine_Fallback(t *testing.T) {
	t.Parallel()

	recorder := testutil.NewMockCommandRecorder()
	// WithBinaryPath applies to both candidates, so the preferred engine wins.
	engine, err := NewEngine(EngineTypePodman, WithBinaryPath(os.Args[0]), WithExecCommand(recorder.ContextCommandFunc(t)))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if engine.Name() != "podman" {
		t.Errorf("Name() = %q, want podman", engine.Name())
	}

	recorder.ExitCode = 1
	_, err = NewEngine(EngineTypeDocker, WithBinaryPath(os.Args[0]), WithExecCommand(recorder.ContextCommandFunc(t)))
	if err == nil {
		t.Fatal("expected error when no engine responds")
	}
	var notAvailable *ErrEngineNotAvailable
	if !errors.As(err, &notAvailable) || notAvailable.Engine != "docker" {
		t.Errorf("expected ErrEngineNotAvailable for docker, got %v", err)
	}
	if !errors.Is(err, issue.ErrExternalTool) {
		t.Errorf("expected external tool kind, got %v", err)
	}
}

func TestNewEngine_UnknownType(t *testing.T) {
	t.Parallel()

	if _, err := NewEngine("lxc"); !errors.Is(err, issue.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}
