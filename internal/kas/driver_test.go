// SPDX-License-Identifier: MPL-2.0

package kas

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/Advantech-EECC/modular-bsp-build/internal/issue"
	"github.com/Advantech-EECC/modular-bsp-build/internal/testutil"
)

func TestHelperProcess(t *testing.T) { testutil.HelperProcess() }

func newTestDriver(t *testing.T, recorder *testutil.MockCommandRecorder) (*Driver, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	d := NewDriver(
		WithExecCommand(recorder.ContextCommandFunc(t)),
		WithIO(strings.NewReader(""), &out, &out),
		WithProbeTimeout(10*time.Second),
	)
	return d, &out
}

func testRequest(mode Mode) Request {
	return Request{
		Files:   []string{"/cfg/base.yml", "/cfg/board.yml"},
		WorkDir: "/tmp",
		Env:     map[string]string{"DL_DIR": "/cache/dl", "HOME": "/home/builder"},
		Mode:    mode,
	}
}

func TestDriver_BuildArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts BuildOptions
		want []string
	}{
		{
			name: "plain",
			want: []string{"build", "/cfg/base.yml:/cfg/board.yml"},
		},
		{
			name: "target and task",
			opts: BuildOptions{Target: "core-image-minimal", Task: "compile"},
			want: []string{"build", "/cfg/base.yml:/cfg/board.yml", "--target", "core-image-minimal", "--task", "compile"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			recorder := testutil.NewMockCommandRecorder()
			d, _ := newTestDriver(t, recorder)

			if err := d.Build(context.Background(), testRequest(Container), tt.opts); err != nil {
				t.Fatalf("Build() error = %v", err)
			}

			recorder.AssertInvocationCount(t, 2)
			if got := recorder.Invocations[0].Args; !slices.Equal(got, []string{"--help"}) {
				t.Errorf("probe args = %v, want [--help]", got)
			}
			recorder.AssertCommandName(t, DefaultContainerCommand)
			if got := recorder.LastArgs(); !slices.Equal(got, tt.want) {
				t.Errorf("build args = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDriver_RunsInWorkDirWithEnv(t *testing.T) {
	t.Parallel()

	recorder := testutil.NewMockCommandRecorder()
	d, _ := newTestDriver(t, recorder)

	if err := d.Shell(context.Background(), testRequest(Container), "bitbake -e"); err != nil {
		t.Fatalf("Shell() error = %v", err)
	}

	inv := recorder.LastInvocation()
	if inv.Cmd.Dir != "/tmp" {
		t.Errorf("Dir = %q, want /tmp", inv.Cmd.Dir)
	}
	if !slices.Contains(inv.Cmd.Env, "DL_DIR=/cache/dl") {
		t.Errorf("Env missing DL_DIR, got %v", inv.Cmd.Env)
	}
	if !recorder.HasArgPair("--command", "bitbake -e") {
		t.Errorf("missing --command, got %v", inv.Args)
	}
}

func TestDriver_Bitbake(t *testing.T) {
	t.Parallel()

	recorder := testutil.NewMockCommandRecorder()
	d, _ := newTestDriver(t, recorder)

	if err := d.Bitbake(context.Background(), testRequest(Container), "linux-imx", []string{"-c", "menuconfig"}); err != nil {
		t.Fatalf("Bitbake() error = %v", err)
	}
	recorder.AssertFirstArg(t, "shell")
	if !recorder.HasArgPair("--command", "bitbake linux-imx -c menuconfig") {
		t.Errorf("unexpected args %v", recorder.LastArgs())
	}
}

func TestDriver_BitbakeQuotesArguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		extra []string
		want  string
	}{
		{"space in argument", []string{"-c", "do x"}, "bitbake linux-imx -c 'do x'"},
		{"shell metacharacters", []string{"-k", "a;b"}, "bitbake linux-imx -k 'a;b'"},
		{"empty argument", []string{""}, "bitbake linux-imx ''"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			recorder := testutil.NewMockCommandRecorder()
			d, _ := newTestDriver(t, recorder)

			if err := d.Bitbake(context.Background(), testRequest(Container), "linux-imx", tt.extra); err != nil {
				t.Fatalf("Bitbake() error = %v", err)
			}
			if !recorder.HasArgPair("--command", tt.want) {
				t.Errorf("args = %v, want --command %q", recorder.LastArgs(), tt.want)
			}
		})
	}
}

func TestDriver_BitbakeRejectsNullByte(t *testing.T) {
	t.Parallel()

	recorder := testutil.NewMockCommandRecorder()
	d, _ := newTestDriver(t, recorder)

	err := d.Bitbake(context.Background(), testRequest(Container), "linux-imx", []string{"a\x00b"})
	if !errors.Is(err, issue.ErrConfiguration) {
		t.Errorf("Bitbake() error = %v, want ErrConfiguration", err)
	}
	if len(recorder.Invocations) != 0 {
		t.Error("kas should not run when an argument cannot be quoted")
	}
}

func TestDriver_DumpCapturesStdout(t *testing.T) {
	t.Parallel()

	recorder := testutil.NewMockCommandRecorder()
	recorder.Responses = map[string]testutil.MockResponse{
		"dump": {Stdout: "header:\n  version: 14\n"},
	}
	d, out := newTestDriver(t, recorder)

	got, err := d.Dump(context.Background(), testRequest(Native))
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	if got != "header:\n  version: 14\n" {
		t.Errorf("Dump() = %q", got)
	}
	if out.Len() != 0 {
		t.Errorf("dump output leaked to stdout: %q", out.String())
	}
	recorder.AssertCommandName(t, DefaultCommand)
	if got := recorder.Invocations[0].Args; !slices.Equal(got, []string{"--version"}) {
		t.Errorf("native probe args = %v, want [--version]", got)
	}
}

func TestDriver_CommandError(t *testing.T) {
	t.Parallel()

	recorder := testutil.NewMockCommandRecorder()
	recorder.Responses = map[string]testutil.MockResponse{
		"dump": {ExitCode: 3, Stderr: "ERROR - include not found"},
	}
	d, _ := newTestDriver(t, recorder)

	_, err := d.Dump(context.Background(), testRequest(Native))
	if err == nil {
		t.Fatal("expected error")
	}

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *CommandError, got %T", err)
	}
	if cmdErr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", cmdErr.ExitCode)
	}
	if !strings.Contains(err.Error(), "include not found") {
		t.Errorf("error should include stderr, got %q", err.Error())
	}
	if !errors.Is(err, issue.ErrExternalTool) {
		t.Errorf("expected external tool kind, got %v", err)
	}
}

func TestDriver_ProbeUnavailable(t *testing.T) {
	t.Parallel()

	recorder := testutil.NewMockCommandRecorder()
	recorder.Responses = map[string]testutil.MockResponse{
		"--version": {ExitCode: 127},
	}
	d, _ := newTestDriver(t, recorder)

	err := d.Build(context.Background(), testRequest(Native), BuildOptions{})
	if err == nil {
		t.Fatal("expected probe failure")
	}

	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) || unavailable.Command != DefaultCommand {
		t.Errorf("expected UnavailableError for kas, got %v", err)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Issue != issue.KasNotAvailableId {
		t.Errorf("expected actionable error with KasNotAvailableId, got %v", err)
	}
	// No operation runs after a failed probe.
	recorder.AssertInvocationCount(t, 1)
}

func TestDriver_ContainerProbeAcceptsOutput(t *testing.T) {
	t.Parallel()

	recorder := testutil.NewMockCommandRecorder()
	recorder.Responses = map[string]testutil.MockResponse{
		"--help": {ExitCode: 1, Stdout: "Usage: kas-container [OPTIONS] { build | shell } ..."},
	}
	d, _ := newTestDriver(t, recorder)

	if err := d.Probe(context.Background(), testRequest(Container)); err != nil {
		t.Fatalf("Probe() error = %v", err)
	}

	recorder.Responses["--help"] = testutil.MockResponse{ExitCode: 1}
	fresh, _ := newTestDriver(t, recorder)
	if err := fresh.Probe(context.Background(), testRequest(Container)); err == nil {
		t.Error("silent non-zero --help should be unavailable")
	}
}

func TestDriver_ProbeIsCached(t *testing.T) {
	t.Parallel()

	recorder := testutil.NewMockCommandRecorder()
	d, _ := newTestDriver(t, recorder)
	req := testRequest(Container)

	if _, err := d.Dump(context.Background(), req); err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	if err := d.Clean(context.Background(), req); err != nil {
		t.Fatalf("Clean() error = %v", err)
	}

	// One probe plus two operations.
	recorder.AssertInvocationCount(t, 3)
	recorder.AssertFirstArg(t, "clean")
}

func TestDriver_NoFiles(t *testing.T) {
	t.Parallel()

	recorder := testutil.NewMockCommandRecorder()
	d, _ := newTestDriver(t, recorder)

	err := d.Build(context.Background(), Request{Mode: Container}, BuildOptions{})
	if !errors.Is(err, issue.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
	recorder.AssertInvocationCount(t, 0)
}

func TestDriver_CustomCommands(t *testing.T) {
	t.Parallel()

	d := NewDriver(WithCommands("/opt/kas/bin/kas", ""))
	if got := d.Binary(Native); got != "/opt/kas/bin/kas" {
		t.Errorf("Binary(Native) = %q", got)
	}
	if got := d.Binary(Container); got != DefaultContainerCommand {
		t.Errorf("Binary(Container) = %q", got)
	}
}
