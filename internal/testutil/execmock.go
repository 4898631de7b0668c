// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"testing"
)

const helperProcessEnv = "GO_WANT_HELPER_PROCESS"

type (
	// MockCommandRecorder captures arguments passed to exec.Command for verification.
	// It uses the TestHelperProcess pattern to simulate command execution: the
	// package under test must declare
	//
	//	func TestHelperProcess(t *testing.T) { testutil.HelperProcess() }
	MockCommandRecorder struct {
		mu sync.Mutex
		// Invocations records each call to the mock exec.Command
		Invocations []MockInvocation
		// ExitCode is the exit code to return (0 = success)
		ExitCode int
		// Stdout is the output to write to stdout
		Stdout string
		// Stderr is the output to write to stderr
		Stderr string
		// FailOnCommand can be set to a first argument that should fail
		FailOnCommand string
		// Responses overrides the defaults for invocations whose first argument matches the key
		Responses map[string]MockResponse
	}

	// MockResponse is the simulated result of one command.
	MockResponse struct {
		ExitCode int
		Stdout   string
		Stderr   string
	}

	// MockInvocation represents a single invocation of exec.Command.
	MockInvocation struct {
		// Name is the command name (e.g., "docker", "kas")
		Name string
		// Args are the arguments passed to the command
		Args []string
		// Cmd is the command handed back to the caller; Dir and Env reflect
		// what the caller configured before running it.
		Cmd *exec.Cmd
	}
)

// NewMockCommandRecorder creates a new recorder with default settings (success, no output).
func NewMockCommandRecorder() *MockCommandRecorder {
	return &MockCommandRecorder{
		Invocations: make([]MockInvocation, 0),
	}
}

// ContextCommandFunc returns a function that can replace exec.CommandContext for testing.
// The function records invocations and returns a command that runs TestHelperProcess.
func (m *MockCommandRecorder) ContextCommandFunc(t testing.TB) func(ctx context.Context, name string, args ...string) *exec.Cmd {
	t.Helper()
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		resp := MockResponse{ExitCode: m.ExitCode, Stdout: m.Stdout, Stderr: m.Stderr}
		if len(args) > 0 {
			if r, ok := m.Responses[args[0]]; ok {
				resp = r
			}
			if m.FailOnCommand != "" && args[0] == m.FailOnCommand {
				resp.ExitCode = 1
			}
		}

		cs := []string{"-test.run=TestHelperProcess", "--", name}
		cs = append(cs, args...)
		//nolint:gosec // TestHelperProcess is a test-only pattern
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = []string{
			helperProcessEnv + "=1",
			fmt.Sprintf("GO_HELPER_EXIT_CODE=%d", resp.ExitCode),
			"GO_HELPER_STDOUT=" + resp.Stdout,
			"GO_HELPER_STDERR=" + resp.Stderr,
		}

		m.mu.Lock()
		m.Invocations = append(m.Invocations, MockInvocation{Name: name, Args: args, Cmd: cmd})
		m.mu.Unlock()

		return cmd
	}
}

// LastInvocation returns the most recent invocation, or nil if none.
func (m *MockCommandRecorder) LastInvocation() *MockInvocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Invocations) == 0 {
		return nil
	}
	return &m.Invocations[len(m.Invocations)-1]
}

// LastArgs returns the arguments from the most recent invocation.
func (m *MockCommandRecorder) LastArgs() []string {
	if inv := m.LastInvocation(); inv != nil {
		return inv.Args
	}
	return nil
}

// AssertCommandName verifies the last command name matches.
func (m *MockCommandRecorder) AssertCommandName(t testing.TB, expected string) {
	t.Helper()
	if inv := m.LastInvocation(); inv == nil {
		t.Errorf("expected command %q but no commands were invoked", expected)
	} else if inv.Name != expected {
		t.Errorf("expected command %q, got %q", expected, inv.Name)
	}
}

// AssertArgsContain verifies that the last invocation args contain the expected string.
func (m *MockCommandRecorder) AssertArgsContain(t testing.TB, expected string) {
	t.Helper()
	args := m.LastArgs()
	if !strings.Contains(strings.Join(args, " "), expected) {
		t.Errorf("expected args to contain %q, got: %v", expected, args)
	}
}

// AssertArgsNotContain verifies that the last invocation args do NOT contain the expected string.
func (m *MockCommandRecorder) AssertArgsNotContain(t testing.TB, unexpected string) {
	t.Helper()
	args := m.LastArgs()
	if strings.Contains(strings.Join(args, " "), unexpected) {
		t.Errorf("expected args to NOT contain %q, got: %v", unexpected, args)
	}
}

// AssertFirstArg verifies the first argument (subcommand) matches.
func (m *MockCommandRecorder) AssertFirstArg(t testing.TB, expected string) {
	t.Helper()
	args := m.LastArgs()
	if len(args) == 0 {
		t.Errorf("expected first arg %q but args are empty", expected)
		return
	}
	if args[0] != expected {
		t.Errorf("expected first arg %q, got %q", expected, args[0])
	}
}

// AssertInvocationCount verifies the number of command invocations.
func (m *MockCommandRecorder) AssertInvocationCount(t testing.TB, expected int) {
	t.Helper()
	m.mu.Lock()
	got := len(m.Invocations)
	m.mu.Unlock()
	if got != expected {
		t.Errorf("expected %d invocations, got %d", expected, got)
	}
}

// HasArg checks if the last invocation contains a specific argument.
func (m *MockCommandRecorder) HasArg(arg string) bool {
	return slices.Contains(m.LastArgs(), arg)
}

// HasArgPair checks if the last invocation contains a flag-value pair (e.g., "-t", "myimage").
func (m *MockCommandRecorder) HasArgPair(flag, value string) bool {
	args := m.LastArgs()
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

// Reset clears all recorded invocations.
func (m *MockCommandRecorder) Reset() {
	m.mu.Lock()
	m.Invocations = m.Invocations[:0]
	m.mu.Unlock()
}

// HelperProcess writes the configured output and exits with the configured code.
// It returns immediately when the process was not started by a MockCommandRecorder.
func HelperProcess() {
	if os.Getenv(helperProcessEnv) != "1" {
		return
	}

	if stdout := os.Getenv("GO_HELPER_STDOUT"); stdout != "" {
		fmt.Fprint(os.Stdout, stdout)
	}

	if stderr := os.Getenv("GO_HELPER_STDERR"); stderr != "" {
		fmt.Fprint(os.Stderr, stderr)
	}

	exitCode := 0
	if code := os.Getenv("GO_HELPER_EXIT_CODE"); code != "" {
		fmt.Sscanf(code, "%d", &exitCode)
	}

	os.Exit(exitCode)
}
