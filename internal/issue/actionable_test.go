// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{
			name: "operation only",
			err:  &ActionableError{Operation: "load registry"},
			want: "failed to load registry",
		},
		{
			name: "operation and resource",
			err:  &ActionableError{Operation: "load registry", Resource: "bsp-registry.yml"},
			want: "failed to load registry: bsp-registry.yml",
		},
		{
			name: "with cause",
			err: &ActionableError{
				Operation: "load registry",
				Resource:  "bsp-registry.yml",
				Cause:     errors.New("permission denied"),
			},
			want: "failed to load registry: bsp-registry.yml: permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	err := NewErrorContext().
		WithOperation("build target").
		Wrap(fmt.Errorf("kas: %w", ErrExternalTool)).
		BuildError()

	if !errors.Is(err, ErrExternalTool) {
		t.Error("errors.Is should find the wrapped kind")
	}

	var ae *ActionableError
	if !errors.As(err, &ae) {
		t.Fatal("errors.As should find *ActionableError")
	}
}

func TestActionableError_Format(t *testing.T) {
	cause := errors.Join(ErrResolution, errors.New(`target "x" not found`))
	err := NewErrorContext().
		WithOperation("find target").
		WithResource("x").
		WithSuggestion("Run 'bsp list'").
		WithSuggestion("Check the spelling").
		WithIssue(TargetNotFoundId).
		Wrap(cause).
		Build()

	plain := err.Format(false)
	if !strings.Contains(plain, "  • Run 'bsp list'") {
		t.Errorf("Format(false) missing suggestion bullet:\n%s", plain)
	}
	if strings.Contains(plain, "Error chain") {
		t.Errorf("Format(false) should not include the error chain:\n%s", plain)
	}

	verbose := err.Format(true)
	if !strings.Contains(verbose, "Error chain:") {
		t.Errorf("Format(true) should include the error chain:\n%s", verbose)
	}
	if !strings.Contains(verbose, `2. target "x" not found`) {
		t.Errorf("Format(true) should follow joined errors past the kind marker:\n%s", verbose)
	}
	if err.Issue != TargetNotFoundId {
		t.Errorf("Issue = %d, want %d", err.Issue, TargetNotFoundId)
	}
}

func TestErrorContext_BuildWithoutOperation(t *testing.T) {
	if got := NewErrorContext().WithResource("x").Build(); got != nil {
		t.Errorf("Build() = %v, want nil", got)
	}
	if got := NewErrorContext().BuildError(); got != nil {
		t.Errorf("BuildError() = %v, want nil", got)
	}
}

func TestWrapWithContext_Nil(t *testing.T) {
	if got := WrapWithContext(nil, "op", "res"); got != nil {
		t.Errorf("WrapWithContext(nil) = %v, want nil", got)
	}
}
