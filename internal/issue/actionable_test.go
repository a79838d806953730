// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
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
			err:  &ActionableError{Operation: "load command config"},
			want: "failed to load command config",
		},
		{
			name: "operation with resource",
			err: &ActionableError{
				Operation: "load command config",
				Resource:  "./conf.d/commands.yaml",
			},
			want: "failed to load command config: ./conf.d/commands.yaml",
		},
		{
			name: "operation with cause",
			err: &ActionableError{
				Operation: "parse config",
				Cause:     errors.New("syntax error at line 5"),
			},
			want: "failed to parse config: syntax error at line 5",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "load command config",
				Resource:  "./conf.d/commands.yaml",
				Cause:     errors.New("file not found"),
			},
			want: "failed to load command config: ./conf.d/commands.yaml: file not found",
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

func TestActionableError_ErrorsIs(t *testing.T) {
	cause := errors.New("specific error")
	wrapped := &ActionableError{Operation: "probe help", Cause: cause}

	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if (&ActionableError{Operation: "probe help"}).Unwrap() != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestActionableError_Format(t *testing.T) {
	tests := []struct {
		name     string
		err      *ActionableError
		verbose  bool
		contains []string
		excludes []string
	}{
		{
			name:     "simple error non-verbose",
			err:      &ActionableError{Operation: "load config"},
			contains: []string{"failed to load config"},
		},
		{
			name: "error with suggestions",
			err: &ActionableError{
				Operation:   "load command config",
				Resource:    "./conf.d/commands.yaml",
				Suggestions: []string{"Check the entry has bin_path or url", "Check file permissions"},
			},
			contains: []string{
				"failed to load command config",
				"./conf.d/commands.yaml",
				"• Check the entry has bin_path or url",
				"• Check file permissions",
			},
		},
		{
			name: "error chain in verbose mode",
			err: &ActionableError{
				Operation: "parse config",
				Cause:     errors.New("syntax error"),
			},
			verbose: true,
			contains: []string{
				"failed to parse config",
				"Error chain:",
				"1. syntax error",
			},
		},
		{
			name: "no error chain in non-verbose",
			err: &ActionableError{
				Operation: "parse config",
				Cause:     errors.New("syntax error"),
			},
			contains: []string{"failed to parse config: syntax error"},
			excludes: []string{"Error chain:"},
		},
		{
			name: "nested error chain verbose",
			err: &ActionableError{
				Operation: "execute command",
				Cause: &ActionableError{
					Operation: "read descriptor",
					Cause:     errors.New("file not found"),
				},
			},
			verbose: true,
			contains: []string{
				"Error chain:",
				"1. failed to read descriptor: file not found",
				"2. file not found",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Format(tt.verbose)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("Format() missing %q\ngot:\n%s", s, got)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("Format() should not contain %q\ngot:\n%s", s, got)
				}
			}
		})
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Run("full context", func(t *testing.T) {
		err := NewErrorContext().
			WithOperation("load config").
			WithResource("/etc/chatopsd/config.yaml").
			WithSuggestion("Check syntax").
			WithSuggestion("Verify permissions").
			Wrap(errors.New("parse error")).
			Build()
		if err == nil {
			t.Fatal("Build() returned nil, want error")
		}
		if err.Operation != "load config" {
			t.Errorf("Operation = %q", err.Operation)
		}
		if err.Resource != "/etc/chatopsd/config.yaml" {
			t.Errorf("Resource = %q", err.Resource)
		}
		if len(err.Suggestions) != 2 {
			t.Errorf("Suggestions count = %d, want 2", len(err.Suggestions))
		}
		if err.Cause == nil || err.Cause.Error() != "parse error" {
			t.Errorf("Cause = %v", err.Cause)
		}
	})

	t.Run("missing operation returns nil", func(t *testing.T) {
		if err := NewErrorContext().WithResource("some/path").Build(); err != nil {
			t.Errorf("Build() = %v, want nil", err)
		}
	})
}

func TestErrorContext_BuildError(t *testing.T) {
	err := NewErrorContext().WithOperation("validate bin_path").BuildError()
	if err == nil {
		t.Fatal("BuildError() returned nil")
	}
	if _, ok := errors.AsType[*ActionableError](err); !ok {
		t.Error("BuildError() should return *ActionableError")
	}

	// A nil *ActionableError must not leak out as a non-nil error interface.
	if err := NewErrorContext().BuildError(); err != nil {
		t.Errorf("BuildError() without operation = %v, want nil", err)
	}
}

func TestWrapWithOperation(t *testing.T) {
	cause := errors.New("original error")
	err := WrapWithOperation(cause, "scan executables")

	if err == nil {
		t.Fatal("WrapWithOperation returned nil")
	}
	if err.Operation != "scan executables" {
		t.Errorf("Operation = %q", err.Operation)
	}
	if !errors.Is(err, cause) {
		t.Error("cause should survive wrapping")
	}

	if nilErr := WrapWithOperation(nil, "scan executables"); nilErr != nil {
		t.Error("WrapWithOperation(nil) should return nil")
	}
}

// Builders are reusable: each Build snapshots the accumulated state.
func TestErrorContext_Reuse(t *testing.T) {
	ctx := NewErrorContext().
		WithOperation("fetch command binary").
		WithResource("https://example.com/tool")

	err1 := ctx.Wrap(errors.New("error 1")).Build()
	err2 := ctx.Wrap(errors.New("error 2")).Build()

	if err1.Cause.Error() == err2.Cause.Error() {
		t.Error("reused context should allow different causes")
	}
	if err1.Operation != err2.Operation {
		t.Error("reused context should preserve operation")
	}
}
