// SPDX-License-Identifier: MPL-2.0

package command

import (
	"errors"
	"testing"
	"time"
)

func TestCanonicalName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"Deploy", "deploy"},
		{"  restart service  ", "restart_service"},
		{"UPPER CASE NAME", "upper_case_name"},
		{"already_canonical", "already_canonical"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			if got := CanonicalName(tt.raw); got != tt.want {
				t.Errorf("CanonicalName(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDescriptor_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		desc Descriptor
		ok   bool
	}{
		{"valid", Descriptor{Name: "deploy", BinPath: "/usr/local/bin/deploy"}, true},
		{"empty name", Descriptor{BinPath: "/bin/true"}, false},
		{"non-canonical name", Descriptor{Name: "Deploy It", BinPath: "/bin/true"}, false},
		{"empty bin_path", Descriptor{Name: "deploy"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ok, errs := tt.desc.IsValid()
			if ok != tt.ok {
				t.Fatalf("IsValid() = %v, errs %v, want %v", ok, errs, tt.ok)
			}
			if !ok {
				if len(errs) == 0 {
					t.Fatal("IsValid() = false with no errors")
				}
				if !errors.Is(errs[0], ErrInvalidDescriptor) {
					t.Errorf("errs[0] = %v, want ErrInvalidDescriptor", errs[0])
				}
			}
		})
	}
}

func TestDescriptor_Merge_FieldLevelOverride(t *testing.T) {
	t.Parallel()

	base := &Descriptor{
		Name:    "backup",
		BinPath: "/bin/dd",
		Help:    "A",
		EnvVars: map[string]string{"MODE": "fast", "KEEP": "yes"},
		Extra:   map[string]any{"owner": "ops"},
	}
	incoming := &Descriptor{
		Name:    "backup",
		BinPath: "/bin/dd",
		Help:    "B",
		Timeout: 5 * time.Second,
		EnvVars: map[string]string{"MODE": "safe"},
		Extra:   map[string]any{"channel": "#ops"},
	}

	base.Merge(incoming)

	if base.Help != "B" {
		t.Errorf("Help = %q, want %q (later entry wins)", base.Help, "B")
	}
	if base.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", base.Timeout)
	}
	if base.EnvVars["MODE"] != "safe" {
		t.Errorf("EnvVars[MODE] = %q, want %q", base.EnvVars["MODE"], "safe")
	}
	if base.EnvVars["KEEP"] != "yes" {
		t.Error("Merge dropped a key unique to the existing descriptor")
	}
	if base.Extra["owner"] != "ops" || base.Extra["channel"] != "#ops" {
		t.Errorf("Extra = %v, want both owner and channel kept", base.Extra)
	}
}

func TestDescriptor_Merge_ZeroFieldsDoNotOverride(t *testing.T) {
	t.Parallel()

	base := &Descriptor{Name: "x", BinPath: "/bin/x", Help: "keep", Timeout: time.Second}
	base.Merge(&Descriptor{Name: "x"})

	if base.BinPath != "/bin/x" || base.Help != "keep" || base.Timeout != time.Second {
		t.Errorf("zero-valued incoming fields overrode existing values: %+v", base)
	}
}

func TestDescriptor_Clone_Isolation(t *testing.T) {
	t.Parallel()

	orig := &Descriptor{
		Name:    "x",
		BinPath: "/bin/x",
		EnvVars: map[string]string{"A": "1"},
		Extra:   map[string]any{"k": "v"},
	}
	c := orig.Clone()
	c.EnvVars["A"] = "2"
	c.Extra["k"] = "w"

	if orig.EnvVars["A"] != "1" || orig.Extra["k"] != "v" {
		t.Error("Clone() shares map storage with the original")
	}
}
