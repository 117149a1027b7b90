package security

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveWithinValidPath(t *testing.T) {
	base := t.TempDir()

	resolved, err := ResolveWithin(base, filepath.Join("reports", "abc.json"))
	if err != nil {
		t.Fatalf("ResolveWithin returned error: %v", err)
	}
	if !strings.HasPrefix(resolved, base) {
		t.Fatalf("expected resolved path %s to stay within base %s", resolved, base)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o700); err != nil {
		t.Fatalf("failed to create parent dirs: %v", err)
	}
	if err := os.WriteFile(resolved, []byte("ok"), 0o600); err != nil {
		t.Fatalf("failed to write resolved file: %v", err)
	}
}

func TestResolveWithinBlocksEscape(t *testing.T) {
	base := t.TempDir()
	_, err := ResolveWithin(base, "..", "etc", "passwd")
	if !errors.Is(err, ErrPathEscape) {
		t.Fatalf("expected ErrPathEscape, got %v", err)
	}
}

func TestResolveWithinEmptyBase(t *testing.T) {
	if _, err := ResolveWithin("", "some", "path"); err == nil {
		t.Fatal("expected error for empty base directory")
	}
}

func TestValidateFileName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"xid", "cn1k2f3g0000abcd1234", false},
		{"csv name", "example.com_subdomains.csv", false},
		{"empty", "", true},
		{"dot", ".", true},
		{"dotdot", "..", true},
		{"slash", "a/b", true},
		{"backslash", `a\b`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFileName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateFileName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidFileName) {
				t.Fatalf("expected ErrInvalidFileName, got %v", err)
			}
		})
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"https://example.com:8443/a": "https_example.com_8443_a",
		"example.com":                "example.com",
		"  ":                         "export",
		"../..":                      "export",
	}
	for in, want := range tests {
		if got := SanitizeFileName(in); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsValidPath(t *testing.T) {
	if IsValidPath("") {
		t.Error("empty path should be invalid")
	}
	if IsValidPath("/tmp/../etc") {
		t.Error("traversal should be invalid")
	}
	if !IsValidPath(filepath.Join(t.TempDir(), "gate_state.json")) {
		t.Error("temp file path should be valid")
	}
}
