package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrPathEscape indicates the resolved path would escape the trusted root directory.
	ErrPathEscape = errors.New("path escapes base directory")
	// ErrInvalidFileName is returned for names that cannot be used as a single path element.
	ErrInvalidFileName = errors.New("invalid file name")
)

// ResolveWithin joins the provided path elements under the given base directory and ensures
// the resulting path never traverses outside of that base. The returned path is absolute.
func ResolveWithin(base string, elems ...string) (string, error) {
	if base == "" {
		return "", errors.New("base directory is required")
	}

	cleanBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve base path: %w", err)
	}

	joined := filepath.Join(append([]string{cleanBase}, elems...)...)
	target, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("resolve target path: %w", err)
	}

	rel, err := filepath.Rel(cleanBase, target)
	if err != nil {
		return "", fmt.Errorf("relativize path: %w", err)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, target)
	}

	return target, nil
}

// ValidateFileName rejects identifiers that would be unsafe as a file name.
// Report IDs and export names are stored as single path elements.
func ValidateFileName(name string) error {
	switch name {
	case "":
		return fmt.Errorf("%w: empty name", ErrInvalidFileName)
	case ".", "..":
		return fmt.Errorf("%w: %q is reserved", ErrInvalidFileName, name)
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %q must not contain path separators", ErrInvalidFileName, name)
	}
	return nil
}

// SanitizeFileName replaces characters that are awkward in file names so a
// target such as "https://example.com:8443" can become part of an export name.
func SanitizeFileName(name string) string {
	replacer := strings.NewReplacer("://", "_", "/", "_", "\\", "_", ":", "_", "?", "_", "*", "_", " ", "_")
	cleaned := replacer.Replace(strings.TrimSpace(name))
	cleaned = strings.Trim(cleaned, "._")
	if cleaned == "" {
		return "export"
	}
	return cleaned
}

// IsValidPath checks if a path is valid and does not contain path traversal attempts
func IsValidPath(path string) bool {
	if path == "" {
		return false
	}

	// Check for path traversal patterns
	if strings.Contains(path, "..") {
		return false
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	cleanPath := filepath.Clean(absPath)
	return cleanPath != "" && cleanPath != "/"
}
