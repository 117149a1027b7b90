package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/khanhnv2901/seca-suite/internal/shared/constants"
)

// LoadOrCreateSecret reads a hex encoded token secret from path, creating it
// with 32 random bytes and owner-only permissions on first use.
func LoadOrCreateSecret(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		secret, decodeErr := hex.DecodeString(strings.TrimSpace(string(data)))
		if decodeErr != nil {
			return nil, fmt.Errorf("failed to decode token secret %s: %w", path, decodeErr)
		}
		return secret, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read token secret: %w", err)
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate token secret: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), constants.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create secret directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(secret)+"\n"), constants.SecretFilePerm); err != nil {
		return nil, fmt.Errorf("failed to write token secret: %w", err)
	}
	return secret, nil
}
