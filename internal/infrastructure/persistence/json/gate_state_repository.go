package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/session"
	"github.com/khanhnv2901/seca-suite/internal/shared/constants"
	"github.com/khanhnv2901/seca-suite/internal/shared/security"
)

// gateStateDTO mirrors the browser storage keys of the original gate so the
// record stays recognizable: secureSession, loginAttempts, lockoutEnd (ms).
type gateStateDTO struct {
	Version       int    `json:"version"`
	SecureSession string `json:"secureSession,omitempty"`
	LoginAttempts int    `json:"loginAttempts"`
	LockoutEnd    int64  `json:"lockoutEnd,omitempty"`
}

// GateStateRepository implements the session.StateRepository interface using JSON file storage
type GateStateRepository struct {
	filePath string
	mu       sync.RWMutex
}

// NewGateStateRepository creates a new JSON-based gate state repository
func NewGateStateRepository(dataDir string) (*GateStateRepository, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, constants.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	filePath := filepath.Join(dataDir, "gate_state.json")
	if !security.IsValidPath(filePath) {
		return nil, fmt.Errorf("invalid file path: %s", filePath)
	}

	return &GateStateRepository{filePath: filePath}, nil
}

// Load returns the persisted state. A missing file, undecodable JSON or an
// unknown version all load as empty state.
func (r *GateStateRepository) Load(ctx context.Context) (*session.GateState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return session.NewGateState(), nil
		}
		return nil, fmt.Errorf("failed to read gate state: %w", err)
	}

	var dto gateStateDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return session.NewGateState(), nil
	}
	if dto.Version != session.CurrentStateVersion {
		return session.NewGateState(), nil
	}

	return r.fromDTO(dto), nil
}

// Save writes the state atomically
func (r *GateStateRepository) Save(ctx context.Context, state *session.GateState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(r.toDTO(state), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal gate state: %w", err)
	}

	tmp := r.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, constants.SecretFilePerm); err != nil {
		return fmt.Errorf("failed to write gate state: %w", err)
	}
	if err := os.Rename(tmp, r.filePath); err != nil {
		return fmt.Errorf("failed to replace gate state: %w", err)
	}
	return nil
}

// Clear removes the stored record
func (r *GateStateRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear gate state: %w", err)
	}
	return nil
}

// Path returns the backing file location
func (r *GateStateRepository) Path() string {
	return r.filePath
}

// Helper methods

func (r *GateStateRepository) toDTO(state *session.GateState) gateStateDTO {
	dto := gateStateDTO{
		Version:       session.CurrentStateVersion,
		SecureSession: state.Token,
		LoginAttempts: state.Attempts.Failures,
	}
	if !state.Attempts.LockoutUntil.IsZero() {
		dto.LockoutEnd = state.Attempts.LockoutUntil.UnixMilli()
	}
	return dto
}

func (r *GateStateRepository) fromDTO(dto gateStateDTO) *session.GateState {
	state := &session.GateState{
		Version: dto.Version,
		Token:   dto.SecureSession,
		Attempts: session.LoginAttemptState{
			Failures: dto.LoginAttempts,
		},
	}
	if dto.LockoutEnd > 0 {
		state.Attempts.LockoutUntil = time.UnixMilli(dto.LockoutEnd)
	}
	if state.Attempts.Failures < 0 {
		state.Attempts.Failures = 0
	}
	return state
}
