package cmd

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	gateapp "github.com/khanhnv2901/seca-suite/internal/application/gate"
	"github.com/khanhnv2901/seca-suite/internal/domain/session"
	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
)

func TestAuthLoginAndStatus(t *testing.T) {
	setupTestAppContext(t)

	output, err := runCmd(t, authLoginCmd, nil, map[string]string{"username": testAdminUser, "password": testAdminPassword})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !strings.Contains(output, "Logged in as admin (role admin)") {
		t.Errorf("unexpected login output: %s", output)
	}

	output, err = runCmd(t, authStatusCmd, nil, map[string]string{"json": "true"})
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	var status gateapp.Status
	if err := json.Unmarshal([]byte(output), &status); err != nil {
		t.Fatalf("failed to decode status: %v\n%s", err, output)
	}
	if !status.Authenticated || status.Session == nil || status.Session.Username != testAdminUser {
		t.Fatalf("expected an authenticated admin session, got %+v", status)
	}

	if _, err := runCmd(t, authLogoutCmd, nil, nil); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	output, err = runCmd(t, authStatusCmd, nil, nil)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(output, "Session:  none") {
		t.Errorf("expected no session after logout, got: %s", output)
	}
}

func TestAuthLoginPasswordFromEnv(t *testing.T) {
	setupTestAppContext(t)
	t.Setenv(passwordEnvVar, testViewerPass)

	output, err := runCmd(t, authLoginCmd, nil, map[string]string{"username": testViewerUser})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !strings.Contains(output, "role user") {
		t.Errorf("unexpected login output: %s", output)
	}
}

func TestAuthLoginLockout(t *testing.T) {
	setupTestAppContext(t)

	for remaining := 2; remaining >= 1; remaining-- {
		output, err := runCmd(t, authLoginCmd, nil, map[string]string{"username": testAdminUser, "password": "wrong"})
		var invalid *session.InvalidCredentialsError
		if !errors.As(err, &invalid) {
			t.Fatalf("expected invalid credentials, got %v", err)
		}
		if invalid.AttemptsRemaining != remaining {
			t.Fatalf("expected %d attempts remaining, got %d", remaining, invalid.AttemptsRemaining)
		}
		if !strings.Contains(output, "attempt(s) remaining") {
			t.Errorf("unexpected output: %s", output)
		}
	}

	// the third failure locks the gate
	_, err := runCmd(t, authLoginCmd, nil, map[string]string{"username": testAdminUser, "password": "wrong"})
	if !errors.Is(err, sharedErrors.ErrAccountLocked) {
		t.Fatalf("expected lockout, got %v", err)
	}

	// correct credentials are refused while locked
	output, err := runCmd(t, authLoginCmd, nil, map[string]string{"username": testAdminUser, "password": testAdminPassword})
	var locked *session.LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected locked error, got %v", err)
	}
	if !strings.Contains(output, "Too many failed attempts") {
		t.Errorf("unexpected output: %s", output)
	}

	output, err = runCmd(t, authStatusCmd, nil, nil)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(output, "locked") {
		t.Errorf("expected locked status, got: %s", output)
	}
}

func TestAuthLoginMissingCredentials(t *testing.T) {
	setupTestAppContext(t)
	t.Setenv(passwordEnvVar, "")

	_, err := runCmd(t, authLoginCmd, nil, map[string]string{"username": testAdminUser})
	if !errors.Is(err, sharedErrors.ErrMissingCredentials) {
		t.Fatalf("expected missing credentials, got %v", err)
	}
}

func TestAuthHashPassword(t *testing.T) {
	output, err := runCmd(t, authHashPasswordCmd, []string{"hunter22"}, map[string]string{"cost": "4"})
	if err != nil {
		t.Fatalf("hash-password failed: %v", err)
	}
	hash := strings.TrimSpace(output)
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter22")); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}

	t.Setenv(passwordEnvVar, "")
	if _, err := runCmd(t, authHashPasswordCmd, nil, nil); err == nil {
		t.Fatal("expected error without a password")
	}
}
