package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/khanhnv2901/seca-suite/internal/domain/session"
	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
	"golang.org/x/crypto/bcrypt"
)

func testSecret() []byte {
	return []byte(strings.Repeat("k", 32))
}

func newStore(t *testing.T) *CredentialStore {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret!"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	store, err := NewCredentialStore([]UserConfig{{Username: "admin", PasswordHash: string(hash), Role: "admin"}})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestCredentialStore_Verify(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	identity, err := store.Verify(ctx, "admin", "s3cret!")
	if err != nil {
		t.Fatalf("expected match: %v", err)
	}
	if identity.Role != session.RoleAdmin || identity.SubjectID == "" {
		t.Errorf("unexpected identity %+v", identity)
	}

	again, _ := store.Verify(ctx, "admin", "s3cret!")
	if again.SubjectID != identity.SubjectID {
		t.Error("subject ID should be stable for a username")
	}

	for _, tc := range []struct{ user, pass string }{
		{"admin", "wrong"},
		{"root", "s3cret!"},
	} {
		if _, err := store.Verify(ctx, tc.user, tc.pass); !errors.Is(err, sharedErrors.ErrInvalidCredentials) {
			t.Errorf("%s/%s: expected ErrInvalidCredentials, got %v", tc.user, tc.pass, err)
		}
	}
}

func TestCredentialStore_Config(t *testing.T) {
	if _, err := NewCredentialStore([]UserConfig{{Username: "admin", PasswordHash: "plaintext"}}); err == nil {
		t.Error("expected rejection of a non-bcrypt hash")
	}
	if _, err := NewCredentialStore([]UserConfig{{Username: "", PasswordHash: "x"}}); err == nil {
		t.Error("expected rejection of an empty username")
	}

	empty, err := NewCredentialStore(nil)
	if err != nil {
		t.Fatalf("empty store: %v", err)
	}
	if _, err := empty.Verify(context.Background(), "a", "b"); !errors.Is(err, sharedErrors.ErrNoCredentialsConfigured) {
		t.Errorf("expected ErrNoCredentialsConfigured, got %v", err)
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("hunter2", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")) != nil {
		t.Error("hash should verify")
	}
	if _, err := HashPassword("", 0); !errors.Is(err, sharedErrors.ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestTokenManager_RoundTrip(t *testing.T) {
	m, err := NewTokenManager(testSecret())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	issued := time.Now().Truncate(time.Second)
	identity := session.Identity{SubjectID: "sub-1", Username: "admin", Role: session.RoleAdmin}

	token, sess, err := m.Issue(identity, issued, 24*time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parsed, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.ID() != sess.ID() || parsed.Username() != "admin" || !parsed.IsAdmin() {
		t.Errorf("unexpected parsed session %+v", parsed)
	}
	if !parsed.ExpiresAt().Equal(issued.Add(24 * time.Hour)) {
		t.Errorf("unexpected expiry %v", parsed.ExpiresAt())
	}
}

func TestTokenManager_Rejects(t *testing.T) {
	m, _ := NewTokenManager(testSecret())
	identity := session.Identity{SubjectID: "sub-1", Username: "admin", Role: session.RoleAdmin}
	now := time.Now()

	expired, _, _ := m.Issue(identity, now.Add(-48*time.Hour), 24*time.Hour)

	other, _ := NewTokenManager([]byte(strings.Repeat("z", 32)))
	foreign, _, _ := other.Issue(identity, now, time.Hour)

	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"name": "admin"}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	legacy := "eyJ1c2VySWQiOiIxIiwidXNlcm5hbWUiOiJhZG1pbiIsInJvbGUiOiJhZG1pbiJ9"

	for name, token := range map[string]string{
		"expired":  expired,
		"foreign":  foreign,
		"unsigned": unsigned,
		"legacy":   legacy,
		"garbage":  "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := m.Parse(token); !errors.Is(err, sharedErrors.ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestTokenManager_Revoke(t *testing.T) {
	m, _ := NewTokenManager(testSecret())
	token, sess, _ := m.Issue(session.Identity{Username: "admin"}, time.Now(), time.Hour)

	if err := m.Revoke(sess); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := m.Parse(token); !errors.Is(err, sharedErrors.ErrInvalidToken) {
		t.Errorf("revoked token should be rejected, got %v", err)
	}
	if err := m.Revoke(nil); err != nil {
		t.Errorf("revoke nil: %v", err)
	}
}

func TestTokenManager_RevocationSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "revoked_tokens.json")

	first, _ := NewTokenManager(testSecret())
	if err := first.UseRevocationFile(path); err != nil {
		t.Fatalf("use revocation file: %v", err)
	}
	// a second process (the CLI next to a running server) sharing the file
	running, _ := NewTokenManager(testSecret())
	if err := running.UseRevocationFile(path); err != nil {
		t.Fatalf("use revocation file: %v", err)
	}

	token, sess, _ := first.Issue(session.Identity{Username: "admin"}, time.Now(), time.Hour)
	kept, _, _ := first.Issue(session.Identity{Username: "admin"}, time.Now(), time.Hour)
	if _, err := running.Parse(token); err != nil {
		t.Fatalf("token should be valid before logout: %v", err)
	}
	if err := first.Revoke(sess); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("revocation list not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("revocation list mode = %v, want 0600", info.Mode().Perm())
	}

	restarted, _ := NewTokenManager(testSecret())
	if err := restarted.UseRevocationFile(path); err != nil {
		t.Fatalf("reload: %v", err)
	}
	for name, m := range map[string]*TokenManager{"restarted": restarted, "running": running} {
		if _, err := m.Parse(token); !errors.Is(err, sharedErrors.ErrInvalidToken) {
			t.Errorf("%s: revoked token accepted: %v", name, err)
		}
		if _, err := m.Parse(kept); err != nil {
			t.Errorf("%s: unrelated token rejected: %v", name, err)
		}
	}
}

func TestNewTokenManager_ShortSecret(t *testing.T) {
	if _, err := NewTokenManager([]byte("short")); err == nil {
		t.Error("expected error for short secret")
	}
}

func TestLoadOrCreateSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "gate.key")

	first, err := LoadOrCreateSecret(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(first) != 32 {
		t.Errorf("expected 32 byte secret, got %d", len(first))
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	second, err := LoadOrCreateSecret(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(first) != string(second) {
		t.Error("secret should be stable across loads")
	}

	if err := os.WriteFile(path, []byte("zz-not-hex"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOrCreateSecret(path); err == nil {
		t.Error("expected decode error for corrupt secret")
	}
}
