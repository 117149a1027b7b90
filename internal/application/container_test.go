package application

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/khanhnv2901/seca-suite/internal/infrastructure/auth"
)

func TestNewContainer_GeneratesSecretAndWiresServices(t *testing.T) {
	dir := t.TempDir()
	hash, err := auth.HashPassword("pw-for-tests", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	c, err := NewContainer(context.Background(), Config{
		DataDir: dir,
		Users:   []auth.UserConfig{{Username: "admin", PasswordHash: hash, Role: "admin"}},
		Offline: true,
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	defer c.Close()

	if c.GateService == nil || c.ScanService == nil || c.BlogService == nil {
		t.Fatal("services not wired")
	}
	if c.Resolver != nil {
		t.Fatal("offline container must not create a resolver")
	}
	if _, err := os.Stat(filepath.Join(dir, "gate.key")); err != nil {
		t.Fatalf("token secret not generated: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "blog.db")); err != nil {
		t.Fatalf("sqlite blog store not created: %v", err)
	}

	sess, err := c.GateService.CheckCredentials(context.Background(), "admin", "pw-for-tests")
	if err != nil || !sess.IsAdmin() {
		t.Fatalf("login through container = %v, %v", sess, err)
	}
}

func TestNewContainer_MemoryBlogAndBadDriver(t *testing.T) {
	c, err := NewContainer(context.Background(), Config{
		DataDir:     t.TempDir(),
		TokenSecret: "0123456789abcdef0123456789abcdef",
		BlogDriver:  BlogDriverMemory,
	}, nil)
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := NewContainer(context.Background(), Config{DataDir: t.TempDir(), BlogDriver: "postgres"}, nil); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
