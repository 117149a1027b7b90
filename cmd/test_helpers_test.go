package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/khanhnv2901/seca-suite/internal/infrastructure/auth"
)

const (
	testAdminUser     = "admin"
	testAdminPassword = "test-password"
	testViewerUser    = "viewer"
	testViewerPass    = "viewer-password"
)

// setupTestAppContext installs an AppContext backed by a temp data dir, an
// in-memory blog store and an offline resolver.
func setupTestAppContext(t *testing.T) *AppContext {
	t.Helper()

	disableColor(t)
	original := globalAppContext
	dataDir := t.TempDir()
	t.Setenv(dataDirEnvVar, dataDir)

	adminHash, err := auth.HashPassword(testAdminPassword, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	viewerHash, err := auth.HashPassword(testViewerPass, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	*cliConfig = *newCLIConfig()
	cliConfig.Gate.Users = []auth.UserConfig{
		{Username: testAdminUser, PasswordHash: adminHash, Role: "admin"},
		{Username: testViewerUser, PasswordHash: viewerHash, Role: "user"},
	}
	cliConfig.Gate.TokenSecret = "0123456789abcdef0123456789abcdef"
	cliConfig.Blog.Driver = "memory"
	cliConfig.Scan.Offline = true

	appCtx := &AppContext{
		Logger:     zaptest.NewLogger(t).Sugar(),
		DataDir:    dataDir,
		ResultsDir: filepath.Join(dataDir, "results"),
		Config:     cliConfig,
	}
	globalAppContext = appCtx

	t.Cleanup(func() {
		_ = appCtx.Close()
		globalAppContext = original
		*cliConfig = *newCLIConfig()
	})
	return appCtx
}

// runCmd executes c.RunE with flags applied and returns captured output.
// Flags are reset afterwards because commands are package globals.
func runCmd(t *testing.T, c *cobra.Command, args []string, flags map[string]string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	c.SetOut(&buf)
	c.SetErr(&buf)

	touched := make([]*pflag.Flag, 0, len(flags))
	for name, value := range flags {
		f := lookupFlag(c, name)
		if f == nil {
			t.Fatalf("unknown flag --%s on %s", name, c.Name())
		}
		if err := f.Value.Set(value); err != nil {
			t.Fatalf("failed to set --%s=%s: %v", name, value, err)
		}
		f.Changed = true
		touched = append(touched, f)
	}
	defer func() {
		c.SetOut(nil)
		c.SetErr(nil)
		for _, f := range touched {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		}
	}()

	err := c.RunE(c, args)
	return buf.String(), err
}

func lookupFlag(c *cobra.Command, name string) *pflag.Flag {
	if f := c.Flags().Lookup(name); f != nil {
		return f
	}
	return c.InheritedFlags().Lookup(name)
}

// loginForTest opens an admin session through the gate
func loginForTest(t *testing.T, username, password string) {
	t.Helper()
	if _, err := runCmd(t, authLoginCmd, nil, map[string]string{"username": username, "password": password}); err != nil {
		t.Fatalf("login as %s failed: %v", username, err)
	}
}
