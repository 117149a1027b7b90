package cmd

import (
	"context"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func TestStoreAndGetAppContext(t *testing.T) {
	original := globalAppContext
	defer func() {
		globalAppContext = original
	}()

	cmd := &cobra.Command{Use: "root"}
	appCtx := &AppContext{Logger: zap.NewNop().Sugar(), DataDir: "/tmp/seca"}

	storeAppContext(cmd, appCtx)

	got := getAppContext(cmd)
	if got != appCtx {
		t.Fatalf("expected stored app context to be returned")
	}

	// commands that never ran PersistentPreRunE fall back to the global
	other := &cobra.Command{Use: "other"}
	if getAppContext(other) != appCtx {
		t.Fatalf("expected global app context fallback")
	}
}

func TestGetAppContextDefault(t *testing.T) {
	original := globalAppContext
	globalAppContext = nil
	defer func() {
		globalAppContext = original
	}()

	got := getAppContext(nil)
	if got == nil || got.Logger == nil {
		t.Fatal("expected a usable default app context")
	}
	if got.Config != cliConfig {
		t.Fatal("expected default app context to use cliConfig")
	}
}

func TestCommandContext(t *testing.T) {
	cmd := &cobra.Command{Use: "root"}
	if commandContext(cmd) == nil {
		t.Fatal("expected background context for a command without one")
	}

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	cmd.SetContext(ctx)
	if commandContext(cmd).Value(key{}) != "v" {
		t.Fatal("expected the command's own context")
	}
}

func TestContainerConfigMapsCLIConfig(t *testing.T) {
	cfg := newCLIConfig()
	cfg.Scan.Concurrency = 7
	cfg.Scan.TimeoutSecs = 3
	cfg.Scan.Offline = true
	cfg.Blog.Driver = "memory"
	cfg.Gate.MaxAttempts = 9

	appCtx := &AppContext{Logger: zap.NewNop().Sugar(), DataDir: t.TempDir(), Config: cfg}
	got := appCtx.containerConfig()

	if got.Scan.Runner.Concurrency != 7 || got.Scan.Runner.Timeout.Seconds() != 3 {
		t.Fatalf("unexpected runner config: %+v", got.Scan.Runner)
	}
	if !got.Offline || got.BlogDriver != "memory" || got.Gate.Policy.MaxAttempts != 9 {
		t.Fatalf("unexpected container config: %+v", got)
	}
	if got.Scan.OnComplete != nil {
		t.Fatal("expected no telemetry hook when telemetry is disabled")
	}

	cfg.Scan.TelemetryEnabled = true
	if appCtx.containerConfig().Scan.OnComplete == nil {
		t.Fatal("expected telemetry hook when telemetry is enabled")
	}
}
