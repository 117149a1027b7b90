package cmd

import (
	"context"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-suite/internal/application"
	gateapp "github.com/khanhnv2901/seca-suite/internal/application/gate"
	scanapp "github.com/khanhnv2901/seca-suite/internal/application/scan"
	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
	"github.com/khanhnv2901/seca-suite/internal/domain/session"
	"github.com/khanhnv2901/seca-suite/internal/scanner"
)

// AppContext carries per-invocation state from the root command to its
// subcommands.
type AppContext struct {
	Logger     *zap.SugaredLogger
	DataDir    string
	ResultsDir string
	Config     *CLIConfig

	// Services is built on first use so commands like version never open
	// the stores.
	Services *application.Container

	once    sync.Once
	initErr error
}

type appContextKey struct{}

var globalAppContext *AppContext

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	globalAppContext = appCtx
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appContextKey{}, appCtx))
}

func getAppContext(cmd *cobra.Command) *AppContext {
	if cmd != nil && cmd.Context() != nil {
		if appCtx, ok := cmd.Context().Value(appContextKey{}).(*AppContext); ok {
			return appCtx
		}
	}
	if globalAppContext != nil {
		return globalAppContext
	}
	return &AppContext{Logger: zap.NewNop().Sugar(), Config: cliConfig}
}

// Container returns the service container, creating it on first call.
func (a *AppContext) Container(ctx context.Context) (*application.Container, error) {
	a.once.Do(func() {
		if a.Services != nil {
			return
		}
		a.Services, a.initErr = application.NewContainer(ctx, a.containerConfig(), a.zapLogger())
	})
	return a.Services, a.initErr
}

// Close releases the container and flushes the logger
func (a *AppContext) Close() error {
	var err error
	if a.Services != nil {
		err = a.Services.Close()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return err
}

func (a *AppContext) zapLogger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger.Desugar()
}

func (a *AppContext) containerConfig() application.Config {
	cfg := a.Config
	if cfg == nil {
		cfg = newCLIConfig()
	}

	scanCfg := scanapp.Config{
		Runner: scanner.Runner{
			Concurrency: cfg.Scan.Concurrency,
			RateLimit:   cfg.Scan.RateLimit,
			Timeout:     time.Duration(cfg.Scan.TimeoutSecs) * time.Second,
		},
		BatchConcurrency: cfg.Scan.BatchConcurrency,
	}
	if cfg.Scan.TelemetryEnabled {
		dataDir := a.DataDir
		logger := a.Logger
		scanCfg.OnComplete = func(report *finding.Report) {
			if err := recordTelemetry(dataDir, report); err != nil && logger != nil {
				logger.Warnw("failed to record telemetry", "report_id", report.ID(), "error", err)
			}
		}
	}

	return application.Config{
		DataDir:     a.DataDir,
		ResultsDir:  a.ResultsDir,
		Users:       cfg.Gate.Users,
		TokenSecret: cfg.Gate.TokenSecret,
		Gate: gateapp.Config{
			Policy: session.LockoutPolicy{
				MaxAttempts: cfg.Gate.MaxAttempts,
				Window:      cfg.Gate.LockoutWindow,
			},
			SessionTTL: cfg.Gate.SessionTTL,
			AuthDelay:  cfg.Gate.AuthDelay,
		},
		Scan:        scanCfg,
		DoHEndpoint: cfg.Scan.DoHEndpoint,
		DoHTimeout:  cfg.Scan.DoHTimeout,
		Offline:     cfg.Scan.Offline,
		BlogDriver:  cfg.Blog.Driver,
		BlogPath:    cfg.Blog.Path,
		BlogAuthor:  cfg.Blog.Author,
	}
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
