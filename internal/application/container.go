package application

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	blogapp "github.com/khanhnv2901/seca-suite/internal/application/blog"
	gateapp "github.com/khanhnv2901/seca-suite/internal/application/gate"
	scanapp "github.com/khanhnv2901/seca-suite/internal/application/scan"
	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
	"github.com/khanhnv2901/seca-suite/internal/domain/post"
	"github.com/khanhnv2901/seca-suite/internal/domain/session"
	"github.com/khanhnv2901/seca-suite/internal/infrastructure/auth"
	"github.com/khanhnv2901/seca-suite/internal/infrastructure/dns"
	"github.com/khanhnv2901/seca-suite/internal/infrastructure/persistence/json"
	"github.com/khanhnv2901/seca-suite/internal/infrastructure/persistence/memory"
	"github.com/khanhnv2901/seca-suite/internal/infrastructure/persistence/sqlite"
	"github.com/khanhnv2901/seca-suite/internal/scanner"
)

// Blog storage drivers
const (
	BlogDriverSQLite = "sqlite"
	BlogDriverMemory = "memory"
)

// Config is everything the container needs to build its services
type Config struct {
	DataDir    string
	ResultsDir string

	Users       []auth.UserConfig
	TokenSecret string
	Gate        gateapp.Config

	Scan        scanapp.Config
	DoHEndpoint string
	DoHTimeout  time.Duration
	// Offline disables the DoH resolver; subdomain scans use demo data
	Offline bool

	BlogDriver string
	BlogPath   string
	BlogAuthor string
}

// Container holds all application services and repositories
// This is a simple dependency injection container
type Container struct {
	// Repositories
	GateStateRepo session.StateRepository
	ReportRepo    finding.Repository
	PostRepo      post.Repository

	// Infrastructure
	Credentials *auth.CredentialStore
	Tokens      *auth.TokenManager
	Resolver    *dns.DoHClient
	Registry    *scanner.Registry

	// Services
	GateService *gateapp.Service
	ScanService *scanapp.Service
	BlogService *blogapp.Service

	closers []func() error
}

// NewContainer creates a new application service container
func NewContainer(ctx context.Context, cfg Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = filepath.Join(cfg.DataDir, "results")
	}

	c := &Container{}

	// Initialize repositories
	gateRepo, err := json.NewGateStateRepository(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create gate state repository: %w", err)
	}
	c.GateStateRepo = gateRepo

	reportRepo, err := json.NewReportRepository(cfg.ResultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create report repository: %w", err)
	}
	c.ReportRepo = reportRepo

	postRepo, err := c.openPostRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.PostRepo = postRepo

	// Initialize auth
	c.Credentials, err = auth.NewCredentialStore(cfg.Users)
	if err != nil {
		return nil, fmt.Errorf("failed to load gate users: %w", err)
	}

	secret := []byte(cfg.TokenSecret)
	if cfg.TokenSecret == "" {
		secret, err = auth.LoadOrCreateSecret(filepath.Join(cfg.DataDir, "gate.key"))
		if err != nil {
			return nil, fmt.Errorf("failed to load token secret: %w", err)
		}
	}
	c.Tokens, err = auth.NewTokenManager(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create token manager: %w", err)
	}
	if err := c.Tokens.UseRevocationFile(filepath.Join(cfg.DataDir, "revoked_tokens.json")); err != nil {
		return nil, fmt.Errorf("failed to load token revocations: %w", err)
	}

	// Initialize scanning
	c.Registry = scanner.DefaultRegistry()
	scanCfg := cfg.Scan
	if !cfg.Offline {
		c.Resolver = dns.NewDoHClient(cfg.DoHEndpoint, cfg.DoHTimeout, logger.Named("doh"))
		scanCfg.Lookup = c.Resolver
	}

	// Initialize services
	c.GateService = gateapp.NewService(gateRepo, c.Credentials, c.Tokens, cfg.Gate, gateapp.WithLogger(logger.Named("gate")))
	c.ScanService = scanapp.NewService(c.Registry, reportRepo, scanCfg, logger.Named("scan"))
	c.BlogService = blogapp.NewService(postRepo, cfg.BlogAuthor, logger.Named("blog"))

	return c, nil
}

// Close releases held resources
func (c *Container) Close() error {
	var firstErr error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}

func (c *Container) openPostRepository(ctx context.Context, cfg Config) (post.Repository, error) {
	switch strings.ToLower(cfg.BlogDriver) {
	case BlogDriverMemory:
		return memory.NewPostRepository(), nil
	case "", BlogDriverSQLite:
		path := cfg.BlogPath
		if path == "" {
			path = filepath.Join(cfg.DataDir, "blog.db")
		}
		repo, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create post repository: %w", err)
		}
		c.closers = append(c.closers, repo.Close)
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported blog driver %q (use sqlite or memory)", cfg.BlogDriver)
	}
}
