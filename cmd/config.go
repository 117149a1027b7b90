package cmd

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/khanhnv2901/seca-suite/internal/infrastructure/auth"
	"github.com/khanhnv2901/seca-suite/internal/logging"
	"github.com/khanhnv2901/seca-suite/internal/shared/constants"
)

const (
	defaultScanConcurrency  = 4
	defaultBatchConcurrency = 4
	defaultDoHTimeout       = 5 * time.Second
	defaultBlogAuthor       = "Admin"
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Gate GateConfig
	Scan ScanRuntimeConfig
	Blog BlogConfig
	Log  logging.Config
}

// GateConfig holds the credential store and lockout policy.
type GateConfig struct {
	Users         []auth.UserConfig
	TokenSecret   string
	MaxAttempts   int
	LockoutWindow time.Duration
	SessionTTL    time.Duration
	AuthDelay     time.Duration
}

// ScanRuntimeConfig consolidates flag-driven settings for scan commands.
type ScanRuntimeConfig struct {
	Concurrency      int
	RateLimit        int
	TimeoutSecs      int
	BatchConcurrency int
	Delay            time.Duration
	DelaySet         bool
	IncludeNegative  bool
	Offline          bool
	DoHEndpoint      string
	DoHTimeout       time.Duration
	TelemetryEnabled bool
	ProgressEnabled  bool
	Format           string
}

// BlogConfig selects the post store.
type BlogConfig struct {
	Driver string
	Path   string
	Author string
}

type defaultOverrides struct {
	Concurrency      *int
	RateLimit        *int
	TimeoutSecs      *int
	Delay            *time.Duration
	TelemetryEnabled *bool
	ProgressEnabled  *bool
	Offline          *bool
	Format           string
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Gate: GateConfig{
			MaxAttempts:   constants.DefaultMaxLoginAttempts,
			LockoutWindow: constants.DefaultLockoutWindow,
			SessionTTL:    constants.DefaultSessionTTL,
		},
		Scan: ScanRuntimeConfig{
			Concurrency:      defaultScanConcurrency,
			BatchConcurrency: defaultBatchConcurrency,
			DoHEndpoint:      constants.DefaultDoHEndpoint,
			DoHTimeout:       defaultDoHTimeout,
			Format:           outputFormatTable,
		},
		Blog: BlogConfig{
			Driver: "sqlite",
			Author: defaultBlogAuthor,
		},
		Log: logging.DefaultConfig(),
	}
}

// registerConfigDefaults mirrors newCLIConfig into viper so keys read back
// their defaults when the config file omits them.
func registerConfigDefaults(v *viper.Viper) {
	def := newCLIConfig()
	v.SetDefault("gate.max_attempts", def.Gate.MaxAttempts)
	v.SetDefault("gate.lockout_window", def.Gate.LockoutWindow)
	v.SetDefault("gate.session_ttl", def.Gate.SessionTTL)
	v.SetDefault("gate.auth_delay", def.Gate.AuthDelay)
	v.SetDefault("scan.concurrency", def.Scan.Concurrency)
	v.SetDefault("scan.batch_concurrency", def.Scan.BatchConcurrency)
	v.SetDefault("scan.rate_limit", def.Scan.RateLimit)
	v.SetDefault("scan.timeout_secs", def.Scan.TimeoutSecs)
	v.SetDefault("scan.offline", def.Scan.Offline)
	v.SetDefault("scan.doh_endpoint", def.Scan.DoHEndpoint)
	v.SetDefault("scan.doh_timeout", def.Scan.DoHTimeout)
	v.SetDefault("scan.telemetry", def.Scan.TelemetryEnabled)
	v.SetDefault("blog.driver", def.Blog.Driver)
	v.SetDefault("blog.author", def.Blog.Author)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.max_size_mb", def.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", def.Log.MaxBackups)
	v.SetDefault("log.max_age_days", def.Log.MaxAgeDays)
}

// loadCLIConfig reads the non-flag settings from viper.
func loadCLIConfig(v *viper.Viper) (*CLIConfig, error) {
	cfg := newCLIConfig()

	if err := v.UnmarshalKey("gate.users", &cfg.Gate.Users); err != nil {
		return nil, err
	}
	cfg.Gate.TokenSecret = v.GetString("gate.token_secret")
	cfg.Gate.MaxAttempts = v.GetInt("gate.max_attempts")
	cfg.Gate.LockoutWindow = v.GetDuration("gate.lockout_window")
	cfg.Gate.SessionTTL = v.GetDuration("gate.session_ttl")
	cfg.Gate.AuthDelay = v.GetDuration("gate.auth_delay")

	cfg.Scan.Concurrency = v.GetInt("scan.concurrency")
	cfg.Scan.BatchConcurrency = v.GetInt("scan.batch_concurrency")
	cfg.Scan.RateLimit = v.GetInt("scan.rate_limit")
	cfg.Scan.TimeoutSecs = v.GetInt("scan.timeout_secs")
	cfg.Scan.Offline = v.GetBool("scan.offline")
	cfg.Scan.DoHEndpoint = v.GetString("scan.doh_endpoint")
	cfg.Scan.DoHTimeout = v.GetDuration("scan.doh_timeout")
	cfg.Scan.TelemetryEnabled = v.GetBool("scan.telemetry")

	cfg.Blog.Driver = v.GetString("blog.driver")
	cfg.Blog.Path = v.GetString("blog.path")
	cfg.Blog.Author = v.GetString("blog.author")

	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.File = v.GetString("log.file")
	cfg.Log.MaxSizeMB = v.GetInt("log.max_size_mb")
	cfg.Log.MaxBackups = v.GetInt("log.max_backups")
	cfg.Log.MaxAgeDays = v.GetInt("log.max_age_days")
	cfg.Log.Compress = v.GetBool("log.compress")

	return cfg, nil
}

func loadDefaultOverrides(v *viper.Viper) defaultOverrides {
	overrides := defaultOverrides{}

	if v.IsSet("defaults.concurrency") {
		val := v.GetInt("defaults.concurrency")
		overrides.Concurrency = &val
	}

	if v.IsSet("defaults.rate_limit") {
		val := v.GetInt("defaults.rate_limit")
		overrides.RateLimit = &val
	}

	if v.IsSet("defaults.timeout_secs") {
		val := v.GetInt("defaults.timeout_secs")
		overrides.TimeoutSecs = &val
	}

	if v.IsSet("defaults.delay") {
		val := v.GetDuration("defaults.delay")
		overrides.Delay = &val
	}

	if v.IsSet("defaults.telemetry") {
		val := v.GetBool("defaults.telemetry")
		overrides.TelemetryEnabled = &val
	}

	if v.IsSet("defaults.progress") {
		val := v.GetBool("defaults.progress")
		overrides.ProgressEnabled = &val
	}

	if v.IsSet("defaults.offline") {
		val := v.GetBool("defaults.offline")
		overrides.Offline = &val
	}

	if v.IsSet("defaults.format") {
		overrides.Format = v.GetString("defaults.format")
	}

	return overrides
}

// applyConfigDefaults merges config file defaults into the runtime config when the user
// did not explicitly override the corresponding flag.
func applyConfigDefaults(v *viper.Viper) {
	overrides := loadDefaultOverrides(v)
	flags := scanCmd.PersistentFlags()

	if overrides.Concurrency != nil {
		applyIntDefault(flags, "concurrency", *overrides.Concurrency, func(val int) {
			cliConfig.Scan.Concurrency = val
		})
	}

	if overrides.RateLimit != nil {
		applyIntDefault(flags, "rate-limit", *overrides.RateLimit, func(val int) {
			cliConfig.Scan.RateLimit = val
		})
	}

	if overrides.TimeoutSecs != nil {
		applyIntDefault(flags, "timeout", *overrides.TimeoutSecs, func(val int) {
			cliConfig.Scan.TimeoutSecs = val
		})
	}

	if overrides.Delay != nil {
		applyDurationDefault(flags, "delay", *overrides.Delay, func(val time.Duration) {
			cliConfig.Scan.Delay = val
			cliConfig.Scan.DelaySet = true
		})
	}

	if overrides.TelemetryEnabled != nil {
		applyBoolDefault(flags, "telemetry", *overrides.TelemetryEnabled, func(val bool) {
			cliConfig.Scan.TelemetryEnabled = val
		})
	}

	if overrides.ProgressEnabled != nil {
		applyBoolDefault(flags, "progress", *overrides.ProgressEnabled, func(val bool) {
			cliConfig.Scan.ProgressEnabled = val
		})
	}

	if overrides.Offline != nil {
		applyBoolDefault(flags, "offline", *overrides.Offline, func(val bool) {
			cliConfig.Scan.Offline = val
		})
	}

	if overrides.Format != "" {
		setStringFlagIfUnset(flags, "format", overrides.Format)
	}
}

// mergeScanConfig copies file-level scan settings into cliConfig unless a flag was given.
func mergeScanConfig(loaded ScanRuntimeConfig) {
	flags := scanCmd.PersistentFlags()
	applyIntDefault(flags, "concurrency", loaded.Concurrency, func(val int) { cliConfig.Scan.Concurrency = val })
	applyIntDefault(flags, "rate-limit", loaded.RateLimit, func(val int) { cliConfig.Scan.RateLimit = val })
	applyIntDefault(flags, "timeout", loaded.TimeoutSecs, func(val int) { cliConfig.Scan.TimeoutSecs = val })
	applyBoolDefault(flags, "telemetry", loaded.TelemetryEnabled, func(val bool) { cliConfig.Scan.TelemetryEnabled = val })
	applyBoolDefault(flags, "offline", loaded.Offline, func(val bool) { cliConfig.Scan.Offline = val })

	cliConfig.Scan.BatchConcurrency = loaded.BatchConcurrency
	cliConfig.Scan.DoHEndpoint = loaded.DoHEndpoint
	cliConfig.Scan.DoHTimeout = loaded.DoHTimeout

	if f := flags.Lookup("delay"); f != nil && f.Changed {
		cliConfig.Scan.DelaySet = true
	}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyDurationDefault(flags *pflag.FlagSet, name string, value time.Duration, setter func(time.Duration)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func setStringFlagIfUnset(flags *pflag.FlagSet, name, value string) {
	if flags == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag == nil || flag.Changed {
		return
	}
	_ = flag.Value.Set(value)
}
