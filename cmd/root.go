package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/khanhnv2901/seca-suite/internal/logging"
	consts "github.com/khanhnv2901/seca-suite/internal/shared/constants"
)

var cfgFile string
var dataDirFlag string
var logLevelFlag string
var logFileFlag string

var rootCmd = &cobra.Command{
	Use:   "seca-suite",
	Short: "Security tool panels, session gate and blog store (mock findings for training only)",
	Long: `SECA-Suite bundles ten simulated security tools behind a login gate.

Findings are generated from seeded catalogs and never probe real systems,
except the subdomain tool which resolves names over DNS-over-HTTPS.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		if err := initConfig(v); err != nil {
			return err
		}

		loaded, err := loadCLIConfig(v)
		if err != nil {
			return fmt.Errorf("failed to parse configuration: %w", err)
		}
		cliConfig.Gate = loaded.Gate
		cliConfig.Blog = loaded.Blog
		cliConfig.Log = loaded.Log
		if logLevelFlag != "" {
			cliConfig.Log.Level = logLevelFlag
		}
		if logFileFlag != "" {
			cliConfig.Log.File = logFileFlag
		}
		mergeScanConfig(loaded.Scan)
		applyConfigDefaults(v)

		dataDir := dataDirFlag
		if dataDir == "" {
			dataDir = v.GetString("data_dir")
		}
		if dataDir == "" {
			if dataDir, err = getDataDir(); err != nil {
				return err
			}
		}
		if abs, err := filepath.Abs(dataDir); err == nil {
			dataDir = abs
		}

		resultsDir := v.GetString("results_dir")
		if resultsDir == "" {
			resultsDir = filepath.Join(dataDir, "results")
		}
		if err := os.MkdirAll(resultsDir, consts.DefaultDirPerm); err != nil {
			return fmt.Errorf("failed to create results directory: %w", err)
		}

		zl, err := logging.New(cliConfig.Log)
		if err != nil {
			return err
		}
		logger := zl.Sugar()
		logger.Debugw("configuration loaded", "data_dir", dataDir, "results_dir", resultsDir, "config", v.ConfigFileUsed())

		storeAppContext(cmd, &AppContext{
			Logger:     logger,
			DataDir:    dataDir,
			ResultsDir: resultsDir,
			Config:     cliConfig,
		})
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return getAppContext(cmd).Close()
	},
}

// initConfig wires the config file and SECA_* environment variables into v.
func initConfig(v *viper.Viper) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath("$HOME")
		v.SetConfigName(".seca-suite")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SECA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	registerConfigDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorError("Error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.seca-suite.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "data directory (or set SECA_DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "also write logs to this rotating file")

	// add subcommands
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(cveCmd)
	rootCmd.AddCommand(blogCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(versionCmd)
}
