// Package cmd provides the CLI commands for Aical.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweetpotatoswee/aical/internal/appdir"
	"github.com/sweetpotatoswee/aical/internal/config"
	"github.com/sweetpotatoswee/aical/internal/logging"
	"github.com/sweetpotatoswee/aical/internal/secrets"
)

var (
	// Global flags
	configPath    string
	debug         bool
	logLevel      string // --log-level flag (debug, info, warn, error)
	logFile       string
	logComponents string

	// Loaded configuration
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "aical",
	Short: "Aical - A natural-language calendar assistant",
	Long: `Aical turns plain-language requests like "lunch with Sam next
Tuesday at noon" or "remove all my standups in March" into reviewed
calendar changes.

Nothing touches the calendar without an explicit preview-and-apply
step: the assistant drafts the change, you review and adjust it, then
apply it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		// Priority: --log-level flag > --debug flag > config > default (info)
		effectiveLogLevel := ""
		if logLevel != "" {
			effectiveLogLevel = logLevel
		} else if debug {
			effectiveLogLevel = "debug"
		}
		var components []string
		if logComponents != "" {
			for _, c := range strings.Split(logComponents, ",") {
				c = strings.TrimSpace(c)
				if c != "" {
					components = append(components, c)
				}
			}
		}

		// Commands that manage configuration itself run without a loaded
		// config so that a missing or broken file can still be repaired.
		if !commandNeedsConfig(cmd) {
			return initLogging(effectiveLogLevel, components, nil)
		}

		// Ensure the Aical directory exists
		if err := appdir.EnsureDir(); err != nil {
			return fmt.Errorf("failed to create Aical directory: %w", err)
		}

		path := configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			if os.IsNotExist(err) || errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("no configuration found at %s (run 'aical config create' first)", path)
			}
			return fmt.Errorf("failed to load configuration from %s: %w", path, err)
		}
		resolveAPIKeys(cfg)

		return initLogging(effectiveLogLevel, components, cfg)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		// Clean up logging resources
		return logging.Close()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file path (default: ~/.aicalrc)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging (shorthand for --log-level=debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: info)")
	rootCmd.PersistentFlags().StringVarP(&logFile, "logfile", "l", "", "Log file path (logs are also written to console)")
	rootCmd.PersistentFlags().StringVar(&logComponents, "log-components", "", "Comma-separated list of components to log (e.g., 'web,nlp'). Empty means all components.")
}

// commandNeedsConfig reports whether the command requires a loaded
// configuration file. Help, completion, and the config/secret management
// commands all run without one.
func commandNeedsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", "version", "config", "secret", "prompts", "transcripts":
			return false
		}
	}
	return true
}

func initLogging(flagLevel string, components []string, cfg *config.Config) error {
	logCfg := logging.Config{
		Level:      "info",
		Components: components,
	}
	if cfg != nil {
		if cfg.Logging.Level != "" {
			logCfg.Level = cfg.Logging.Level
		}
		logCfg.FileLevel = cfg.Logging.FileLevel
		logCfg.JSON = cfg.Logging.JSON
		if len(components) == 0 {
			logCfg.Components = cfg.Logging.Components
		}
		if cfg.Logging.File != "" {
			fl := logging.DefaultFileLogConfig()
			fl.Path = cfg.Logging.File
			logCfg.FileLog = &fl
		}
	}
	if flagLevel != "" {
		logCfg.Level = flagLevel
	}
	if logFile != "" {
		fl := logging.DefaultFileLogConfig()
		fl.Path = logFile
		logCfg.FileLog = &fl
	}
	if err := logging.Initialize(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}

// resolveAPIKeys fills in empty API keys from the system keychain, then
// from the environment. Keys set in the config file win.
func resolveAPIKeys(cfg *config.Config) {
	if cfg.NLP.APIKey == "" {
		if key, err := secrets.GetNLPAPIKey(); err == nil {
			cfg.NLP.APIKey = key
		}
	}
	if cfg.NLP.APIKey == "" {
		cfg.NLP.APIKey = os.Getenv("AICAL_NLP_API_KEY")
	}
	if cfg.Calendar.APIKey == "" {
		if key, err := secrets.GetCalendarAPIKey(); err == nil {
			cfg.Calendar.APIKey = key
		}
	}
	if cfg.Calendar.APIKey == "" {
		cfg.Calendar.APIKey = os.Getenv("AICAL_CALENDAR_API_KEY")
	}
}
