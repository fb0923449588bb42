package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	embeddedconfig "github.com/sweetpotatoswee/aical/config"
	"github.com/sweetpotatoswee/aical/internal/config"
)

var (
	configOutputPath string
	configForce      bool
)

// configCmd represents the config parent command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Aical configuration",
	Long: `Manage Aical configuration files.

Use the subcommands to create or manage configuration files.`,
}

// configCreateCmd represents the config create subcommand
var configCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a default configuration file",
	Long: `Create a default configuration file at ~/.aicalrc.

This command writes the embedded default configuration to the specified
path. The file documents the backend URLs, web interface settings, and
logging options.

After creating the file, set the NLP and calendar backend URLs for your
environment.

Examples:
  aical config create                    # Create ~/.aicalrc
  aical config create --output /path/to  # Create /path/to/.aicalrc
  aical config create --force            # Overwrite existing file`,
	RunE: runConfigCreate,
}

// configShowCmd represents the config show subcommand
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the effective configuration as YAML.

The output reflects the loaded config file with defaults applied and
API keys resolved from the keychain or environment. Key values are
redacted.`,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCreateCmd)
	configCmd.AddCommand(configShowCmd)

	configCreateCmd.Flags().StringVarP(&configOutputPath, "output", "o", "",
		"Directory to write the config file (default: $HOME)")
	configCreateCmd.Flags().BoolVarP(&configForce, "force", "f", false,
		"Overwrite existing configuration file without prompting")
}

func runConfigCreate(cmd *cobra.Command, args []string) error {
	// Determine output directory
	outputDir := configOutputPath
	if outputDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		outputDir = homeDir
	}

	// Build the full path
	configPath := filepath.Join(outputDir, ".aicalrc")

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil && !configForce {
		fmt.Printf("⚠️  Configuration file already exists: %s\n", configPath)
		fmt.Println("Use --force to overwrite the existing file.")
		return nil
	}

	// Write the embedded default config
	if err := os.WriteFile(configPath, embeddedconfig.DefaultConfigYAML, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Printf("✅ Configuration file created: %s\n", configPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Set nlp.base_url and calendar.base_url for your backends")
	fmt.Println("  2. Store API keys with 'aical secret set nlp' and 'aical secret set calendar'")
	fmt.Println("  3. Run 'aical web' to start the web interface")

	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	// Loaded on demand: config subcommands skip the usual preload so that
	// `config create` works before any file exists.
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	loaded, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no configuration found at %s (run 'aical config create' first)", path)
		}
		return fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}
	resolveAPIKeys(loaded)

	shown := *loaded
	shown.NLP.APIKey = redactKey(shown.NLP.APIKey)
	shown.Calendar.APIKey = redactKey(shown.Calendar.APIKey)

	out, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	fmt.Printf("# %s\n%s", path, out)
	return nil
}

// redactKey hides a secret while showing whether one is set.
func redactKey(key string) string {
	if key == "" {
		return ""
	}
	return "<redacted>"
}
