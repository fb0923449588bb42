package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweetpotatoswee/aical/internal/secrets"
)

// secretCmd represents the secret parent command
var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage backend API keys in the system keychain",
	Long: `Manage backend API keys in the system keychain.

Keys stored here are picked up automatically and keep credentials out
of the configuration file. Two backends are supported: "nlp" and
"calendar".

On platforms without a supported keychain, use the AICAL_NLP_API_KEY
and AICAL_CALENDAR_API_KEY environment variables instead.`,
}

var secretSetCmd = &cobra.Command{
	Use:   "set <nlp|calendar>",
	Short: "Store an API key",
	Long: `Store an API key for the named backend in the system keychain.

The key is read from stdin so it never appears in shell history:

  aical secret set nlp < key.txt
  echo -n "$KEY" | aical secret set calendar`,
	Args: cobra.ExactArgs(1),
	RunE: runSecretSet,
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete <nlp|calendar>",
	Short: "Remove a stored API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretDelete,
}

var secretStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which API keys are stored",
	RunE:  runSecretStatus,
}

func init() {
	rootCmd.AddCommand(secretCmd)
	secretCmd.AddCommand(secretSetCmd)
	secretCmd.AddCommand(secretDeleteCmd)
	secretCmd.AddCommand(secretStatusCmd)
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	if !secrets.IsSupported() {
		return fmt.Errorf("no supported keychain on this platform (use environment variables instead)")
	}

	reader := bufio.NewReader(os.Stdin)
	key, err := reader.ReadString('\n')
	if err != nil && key == "" {
		return fmt.Errorf("failed to read key from stdin: %w", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("empty key")
	}

	switch args[0] {
	case "nlp":
		err = secrets.SetNLPAPIKey(key)
	case "calendar":
		err = secrets.SetCalendarAPIKey(key)
	default:
		return fmt.Errorf("unknown backend %q (expected nlp or calendar)", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to store key: %w", err)
	}

	fmt.Printf("✅ Stored %s API key\n", args[0])
	return nil
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	var err error
	switch args[0] {
	case "nlp":
		err = secrets.DeleteNLPAPIKey()
	case "calendar":
		err = secrets.DeleteCalendarAPIKey()
	default:
		return fmt.Errorf("unknown backend %q (expected nlp or calendar)", args[0])
	}
	if err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			fmt.Printf("No %s API key stored\n", args[0])
			return nil
		}
		return fmt.Errorf("failed to delete key: %w", err)
	}

	fmt.Printf("✅ Deleted %s API key\n", args[0])
	return nil
}

func runSecretStatus(cmd *cobra.Command, args []string) error {
	if !secrets.IsSupported() {
		fmt.Println("Keychain: not supported on this platform")
		fmt.Println("Use AICAL_NLP_API_KEY and AICAL_CALENDAR_API_KEY instead.")
		return nil
	}

	fmt.Println("Keychain: supported")
	for _, backend := range []struct {
		name string
		get  func() (string, error)
	}{
		{"nlp", secrets.GetNLPAPIKey},
		{"calendar", secrets.GetCalendarAPIKey},
	} {
		if _, err := backend.get(); err == nil {
			fmt.Printf("  %-8s stored\n", backend.name)
		} else {
			fmt.Printf("  %-8s not stored\n", backend.name)
		}
	}
	return nil
}
