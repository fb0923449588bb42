package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	embeddedconfig "github.com/sweetpotatoswee/aical/config"
	"github.com/sweetpotatoswee/aical/internal/appdir"
	"github.com/sweetpotatoswee/aical/internal/config"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Manage instruction overrides",
	Long: `Manage instruction overrides stored in AICAL_DIR/prompts/.

Each override is a markdown file with optional YAML front-matter that
replaces one of the built-in instruction templates. Three roles exist:

  classify.md  - how requests are routed to add or delete
  add.md       - how new events are drafted
  delete.md    - how deletion candidates are found

Overrides take effect immediately; the web interface reloads them when
the files change.`,
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the active instruction templates",
	Long: `Show which instruction templates are active and where they come
from (built-in default or override file).`,
	RunE: runPromptsList,
}

var promptsInitForce bool

var promptsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write sample override files",
	Long: `Write the embedded sample override files to AICAL_DIR/prompts/.

The samples ship disabled (enabled: false in the front-matter) and
document the built-in instructions; flip the flag and edit the body to
customize a role. Existing files are not overwritten unless --force is
given.`,
	RunE: runPromptsInit,
}

func init() {
	rootCmd.AddCommand(promptsCmd)
	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsInitCmd)

	promptsInitCmd.Flags().BoolVarP(&promptsInitForce, "force", "f", false,
		"Overwrite existing override files")
}

func runPromptsList(cmd *cobra.Command, args []string) error {
	promptsDir, err := appdir.PromptsDir()
	if err != nil {
		return fmt.Errorf("failed to get prompts directory: %w", err)
	}

	prompts, err := config.LoadPrompts(promptsDir)
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	overridden := make(map[string]bool, len(prompts.Overridden))
	for _, role := range prompts.Overridden {
		overridden[role] = true
	}

	fmt.Printf("Prompts directory: %s\n\n", promptsDir)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROLE\tSOURCE\tINSTRUCTIONS")
	fmt.Fprintln(w, "----\t------\t------------")
	for _, entry := range []struct {
		role string
		text string
	}{
		{config.PromptClassify, prompts.Classify},
		{config.PromptAdd, prompts.Add},
		{config.PromptDelete, prompts.Delete},
	} {
		source := "built-in"
		if overridden[entry.role] {
			source = entry.role + ".md"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", entry.role, source, truncate(entry.text, 60))
	}
	w.Flush()

	return nil
}

func runPromptsInit(cmd *cobra.Command, args []string) error {
	promptsDir, err := appdir.PromptsDir()
	if err != nil {
		return fmt.Errorf("failed to get prompts directory: %w", err)
	}

	result, err := embeddedconfig.DeploySamplePrompts(promptsDir, promptsInitForce)
	if err != nil {
		return fmt.Errorf("failed to deploy sample prompts: %w", err)
	}

	for _, name := range result.Deployed {
		fmt.Printf("✅ Wrote %s\n", name)
	}
	for _, name := range result.Skipped {
		fmt.Printf("⏭  Skipped %s (already exists)\n", name)
	}
	fmt.Printf("\nPrompts directory: %s\n", promptsDir)
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
