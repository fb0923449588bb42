package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sweetpotatoswee/aical/internal/appdir"
	"github.com/sweetpotatoswee/aical/internal/transcript"
)

var transcriptsCmd = &cobra.Command{
	Use:   "transcripts",
	Short: "Inspect recorded assistant sessions",
	Long: `Inspect the conversation transcripts recorded by the chat and web
interfaces.

Transcripts live under AICAL_DIR/transcripts/, one directory per
session, holding an append-only event log plus metadata.`,
}

var transcriptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded transcripts",
	RunE:  runTranscriptsList,
}

var transcriptsShowCmd = &cobra.Command{
	Use:   "show <transcript-id>",
	Short: "Print a transcript's event log as JSON lines",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscriptsShow,
}

var transcriptsDeleteCmd = &cobra.Command{
	Use:   "delete <transcript-id>",
	Short: "Delete a recorded transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscriptsDelete,
}

func init() {
	rootCmd.AddCommand(transcriptsCmd)
	transcriptsCmd.AddCommand(transcriptsListCmd)
	transcriptsCmd.AddCommand(transcriptsShowCmd)
	transcriptsCmd.AddCommand(transcriptsDeleteCmd)
}

func openTranscriptStore() (*transcript.Store, error) {
	dir, err := appdir.TranscriptsDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get transcripts directory: %w", err)
	}
	store, err := transcript.NewStore(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript store: %w", err)
	}
	return store, nil
}

func runTranscriptsList(cmd *cobra.Command, args []string) error {
	store, err := openTranscriptStore()
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list transcripts: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("No transcripts recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUPDATED\tEVENTS\tAPPLIES")
	for _, meta := range list {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n",
			meta.TranscriptID,
			meta.UpdatedAt.Format("2006-01-02 15:04"),
			meta.EventCount,
			meta.Applies)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d transcript(s)\n", len(list))
	return nil
}

func runTranscriptsShow(cmd *cobra.Command, args []string) error {
	store, err := openTranscriptStore()
	if err != nil {
		return err
	}
	defer store.Close()

	events, err := store.ReadEvents(args[0])
	if err != nil {
		return fmt.Errorf("failed to read transcript %s: %w", args[0], err)
	}

	enc := json.NewEncoder(os.Stdout)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}

func runTranscriptsDelete(cmd *cobra.Command, args []string) error {
	store, err := openTranscriptStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(args[0]); err != nil {
		return fmt.Errorf("failed to delete transcript %s: %w", args[0], err)
	}

	fmt.Printf("✅ Deleted transcript %s\n", args[0])
	return nil
}
