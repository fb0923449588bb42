package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/reeflective/readline"
	"github.com/spf13/cobra"

	"github.com/sweetpotatoswee/aical/internal/appdir"
	"github.com/sweetpotatoswee/aical/internal/assistant"
	"github.com/sweetpotatoswee/aical/internal/transcript"
)

var (
	// Chat-specific flags
	oncePrompt string
	chatMode   string
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive terminal interface for the assistant",
	Long: `Start an interactive assistant session in the terminal.

Type a request to get a preview of the calendar changes it implies,
then apply or discard it. Nothing touches the calendar until /apply.

Use --once to preview a single request and exit:
  aical chat --once "lunch with Sam next Tuesday at noon"

Commands (interactive mode only):
  /mode add|delete  - Switch editing mode
  /toggle N|KEY     - Toggle a preview item or deletion group
  /apply            - Apply the selected changes
  /range FROM TO    - Set the visible date range (delete mode)
  /reset            - Discard the conversation and start over
  /quit, /exit      - Exit
  /help             - Show available commands`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	// Chat-specific flags
	chatCmd.Flags().StringVar(&oncePrompt, "once", "", "Preview a single request and exit (non-interactive mode)")
	chatCmd.Flags().StringVar(&chatMode, "mode", "add", "Initial editing mode: add or delete")
}

// slashCommand describes one interactive command for help and completion.
type slashCommand struct {
	name        string
	description string
}

var slashCommands = []slashCommand{
	{"/mode", "Switch editing mode (add or delete)"},
	{"/toggle", "Toggle a preview item or deletion group"},
	{"/apply", "Apply the selected changes"},
	{"/range", "Set the visible date range (delete mode)"},
	{"/reset", "Discard the conversation and start over"},
	{"/quit", "Exit the chat"},
	{"/exit", "Exit the chat"},
	{"/help", "Show available commands"},
}

func runChat(cmd *cobra.Command, args []string) error {
	nlpClient, calClient, err := newServices()
	if err != nil {
		return err
	}

	isOnceMode := oncePrompt != ""

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	recorder := startChatRecorder()
	printer := &chatPrinter{out: os.Stdout, quiet: isOnceMode && !debug}

	controller := assistant.NewController(assistant.Options{
		NLP:         nlpClient,
		Calendar:    calClient,
		Model:       cfg.NLP.Model,
		Effort:      cfg.NLP.Effort,
		MaxMessages: cfg.Conversation.MaxMessages,
		CharBudget:  cfg.Conversation.CharBudget,
		Recorder:    recorder,
		OnUpdate:    printer.onUpdate,
	})

	if chatMode != "" {
		if err := controller.SetMode(assistant.Mode(chatMode)); err != nil {
			return fmt.Errorf("invalid --mode: %w", err)
		}
	}

	if isOnceMode {
		return runOnceMode(ctx, controller, printer, oncePrompt)
	}
	return runInteractiveLoop(ctx, controller, printer)
}

// startChatRecorder starts a transcript for the session. Recording is
// best effort; the chat works without it.
func startChatRecorder() assistant.TurnRecorder {
	dir, err := appdir.TranscriptsDir()
	if err != nil {
		return nil
	}
	store, err := transcript.NewStore(dir)
	if err != nil {
		return nil
	}
	rec := transcript.NewRecorder(store)
	if err := rec.Start(); err != nil {
		store.Close()
		return nil
	}
	return rec
}

func runOnceMode(ctx context.Context, controller *assistant.Controller, printer *chatPrinter, prompt string) error {
	controller.SetDraft(prompt)
	if err := controller.Preview(ctx); err != nil {
		return err
	}

	snap := controller.Snapshot()
	if modeSnap(snap).PermissionRequired {
		// Non-interactive runs never grant calendar access
		if err := controller.DenyPermission(); err != nil {
			return err
		}
		snap = controller.Snapshot()
	}
	printer.printPreview(snap)
	if msg := modeSnap(snap).Error; msg != "" {
		return fmt.Errorf("%s", msg)
	}
	return nil
}

func runInteractiveLoop(ctx context.Context, controller *assistant.Controller, printer *chatPrinter) error {
	// Create readline shell
	rl := readline.NewShell()
	rl.Prompt.Primary(func() string { return "aical> " })

	// Set up history
	history := readline.NewInMemoryHistory()
	rl.History.Add("default", history)

	// Set up tab completion for slash commands
	rl.Completer = func(line []rune, cursor int) readline.Completions {
		return completeInput(string(line), cursor)
	}

	fmt.Println("\n📝 Describe a calendar change and press Enter. Use /help for commands.")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == io.EOF || err == readline.ErrInterrupt {
				fmt.Println("\n👋 Goodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Check for commands
		if strings.HasPrefix(line, "/") {
			if done := handleCommand(ctx, controller, printer, line); done {
				return nil
			}
			continue
		}

		controller.SetDraft(line)
		fmt.Println()
		if err := controller.Preview(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Printf("❌ %v\n", err)
			continue
		}

		snap := controller.Snapshot()
		if modeSnap(snap).PermissionRequired {
			snap = askPermission(ctx, rl, controller)
		}
		printer.printPreview(snap)
	}
}

// askPermission prompts for calendar-context access and resumes or
// abandons the suspended preview.
func askPermission(ctx context.Context, rl *readline.Shell, controller *assistant.Controller) assistant.Snapshot {
	fmt.Println("🔐 This request needs your existing calendar events as context.")
	rl.Prompt.Primary(func() string { return "allow? [y/N] " })
	defer rl.Prompt.Primary(func() string { return "aical> " })

	answer, err := rl.Readline()
	approved := err == nil && (strings.EqualFold(strings.TrimSpace(answer), "y") ||
		strings.EqualFold(strings.TrimSpace(answer), "yes"))

	if approved {
		if err := controller.ConfirmPermission(ctx); err != nil {
			fmt.Printf("❌ %v\n", err)
		}
	} else {
		if err := controller.DenyPermission(); err != nil {
			fmt.Printf("❌ %v\n", err)
		}
	}
	return controller.Snapshot()
}

// handleCommand runs a slash command. It returns true when the loop
// should exit.
func handleCommand(ctx context.Context, controller *assistant.Controller, printer *chatPrinter, line string) bool {
	parts := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(parts) == 0 {
		return false
	}

	switch strings.ToLower(parts[0]) {
	case "quit", "exit", "q":
		fmt.Println("👋 Goodbye!")
		return true

	case "mode":
		if len(parts) != 2 {
			fmt.Println("❓ Usage: /mode add|delete")
			return false
		}
		if err := controller.SetMode(assistant.Mode(parts[1])); err != nil {
			fmt.Printf("❌ %v\n", err)
			return false
		}
		fmt.Printf("✅ Mode: %s\n", parts[1])

	case "toggle":
		if len(parts) != 2 {
			fmt.Println("❓ Usage: /toggle N (add mode) or /toggle KEY (delete mode)")
			return false
		}
		snap := controller.Snapshot()
		if snap.Mode == assistant.ModeAdd {
			index, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Printf("❌ Not an item number: %s\n", parts[1])
				return false
			}
			controller.ToggleAddItem(index - 1)
		} else {
			controller.ToggleDeleteGroup(parts[1])
		}
		printer.printPreview(controller.Snapshot())

	case "apply":
		result, err := controller.Apply(ctx)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return false
		}
		printer.printApplied(result)

	case "range":
		if len(parts) != 3 {
			fmt.Println("❓ Usage: /range 2025-03-01 2025-03-31")
			return false
		}
		controller.SetDateRange(parts[1], parts[2])
		fmt.Printf("✅ Date range: %s to %s\n", parts[1], parts[2])

	case "reset":
		controller.ResetConversation()
		fmt.Println("🧹 Conversation cleared")

	case "help", "h", "?":
		printHelp()

	default:
		fmt.Printf("❓ Unknown command: %s (use /help for available commands)\n", parts[0])
	}
	return false
}

func printHelp() {
	fmt.Println(`
Available commands:
  /mode add|delete  - Switch editing mode
  /toggle N|KEY     - Toggle preview item N (add) or group KEY (delete)
  /apply            - Apply the selected changes
  /range FROM TO    - Set the visible date range for delete searches
  /reset            - Discard the conversation and start over
  /quit, /exit, /q  - Exit the chat
  /help, /h, /?     - Show this help message

Tips:
  - Describe the change in plain language and press Enter to preview it
  - Nothing is committed until /apply
  - Use up/down arrows for input history
  - Use Tab to autocomplete slash commands`)
}

// completeInput provides tab completion for the chat input.
// It completes slash commands when the input starts with "/".
func completeInput(line string, cursor int) readline.Completions {
	// Get the text up to the cursor position
	if cursor > len(line) {
		cursor = len(line)
	}
	text := line[:cursor]

	// Only complete if the line starts with "/"
	if !strings.HasPrefix(text, "/") {
		return readline.Completions{}
	}

	// Find matching commands
	var matches []string
	var descriptions []string
	for _, cmd := range slashCommands {
		if strings.HasPrefix(cmd.name, text) {
			matches = append(matches, cmd.name)
			descriptions = append(descriptions, cmd.description)
		}
	}

	if len(matches) == 0 {
		return readline.Completions{}
	}

	// Build value-description pairs for CompleteValuesDescribed
	pairs := make([]string, 0, len(matches)*2)
	for i, match := range matches {
		pairs = append(pairs, match, descriptions[i])
	}

	return readline.CompleteValuesDescribed(pairs...).
		Tag("commands").
		NoSpace('/')
}

// modeSnap returns the snapshot of the active mode.
func modeSnap(snap assistant.Snapshot) assistant.ModeSnapshot {
	if snap.Mode == assistant.ModeDelete {
		return snap.Delete
	}
	return snap.Add
}
