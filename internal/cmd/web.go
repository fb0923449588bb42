package cmd

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sweetpotatoswee/aical/internal/appdir"
	"github.com/sweetpotatoswee/aical/internal/config"
	"github.com/sweetpotatoswee/aical/internal/logging"
	"github.com/sweetpotatoswee/aical/internal/web"
)

var (
	webPort      int
	webHost      string
	webStaticDir string
)

// webCmd represents the web command
var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Start the browser-based assistant interface",
	Long: `Start a web server that provides the browser-based assistant UI.

The interface has an add tab for drafting new events and a delete tab
for finding events to remove. Previews stream in as the backend drafts
them; nothing is committed until you press Apply.

Example:
  aical web                              # Start on default port 8580
  aical web --port 3000                  # Start on custom port
  aical web --port 0                     # Use random port (auto-selected)
  aical web --static-dir ./web/static    # Serve from filesystem (for development)`,
	RunE: runWeb,
}

func init() {
	rootCmd.AddCommand(webCmd)

	webCmd.Flags().IntVar(&webPort, "port", config.DefaultWebPort, "HTTP server port. Use 0 for random port")
	webCmd.Flags().StringVar(&webHost, "host", config.DefaultWebHost, "HTTP server host. Non-loopback hosts accept remote connections")
	webCmd.Flags().StringVar(&webStaticDir, "static-dir", "", "Serve static files from this directory instead of embedded assets (for development)")
}

func runWeb(cmd *cobra.Command, args []string) error {
	nlpClient, calClient, err := newServices()
	if err != nil {
		return err
	}

	// CLI flags win over config values
	port := webPort
	host := webHost
	staticDir := webStaticDir
	if cfg != nil {
		if !cmd.Flags().Changed("port") && cfg.Web.Port != 0 {
			port = cfg.Web.Port
		}
		if !cmd.Flags().Changed("host") && cfg.Web.Host != "" {
			host = cfg.Web.Host
		}
		if !cmd.Flags().Changed("static-dir") && cfg.Web.StaticDir != "" {
			staticDir = cfg.Web.StaticDir
		}
	}

	srv, err := web.NewServer(web.Config{
		NLP:         nlpClient,
		Calendar:    calClient,
		Model:       cfg.NLP.Model,
		Effort:      cfg.NLP.Effort,
		MaxMessages: cfg.Conversation.MaxMessages,
		CharBudget:  cfg.Conversation.CharBudget,
		StaticDir:   staticDir,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Reload instruction overrides while the server runs
	watcher := startPromptsWatcher(nlpClient)
	if watcher != nil {
		defer watcher.Close()
	}

	listener, actualPort, err := listen(host, port)
	if err != nil {
		return err
	}

	fmt.Printf("🗓  Aical web interface\n")
	fmt.Printf("   NLP backend: %s\n", cfg.NLP.BaseURL)
	fmt.Printf("   Calendar backend: %s\n", cfg.Calendar.BaseURL)
	if staticDir != "" {
		fmt.Printf("   Static files: %s (hot-reload enabled)\n", staticDir)
	}
	fmt.Printf("   URL: http://%s:%d\n", displayHost(host), actualPort)
	fmt.Printf("\n   Press Ctrl+C to stop\n\n")

	// Handle signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n👋 Shutting down...")
		srv.Shutdown()
	}()

	// Serve (blocks until shutdown)
	if err := srv.Serve(listener); err != nil && !srv.IsShutdown() {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// listen binds the server socket. Loopback hosts get the hardened
// listener that rejects non-local peers at accept time.
func listen(host string, port int) (net.Listener, int, error) {
	if host == "127.0.0.1" || host == "localhost" {
		return web.CreateLocalhostListener(port)
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return listener, listener.Addr().(*net.TCPAddr).Port, nil
}

func displayHost(host string) string {
	if host == "0.0.0.0" || host == "" {
		return "127.0.0.1"
	}
	return host
}

// promptsReloader is the interface the watcher feeds. *nlp.Client
// satisfies it.
type promptsReloader interface {
	SetPrompts(*config.Prompts)
}

func startPromptsWatcher(target promptsReloader) *config.PromptsWatcher {
	logger := logging.Web()

	dir, err := appdir.PromptsDir()
	if err != nil {
		logger.Warn("Prompts watcher disabled", "error", err)
		return nil
	}
	watcher, err := config.NewPromptsWatcher(dir, func(p *config.Prompts) {
		target.SetPrompts(p)
		logger.Info("Instruction overrides reloaded", "overridden", p.Overridden)
	}, logger)
	if err != nil {
		logger.Warn("Prompts watcher disabled", "error", err)
		return nil
	}
	watcher.Start()
	return watcher
}
