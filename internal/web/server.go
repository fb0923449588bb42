package web

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/sweetpotatoswee/aical/internal/appdir"
	"github.com/sweetpotatoswee/aical/internal/assistant"
	"github.com/sweetpotatoswee/aical/internal/logging"
	"github.com/sweetpotatoswee/aical/internal/transcript"
	aicalWeb "github.com/sweetpotatoswee/aical/web"
)

// Config holds the web server configuration.
type Config struct {
	// NLP and Calendar are the backend services driven by each client's
	// controller.
	NLP      assistant.NLPService
	Calendar assistant.CalendarService

	// Model and Effort are forwarded on every preview call.
	Model  string
	Effort string

	// Conversation bounds; zero values use the assistant defaults.
	MaxMessages int
	CharBudget  int

	// TranscriptsDir is the directory for conversation transcripts.
	// If empty, the platform default under the Aical data dir is used.
	TranscriptsDir string

	// StaticDir is an optional filesystem directory to serve static files
	// from. When set, files are served from this directory instead of the
	// embedded assets, which enables hot-reloading during development.
	StaticDir string

	// AllowedOrigins for WebSocket connections. Empty means same-origin only.
	AllowedOrigins []string
}

// Server is the Aical web server.
type Server struct {
	config     Config
	httpServer *http.Server
	logger     *slog.Logger
	mu         sync.Mutex
	shutdown   bool

	// apiPrefix is the URL prefix for API and WebSocket endpoints.
	apiPrefix string

	nlp      assistant.NLPService
	calendar assistant.CalendarService

	// Transcript store shared by all clients (nil if unavailable)
	transcripts *transcript.Store

	rateLimiter       *GeneralRateLimiter
	connectionTracker *ConnectionTracker
	wsSecurityConfig  WebSocketSecurityConfig
}

// NewServer creates a new web server.
func NewServer(config Config) (*Server, error) {
	logger := logging.Web()

	if config.NLP == nil || config.Calendar == nil {
		return nil, fmt.Errorf("web server requires NLP and Calendar services")
	}

	transcriptsDir := config.TranscriptsDir
	if transcriptsDir == "" {
		dir, err := appdir.TranscriptsDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve transcripts directory: %w", err)
		}
		transcriptsDir = dir
	}
	transcripts, err := transcript.NewStore(transcriptsDir)
	if err != nil {
		// The assistant still works without persistence.
		logger.Warn("Failed to create transcript store, transcripts disabled", "error", err)
		transcripts = nil
	}

	wsSecurityConfig := DefaultWebSocketSecurityConfig()
	wsSecurityConfig.AllowedOrigins = config.AllowedOrigins

	rateLimiter := NewGeneralRateLimiter(DefaultRateLimitConfig())

	s := &Server{
		config:            config,
		logger:            logger,
		nlp:               config.NLP,
		calendar:          config.Calendar,
		transcripts:       transcripts,
		rateLimiter:       rateLimiter,
		connectionTracker: NewConnectionTracker(wsSecurityConfig.MaxConnectionsPerIP),
		wsSecurityConfig:  wsSecurityConfig,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealthCheck)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/transcripts", s.handleTranscripts)
	mux.HandleFunc("/api/transcripts/", s.handleTranscriptDetail)
	mux.HandleFunc("/api/ws", s.handleAssistantWS)

	// Static files: use filesystem directory if specified, otherwise use
	// embedded assets.
	var staticFS fs.FS
	if config.StaticDir != "" {
		staticFS = os.DirFS(config.StaticDir)
		logger.Info("Serving static files from filesystem", "dir", config.StaticDir)
	} else {
		staticFS, err = fs.Sub(aicalWeb.StaticFS, "static")
		if err != nil {
			return nil, err
		}
	}
	mux.Handle("/", s.staticFileHandler(staticFS))

	// Wrap with middlewares (applied in reverse order)
	var handler http.Handler = mux

	// Request bodies stay small; attachments travel over the WebSocket.
	handler = requestSizeLimitMiddleware(1 * 1024 * 1024)(handler)
	handler = rateLimiter.Middleware(handler)
	handler = requestTimeoutMiddleware(DefaultRequestTimeout)(handler)
	handler = securityHeadersMiddleware(handler)
	handler = s.loggingMiddleware(handler)

	s.httpServer = &http.Server{Handler: handler}

	logger.Info("Web server initialized", "transcripts_dir", transcriptsDir)
	return s, nil
}

// Serve starts the HTTP server on the given listener.
func (s *Server) Serve(listener net.Listener) error {
	return s.httpServer.Serve(listener)
}

// Handler returns the HTTP handler for the server.
// This is useful for testing with httptest.Server.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true

	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}

	if s.transcripts != nil {
		s.transcripts.Close()
	}

	return s.httpServer.Shutdown(context.Background())
}

// IsShutdown returns whether the server has been shut down.
func (s *Server) IsShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

// Transcripts returns the server's transcript store (nil if disabled).
func (s *Server) Transcripts() *transcript.Store {
	return s.transcripts
}

// handleHealthCheck reports server liveness.
// Route: /api/health
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSONOK(w, map[string]string{"status": "ok"})
}

// handleConfig exposes the non-sensitive assistant settings the UI
// needs. Backend URLs and keys never leave the server.
// Route: /api/config
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSONOK(w, map[string]interface{}{
		"model":        s.config.Model,
		"effort":       s.config.Effort,
		"max_messages": s.config.MaxMessages,
		"char_budget":  s.config.CharBudget,
	})
}

// APIPrefix returns the URL prefix for API and WebSocket endpoints.
func (s *Server) APIPrefix() string {
	return s.apiPrefix
}

// loggingMiddleware logs requests at debug level, skipping static assets
// to keep the log readable.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isStaticAsset(r.URL.Path) {
			s.logger.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
		}
		next.ServeHTTP(w, r)
	})
}
