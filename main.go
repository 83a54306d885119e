// Command gameids starts the game ID registry server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing the REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from the environment (and .env), and flags override them:
// host/port, game ID ttl, log archive backend, log format, debug logging,
// version output, and optional ngrok tunneling for external access.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mcp-training/gameids/api"
	"github.com/wricardo/mcp-training/gameids/game/config"
	"github.com/wricardo/mcp-training/gameids/game/service"
	"github.com/wricardo/mcp-training/gameids/game/session"
	"github.com/wricardo/mcp-training/gameids/transport/mcp"
	"github.com/wricardo/mcp-training/gameids/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Game ID Registry Server"
)

var version = flag.Bool("version", false, "Show version information")

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                         # Run HTTP server on default port 3001\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090 -ttl 5m      # Run on port 9090 with 5 minute game IDs\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -archive file           # Keep final logs of ended game IDs on disk\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp               # Run MCP stdio server\n", os.Args[0])
	}
}

// main loads configuration, initializes services, and starts the selected mode.
func main() {
	// Load .env file if it exists (ignore error if not found)
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	// Show version if requested
	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	// Logs always go to stderr; stdout belongs to the MCP stdio transport
	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	if envErr == nil {
		logger.Info("loaded environment variables from .env file")
	} else if !os.IsNotExist(envErr) {
		logger.Warn("error loading .env file", "error", envErr)
	}

	// Determine mode from command
	args := flag.Args()
	mode := "server" // default
	if len(args) > 0 {
		mode = args[0]
	}

	logger.Info("starting", "app", AppName, "version", Version, "mode", mode)

	ctx := context.Background()
	app, err := initializeServices(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		// Run MCP stdio server with internal HTTP server
		runStdioMCPWithInternalServer(cfg, app, logger)

	case "server", "http":
		// Run HTTP server with API, WebSocket, and MCP endpoint
		runHTTPServer(cfg, app, logger)

	default:
		logger.Error("unknown mode, use 'server' (default) or 'stdio-mcp'", "mode", mode)
		app.shutdown(ctx)
		os.Exit(2)
	}
}

// newLogger builds the process logger from the log format and debug settings
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Debug {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}

	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// services holds everything main wires together and must tear down
type services struct {
	registry *session.Registry
	gameIDs  service.GameIDService
	hub      *websocket.Hub
	archive  session.LogArchive
	closers  []func() error
	logger   *slog.Logger
}

// initializeServices wires the archive, websocket hub, registry and service.
// The hub is started here so registry events are drained from the first
// game ID on.
func initializeServices(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*services, error) {
	app := &services{logger: logger}

	switch cfg.Archive {
	case config.ArchiveFile:
		archive, err := session.NewFileArchive(cfg.ArchiveDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create file archive: %w", err)
		}
		app.archive = archive
		logger.Info("archiving ended game IDs to directory", "dir", cfg.ArchiveDir)

	case config.ArchiveRedis:
		redisCfg, err := session.LoadRedisConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load redis config: %w", err)
		}
		archive, err := session.DialRedisArchive(ctx, redisCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect redis archive: %w", err)
		}
		app.archive = archive
		app.closers = append(app.closers, archive.Close)
		logger.Info("archiving ended game IDs to redis", "addr", redisCfg.Addr)
	}

	app.hub = websocket.NewHub(logger.With("component", "websocket"))
	go app.hub.Run()

	app.registry = session.NewRegistry(
		session.WithTTL(cfg.TTL),
		session.WithLogger(logger.With("component", "registry")),
		session.WithArchive(app.archive),
		session.WithListener(app.hub.Publish),
	)
	app.gameIDs = service.NewGameIDService(app.registry, app.archive, logger.With("component", "service"))

	return app, nil
}

// shutdown drains the registry, then disconnects websocket clients and
// closes the archive backend.
func (s *services) shutdown(ctx context.Context) {
	if err := s.registry.Close(ctx); err != nil {
		s.logger.Warn("registry close reported errors", "error", err)
	}
	s.hub.Stop()
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			s.logger.Warn("failed to close archive", "error", err)
		}
	}
}

// newHandler builds the HTTP handler: the REST API plus the /mcp endpoint,
// whose tools call back into the API at baseURL.
func newHandler(app *services, baseURL string) http.Handler {
	apiServer := api.NewServer(app.gameIDs, app.hub, app.logger.With("component", "api"))
	mcpClient := mcp.NewClient(baseURL)

	apiServer.Router().HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}).Methods(http.MethodPost, http.MethodOptions)

	return apiServer
}

// localBaseURL is the address in-process clients use to reach the server
func localBaseURL(cfg *config.Config) string {
	host := cfg.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, fmt.Sprint(cfg.Port))
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled (via flag or environment), it also provisions a public tunnel.
func runHTTPServer(cfg *config.Config, app *services, logger *slog.Logger) {
	addr := cfg.Addr()
	handler := newHandler(app, localBaseURL(cfg))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Setup graceful shutdown context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	// Start regular HTTP server
	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening", "addr", addr, "ttl", cfg.TTL, "archive", cfg.Archive)
		logger.Info("endpoints",
			"rest", fmt.Sprintf("http://%s/create", addr),
			"websocket", fmt.Sprintf("ws://%s/ws?gameId=<game_id>", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			stop <- syscall.SIGTERM
		}
	}()

	// Start ngrok tunnel if enabled
	if cfg.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, cfg, handler, logger)
		}()
	}

	// Wait for shutdown signal
	sig := <-stop
	logger.Info("shutting down", "signal", sig.String())
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", "error", err)
	}
	app.shutdown(shutdownCtx)

	// Wait for all goroutines to finish
	wg.Wait()
	logger.Info("server stopped")
}

// runNgrokTunnel serves handler through an ngrok endpoint until ctx is done
func runNgrokTunnel(ctx context.Context, cfg *config.Config, handler http.Handler, logger *slog.Logger) {
	if cfg.NgrokAuthToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	logger.Info("starting ngrok tunnel")

	// Configure ngrok endpoint
	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
		logger.Info("using custom ngrok domain", "domain", cfg.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx,
		tunnel,
		ngrok.WithAuthtoken(cfg.NgrokAuthToken),
	)
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "error", err)
		return
	}

	// Listen is bound to ctx, but the tunnel keeps serving until closed
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", "error", err)
		}
	}()

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		"url", ngrokURL,
		"websocket", ngrokURL+"/ws?gameId=<game_id>",
		"mcp", ngrokURL+"/mcp")

	// Serve HTTP through ngrok tunnel
	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Warn("ngrok server error", "error", err)
	}
	logger.Info("ngrok tunnel closed")
}

// externalServerAvailable reports whether a registry server answers at baseURL
func externalServerAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return api.NewClient(baseURL).Health(ctx) == nil
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at the configured port; if unavailable, it
// starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(cfg *config.Config, app *services, logger *slog.Logger) {
	ctx := context.Background()
	externalURL := localBaseURL(cfg)
	baseURL := externalURL

	logger.Info("checking for external API server", "url", externalURL)

	var httpServer *http.Server
	if externalServerAvailable(ctx, externalURL) {
		logger.Info("external API server found, using it for MCP", "url", externalURL)
	} else {
		logger.Info("no external API server found, starting internal HTTP server")

		// Start internal HTTP server on a random available port
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			logger.Error("failed to get available port", "error", err)
			os.Exit(1)
		}
		baseURL = "http://" + listener.Addr().String()

		httpServer = &http.Server{
			Handler: newHandler(app, baseURL),
		}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server error", "error", err)
			}
		}()

		logger.Info("internal HTTP server started", "url", baseURL)
	}

	// Create MCP client pointing to the selected server
	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", "api", baseURL)

	// ServeStdio returns on stdin EOF or SIGINT/SIGTERM
	serveErr := server.ServeStdio(mcpClient.GetMCPServer())

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if httpServer != nil {
		httpServer.Shutdown(shutdownCtx)
	}
	app.shutdown(shutdownCtx)

	if serveErr != nil {
		logger.Error("MCP stdio server error", "error", serveErr)
		os.Exit(1)
	}
}
