// Command wumpusworld runs the Wumpus World knowledge-based agent.
//
// Commands:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "run" – plays one episode in the terminal and prints the turn trace
//  4. "validate" – checks every world config and dry-runs the agent on it
//
// Flags control host/port, config and session directories, the episode
// ledger, debug logging, and optional ngrok tunneling for easy external
// access during development. Every flag can also be set from the
// environment or a .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/wumpusworld/api"
	"github.com/wricardo/mcp-training/wumpusworld/game/config"
	"github.com/wricardo/mcp-training/wumpusworld/game/engine"
	"github.com/wricardo/mcp-training/wumpusworld/game/record"
	"github.com/wricardo/mcp-training/wumpusworld/game/service"
	"github.com/wricardo/mcp-training/wumpusworld/game/session"
	"github.com/wricardo/mcp-training/wumpusworld/logging"
	"github.com/wricardo/mcp-training/wumpusworld/transport/mcp"
	"github.com/wricardo/mcp-training/wumpusworld/transport/websocket"
	"github.com/wricardo/mcp-training/wumpusworld/validate"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Wumpus World Server"
)

// Background maintenance intervals
const (
	cleanupInterval = time.Hour
	syncInterval    = 5 * time.Second
)

// main loads .env, wires signals into the root context and runs the CLI.
func main() {
	// Load .env file if it exists (ignore error if not found)
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if envErr != nil && !os.IsNotExist(envErr) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", envErr)
	}

	if err := newCommand().Run(ctx, os.Args); err != nil {
		zap.L().Error("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newCommand builds the CLI. Global flags are inherited by every subcommand.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "wumpusworld",
		Usage:   "Knowledge-based agent for the Wumpus World",
		Version: Version,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing world configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "sessions-dir",
				Value:   "sessions",
				Usage:   "Directory where sessions are persisted",
				Sources: cli.EnvVars("SESSIONS_DIR"),
			},
			&cli.StringFlag{
				Name:    "ledger",
				Value:   "wumpus.db",
				Usage:   "SQLite file recording finished episodes (empty disables the ledger)",
				Sources: cli.EnvVars("LEDGER_PATH"),
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Value:   24 * time.Hour,
				Usage:   "Remove sessions not accessed for this long",
				Sources: cli.EnvVars("SESSION_TTL"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
		}, serverFlags()...),
		Before: setupLogging,
		After: func(ctx context.Context, cmd *cli.Command) error {
			_ = zap.L().Sync()
			return nil
		},
		Action: runHTTPServer,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  runHTTPServer,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server, starting an internal HTTP server if needed",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Value:   "http://localhost:8080",
						Usage:   "REST API to proxy when it is already running",
						Sources: cli.EnvVars("API_URL"),
					},
				},
				Action: runStdioMCPWithInternalServer,
			},
			{
				Name:      "run",
				Usage:     "Play one episode in the terminal",
				ArgsUsage: "[config]",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:  "seed",
						Usage: "World and strategy seed (random worlds only)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the result as JSON",
					},
					&cli.BoolFlag{
						Name:  "record",
						Usage: "Record the finished episode in the ledger",
					},
				},
				Action: runEpisode,
			},
			{
				Name:  "validate",
				Usage: "Validate world configurations and dry-run the agent on them",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "seeds",
						Value: validate.DefaultSeeds,
						Usage: "Episodes played per randomized config",
					},
				},
				Action: runValidate,
			},
		},
	}
}

// serverFlags are global so the root command can serve without a subcommand
func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "HTTP server host",
			Sources: cli.EnvVars("HOST"),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "HTTP server port",
			Sources: cli.EnvVars("PORT"),
		},
		&cli.BoolFlag{
			Name:    "ngrok",
			Usage:   "Enable ngrok tunnel",
			Sources: cli.EnvVars("NGROK_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "ngrok-auth",
			Usage:   "Ngrok auth token",
			Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "ngrok-domain",
			Usage:   "Custom ngrok domain (optional)",
			Sources: cli.EnvVars("NGROK_DOMAIN"),
		},
	}
}

// setupLogging installs the global logger before any command runs
func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	logger, err := logging.New(cmd.Bool("debug"))
	if err != nil {
		return ctx, err
	}
	zap.ReplaceGlobals(logger)
	return ctx, nil
}

// serviceOptions collects what initializeServices needs from the flags
type serviceOptions struct {
	ConfigDir   string
	SessionsDir string
	LedgerPath  string
	SessionTTL  time.Duration
	Logger      *zap.Logger
}

func serviceOptionsFrom(cmd *cli.Command) serviceOptions {
	return serviceOptions{
		ConfigDir:   cmd.String("config-dir"),
		SessionsDir: cmd.String("sessions-dir"),
		LedgerPath:  cmd.String("ledger"),
		SessionTTL:  cmd.Duration("session-ttl"),
		Logger:      zap.L(),
	}
}

// services is everything a server process runs
type services struct {
	game     service.GameService
	sessions *session.Manager
	hub      *websocket.Hub
	ledger   *record.SQLiteStore
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// initializeServices wires config, sessions, the ledger, the websocket hub
// and the game service. The hub and the session maintenance routine run
// until ctx is done.
func initializeServices(ctx context.Context, opts serviceOptions) (*services, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Create config manager first (needed for persistence)
	configManager, err := config.NewManager(opts.ConfigDir, config.WithLogger(logger.Named("config")))
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	engineOpts := []engine.Option{engine.WithLogger(logger.Named("engine"))}

	// Create session persistence
	persistence, err := session.NewFilePersistence(opts.SessionsDir, configManager, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	// Create session manager with persistence
	sessionManager := session.NewManagerWithPersistence(persistence,
		session.WithLogger(logger.Named("session")),
		session.WithEngineOptions(engineOpts...))

	// Load persisted sessions on startup
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		logger.Warn("failed to load persisted sessions", zap.Error(err))
	}

	s := &services{
		sessions: sessionManager,
		hub:      websocket.NewHub(websocket.WithLogger(logger.Named("websocket"))),
		logger:   logger,
	}

	serviceOpts := []service.Option{
		service.WithObserver(s.hub),
		service.WithLogger(logger.Named("service")),
	}
	if opts.LedgerPath != "" {
		s.ledger, err = record.OpenSQLite(opts.LedgerPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open episode ledger: %w", err)
		}
		serviceOpts = append(serviceOpts, service.WithLedger(s.ledger))
	}

	s.game = service.NewGameService(sessionManager, configManager, serviceOpts...)

	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.hub.Run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		sessionManager.Maintain(ctx, ttl, cleanupInterval, syncInterval)
	}()

	return s, nil
}

// Close waits for the background routines, which stop with the context
// passed to initializeServices, then flushes sessions and the ledger
func (s *services) Close() {
	s.wg.Wait()
	if err := s.sessions.SaveAllSessions(); err != nil {
		s.logger.Warn("failed to save sessions", zap.Error(err))
	}
	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			s.logger.Warn("failed to close ledger", zap.Error(err))
		}
	}
}

// newRouter mounts the REST API and a POST /mcp endpoint on one mux
func newRouter(s *services, mcpBaseURL string) http.Handler {
	apiServer := api.NewServer(s.game, s.hub, api.WithLogger(s.logger.Named("api")))
	mcpClient := mcp.NewClient(mcpBaseURL)

	mainRouter := http.NewServeMux()

	// Mount API server at root
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

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
	})

	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cmd *cli.Command) error {
	logger := zap.L()
	logger.Info("starting", zap.String("app", AppName), zap.String("version", Version))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s, err := initializeServices(ctx, serviceOptionsFrom(cmd))
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer s.Close()

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	handler := newRouter(s, "http://"+addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serverErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening",
			zap.String("rest", "http://"+addr+"/api"),
			zap.String("websocket", "ws://"+addr+"/ws?session=<session_id>"),
			zap.String("mcp", "http://"+addr+"/mcp"))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			cancel()
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cmd, handler, logger)
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	wg.Wait()
	logger.Info("server stopped")

	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	default:
		return nil
	}
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, cmd *cli.Command, handler http.Handler, logger *zap.Logger) {
	authToken := cmd.String("ngrok-auth")
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	logger.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if domain := cmd.String("ngrok-domain"); domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Info("using custom ngrok domain", zap.String("domain", domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	// ngrok.Listen ties the tunnel to ctx; close it explicitly as well
	go func() {
		<-ctx.Done()
		tun.Close()
	}()

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("rest", ngrokURL+"/api"),
		zap.String("mcp", ngrokURL+"/mcp"))

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Warn("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at --api-url; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, cmd *cli.Command) error {
	logger := zap.L()
	externalURL := cmd.String("api-url")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	baseURL := externalURL
	if !apiAvailable(ctx, externalURL) {
		logger.Info("no external API server found, starting internal HTTP server", zap.String("checked", externalURL))

		// Start internal HTTP server on a random available port
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		s, err := initializeServices(ctx, serviceOptionsFrom(cmd))
		if err != nil {
			listener.Close()
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		// Close waits for routines that stop on cancel
		defer func() {
			cancel()
			s.Close()
		}()

		httpServer := &http.Server{
			Handler: api.NewServer(s.game, s.hub, api.WithLogger(logger.Named("api"))),
		}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server error", zap.Error(err))
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		logger.Info("MCP stdio server ready (using internal HTTP server)", zap.String("api", baseURL))
	} else {
		logger.Info("MCP stdio server ready (using external HTTP server)", zap.String("api", baseURL))
	}

	mcpClient := mcp.NewClient(baseURL)

	// ServeStdio blocks until stdin closes or the process is signalled
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// apiAvailable reports whether a REST API answers its health check
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runEpisode plays one episode through an in-memory service and prints it
func runEpisode(ctx context.Context, cmd *cli.Command) error {
	logger := zap.L()

	configManager, err := config.NewManager(cmd.String("config-dir"), config.WithLogger(logger.Named("config")))
	if err != nil {
		return fmt.Errorf("failed to create config manager: %w", err)
	}

	engineOpts := []engine.Option{engine.WithLogger(logger.Named("engine"))}
	if cmd.IsSet("seed") {
		engineOpts = append(engineOpts, engine.WithSeed(cmd.Int64("seed")))
	}
	sessions := session.NewManager(session.WithLogger(logger.Named("session")), session.WithEngineOptions(engineOpts...))

	serviceOpts := []service.Option{service.WithLogger(logger.Named("service"))}
	if ledgerPath := cmd.String("ledger"); cmd.Bool("record") && ledgerPath != "" {
		ledger, err := record.OpenSQLite(ledgerPath)
		if err != nil {
			return fmt.Errorf("failed to open episode ledger: %w", err)
		}
		defer ledger.Close()
		serviceOpts = append(serviceOpts, service.WithLedger(ledger))
	}

	gameService := service.NewGameService(sessions, configManager, serviceOpts...)

	info, err := gameService.CreateSession(ctx, cmd.Args().First())
	if err != nil {
		return err
	}
	result, err := gameService.Run(ctx, info.ID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printEpisode(os.Stdout, info.ConfigName, result)
	return nil
}

// printEpisode writes a turn-by-turn trace and a summary
func printEpisode(w io.Writer, configName string, result *service.TurnsResult) {
	state := result.GameState
	fmt.Fprintf(w, "%s (seed %d)\n\n", configName, state.Seed)
	for _, turn := range result.Turns {
		risk := ""
		if turn.RiskAccepted {
			risk = "  risk"
		}
		fmt.Fprintf(w, "%3d  %-11s %-6s %-11s %-22s%s\n",
			turn.Turn, turn.Action, turn.State.Position, turn.Phase, turn.Percept, risk)
	}
	fmt.Fprintf(w, "\nOutcome: %s after %d turns (%d moves, %d risky)\n",
		result.Outcome, state.Agent.Turn, state.Agent.Moves, result.RiskMoves)
	if state.Message != "" {
		fmt.Fprintln(w, state.Message)
	}
}

// runValidate validates every config in --config-dir
func runValidate(ctx context.Context, cmd *cli.Command) error {
	results, err := validate.Dir(ctx, cmd.String("config-dir"), validate.Options{
		Seeds:  cmd.Int("seeds"),
		Logger: zap.L().Named("validate"),
	})
	if err != nil {
		return err
	}
	if !validate.Report(os.Stdout, results) {
		return cli.Exit("", 1)
	}
	return nil
}
