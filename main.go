// Command unoroom starts the Uno room server.
//
// It supports three commands:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "validate" – checks every house rules preset in the rules directory
//
// Flags (or UNOROOM_* environment variables) control host/port, the rules
// directory and default preset, debug logging, idle room expiry, allowed
// WebSocket origins, and optional ngrok tunneling for easy external access during development.
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
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/unoroom/api"
	"github.com/wricardo/mcp-training/unoroom/game/config"
	"github.com/wricardo/mcp-training/unoroom/game/room"
	"github.com/wricardo/mcp-training/unoroom/game/service"
	"github.com/wricardo/mcp-training/unoroom/transport/mcp"
	"github.com/wricardo/mcp-training/unoroom/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Uno Room Server"
)

// Settings holds everything the commands read from flags and environment.
type Settings struct {
	Host          string
	Port          int
	RulesDir      string
	Rules         string
	Debug         bool
	IdleTTL       time.Duration
	SweepInterval time.Duration
	Origins       []string
	NgrokEnabled  bool
	NgrokAuth     string
	NgrokDomain   string
}

// Addr is the host:port the HTTP server binds.
func (s Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func settingsFrom(cmd *cli.Command) Settings {
	return Settings{
		Host:          cmd.String("host"),
		Port:          cmd.Int("port"),
		RulesDir:      cmd.String("rules-dir"),
		Rules:         cmd.String("rules"),
		Debug:         cmd.Bool("debug"),
		IdleTTL:       cmd.Duration("idle-ttl"),
		SweepInterval: cmd.Duration("sweep-interval"),
		Origins:       cmd.StringSlice("allowed-origins"),
		NgrokEnabled:  cmd.Bool("ngrok"),
		NgrokAuth:     cmd.String("ngrok-auth"),
		NgrokDomain:   cmd.String("ngrok-domain"),
	}
}

// newApp builds the command tree.
func newApp() *cli.Command {
	serve := func(ctx context.Context, cmd *cli.Command) error {
		s := settingsFrom(cmd)
		logger, err := buildLogger(s.Debug)
		if err != nil {
			return err
		}
		defer logger.Sync()
		return runHTTPServer(ctx, s, logger)
	}

	return &cli.Command{
		Name:    "unoroom",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("UNOROOM_PORT")},
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("UNOROOM_HOST")},
			&cli.StringFlag{Name: "rules-dir", Value: "rules", Usage: "Directory containing house rules presets (empty for built-in rules)", Sources: cli.EnvVars("UNOROOM_RULES_DIR")},
			&cli.StringFlag{Name: "rules", Usage: "Default house rules preset", Sources: cli.EnvVars("UNOROOM_RULES")},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging", Sources: cli.EnvVars("UNOROOM_DEBUG")},
			&cli.DurationFlag{Name: "idle-ttl", Value: 2 * time.Hour, Usage: "Remove rooms idle for longer than this (0 disables)", Sources: cli.EnvVars("UNOROOM_IDLE_TTL")},
			&cli.DurationFlag{Name: "sweep-interval", Value: 5 * time.Minute, Usage: "How often idle rooms are checked"},
			&cli.StringSliceFlag{Name: "allowed-origins", Usage: "Browser origins allowed to open WebSockets (empty allows all)", Sources: cli.EnvVars("UNOROOM_ALLOWED_ORIGINS")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  serve,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					s := settingsFrom(cmd)
					logger, err := buildLogger(s.Debug)
					if err != nil {
						return err
					}
					defer logger.Sync()
					return runStdioMCPWithInternalServer(ctx, s, logger)
				},
			},
			{
				Name:  "validate",
				Usage: "Validate every house rules preset in the rules directory",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runValidate(cmd.String("rules-dir"), cmd.Root().Writer)
				},
			},
		},
	}
}

// main loads .env, then runs the selected command.
func main() {
	// Load .env file if it exists (ignore error if not found)
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", envErr)
	}

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// buildLogger returns a development logger when debug is set.
func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Services bundles the long-lived components shared by the transports.
type Services struct {
	Game     service.GameService
	Registry *room.Registry
	Hub      *websocket.Hub
}

// initializeServices wires the rules manager, room registry, hub, and game
// service.
func initializeServices(s Settings, logger *zap.Logger) (*Services, error) {
	var configs service.ConfigManager
	opts := []room.Option{room.WithLogger(logger.Named("rooms"))}

	if s.RulesDir != "" {
		manager, err := config.NewManager(s.RulesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create rules manager: %w", err)
		}
		if s.Rules != "" {
			if err := manager.SetDefault(s.Rules); err != nil {
				return nil, fmt.Errorf("failed to select rules %q: %w", s.Rules, err)
			}
		}
		opts = append(opts, room.WithRules(*manager.GetDefault()))
		configs = manager
	} else if s.Rules != "" {
		return nil, fmt.Errorf("rules %q selected but no rules directory configured", s.Rules)
	}

	registry := room.NewRegistry(opts...)
	hub := websocket.NewHub(logger.Named("ws"))
	hub.SetAllowedOrigins(s.Origins)

	logger.Info("Services initialized",
		zap.String("rules_dir", s.RulesDir),
		zap.String("default_rules", registry.Rules().Name),
		zap.Strings("allowed_origins", s.Origins))

	return &Services{
		Game:     service.NewGameService(registry, configs, hub, logger.Named("service")),
		Registry: registry,
		Hub:      hub,
	}, nil
}

// newMCPHandler serves single JSON-RPC messages against the MCP tool server.
func newMCPHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
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
	}
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, s Settings, logger *zap.Logger) error {
	logger.Info("Starting", zap.String("app", AppName), zap.String("version", Version), zap.String("mode", "server"))

	services, err := initializeServices(s, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go services.Hub.Run(ctx)
	go idleSweepRoutine(ctx, services.Registry, s.IdleTTL, s.SweepInterval, logger)

	apiServer := api.NewServer(services.Game, services.Hub, logger.Named("api"))

	addr := s.Addr()
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))

	// Main router combines API and MCP
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", newMCPHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening",
			zap.String("rest", fmt.Sprintf("http://%s/api", addr)),
			zap.String("websocket", fmt.Sprintf("ws://%s/ws?player=<id>&name=<name>", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if s.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, s, mainRouter, logger.Named("ngrok"))
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case runErr = <-serveErr:
	}
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	wg.Wait()
	logger.Info("Server stopped")
	return runErr
}

// runNgrokTunnel serves handler through an ngrok endpoint until ctx is done.
func runNgrokTunnel(ctx context.Context, s Settings, handler http.Handler, logger *zap.Logger) {
	if s.NgrokAuth == "" {
		logger.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	logger.Info("Starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if s.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(s.NgrokDomain))
		logger.Info("Using custom ngrok domain", zap.String("domain", s.NgrokDomain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx,
		tunnel,
		ngrok.WithAuthtoken(s.NgrokAuth),
	)
	if err != nil {
		logger.Error("Failed to start ngrok tunnel", zap.Error(err))
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("Failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	ngrokURL := tun.URL()
	logger.Info("Ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("rest", ngrokURL+"/api"),
		zap.String("websocket", ngrokURL+"/ws?player=<id>&name=<name>"),
		zap.String("mcp", ngrokURL+"/mcp"))

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		logger.Warn("Ngrok server error", zap.Error(err))
	}
	logger.Info("Ngrok tunnel closed")
}

// idleSweepRoutine periodically removes rooms that have seen no command
// within ttl. A zero ttl disables the sweep.
func idleSweepRoutine(ctx context.Context, registry *room.Registry, ttl, interval time.Duration, logger *zap.Logger) {
	if ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := registry.ExpireIdle(ttl); removed > 0 {
				logger.Info("Expired idle rooms", zap.Int("removed", removed))
			}
		}
	}
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at the configured address; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, s Settings, logger *zap.Logger) error {
	externalURL := fmt.Sprintf("http://%s", s.Addr())
	logger.Info("Checking for external API server", zap.String("url", externalURL))

	baseURL := externalURL
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		logger.Info("External API server found, using it for MCP")
	} else {
		logger.Info("No external API server found, starting internal HTTP server")

		services, err := initializeServices(s, logger)
		if err != nil {
			return err
		}

		// Start internal HTTP server on a random available port
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		internalAddr := listener.Addr().String()

		go services.Hub.Run(ctx)
		go idleSweepRoutine(ctx, services.Registry, s.IdleTTL, s.SweepInterval, logger)

		httpServer := &http.Server{
			Handler: api.NewServer(services.Game, services.Hub, logger.Named("api")),
		}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				logger.Error("Internal HTTP server error", zap.Error(err))
			}
		}()
		defer httpServer.Close()

		baseURL = fmt.Sprintf("http://%s", internalAddr)
		logger.Info("Internal HTTP server started", zap.String("addr", internalAddr))
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", zap.String("api", baseURL))

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// runValidate parses every preset in dir and reports the ones that fail.
func runValidate(dir string, out io.Writer) error {
	if out == nil {
		out = os.Stdout
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read rules directory: %w", err)
	}

	checked, failed := 0, 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		checked++

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err == nil {
			_, err = config.ParseRules(data)
		}
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", entry.Name(), err)
			continue
		}
		fmt.Fprintf(out, "ok   %s\n", entry.Name())
	}

	if checked == 0 {
		return fmt.Errorf("no rules presets found in %s", dir)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d rules presets invalid", failed, checked)
	}
	return nil
}
