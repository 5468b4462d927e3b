package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/breathemate/breathemate/internal/analysis"
	"github.com/breathemate/breathemate/internal/api"
	"github.com/breathemate/breathemate/internal/auth"
	"github.com/breathemate/breathemate/internal/config"
	"github.com/breathemate/breathemate/internal/journal"
	"github.com/breathemate/breathemate/internal/profile"
	"github.com/breathemate/breathemate/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the BreatheMate server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running BreatheMate server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "breathemate.pid")
}

func writePIDFile(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(pidFilePath(dataDir), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(dataDir string) (int, error) {
	data, err := os.ReadFile(pidFilePath(dataDir))
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(dataDir string) {
	_ = os.Remove(pidFilePath(dataDir))
}

func runServer(ctx context.Context) error {
	fmt.Fprintf(os.Stderr, "breathemate %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Refuse to start when another instance already answers on our port.
	if serverHealthy(ctx, cfg.Server.Port) {
		return fmt.Errorf("a breathemate server is already running on port %d", cfg.Server.Port)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	jstore := journal.NewStore(store)
	seeded, err := jstore.Load()
	if err != nil {
		return fmt.Errorf("loading journal: %w", err)
	}
	slog.Info("journal loaded", "entries", len(seeded))

	authenticator := auth.NewAuthenticator(store, cfg.Auth.DemoEmail, cfg.Auth.DemoPassword, cfg.SessionTTL())
	if removed, err := authenticator.Sweep(); err != nil {
		slog.Warn("sweeping expired sessions", "error", err)
	} else if removed > 0 {
		slog.Info("removed expired sessions", "count", removed)
	}

	profileMgr := profile.NewManager(store)

	appHandler := api.NewAppHandler(api.AppDeps{
		Store:   store,
		Journal: jstore,
		Profile: profileMgr,
		Auth:    authenticator,
	})

	worker := analysis.NewWorker(store, jstore, analysis.NewAnalyzer(time.Now().UnixNano()), cfg.PollInterval())

	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:   store,
		Journal: jstore,
	})

	if err := writePIDFile(cfg.Storage.DataDir); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}
	defer removePIDFile(cfg.Storage.DataDir)

	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port),
		Handler: appHandler,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	g.Go(func() error {
		stdio := server.NewStdioServer(mcpSrv)
		if err := stdio.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp stdio server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	pid, err := readPIDFile(cfg.Storage.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			printWarning("no pid file found — server not running?")
			return nil
		}
		return fmt.Errorf("reading pid file: %w", err)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		removePIDFile(cfg.Storage.DataDir)
		return fmt.Errorf("stopping server (pid %d): %w", pid, err)
	}

	printSuccess("sent stop signal to server (pid %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !serverHealthy(ctx, cfg.Server.Port) {
		printError("server is not running on port %d", cfg.Server.Port)
		return nil
	}

	printSuccess("server is running")
	printStatus("Address", "http://127.0.0.1:%d", cfg.Server.Port)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)

	client, err := newAPIClient()
	if err != nil {
		printWarning("%v", err)
		return nil
	}

	var stats journal.Stats
	resp, err := client.get(ctx, "/journal/stats")
	if err == nil {
		if err := decodeJSON(resp, &stats); err == nil {
			printStatus("Journal entries", "%d", stats.Total)
		}
	}

	var analyses []json.RawMessage
	resp, err = client.get(ctx, "/analyses?limit=100")
	if err == nil {
		if err := decodeJSON(resp, &analyses); err == nil {
			printStatus("Recent analyses", "%d", len(analyses))
		}
	}

	return nil
}

func serverHealthy(ctx context.Context, port int) bool {
	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	req, err := http.NewRequestWithContext(reqCtx, "GET", url, nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
