package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/erazemk/stockboard/internal/api"
	"github.com/erazemk/stockboard/internal/auth"
	"github.com/erazemk/stockboard/internal/backend"
	"github.com/erazemk/stockboard/internal/config"
	"github.com/erazemk/stockboard/internal/db"
	"github.com/erazemk/stockboard/internal/session"
	"github.com/erazemk/stockboard/internal/store"
	"github.com/erazemk/stockboard/internal/view"
	"github.com/erazemk/stockboard/internal/web"
)

func newBackend(cfg *config.Config) (*backend.Client, error) {
	return backend.New(backend.Options{
		BaseURL:       cfg.APIURL,
		Timeout:       cfg.APITimeout,
		ProfilePath:   cfg.ProfilePath,
		InventoryPath: cfg.InventoryPath,
	})
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	closeLog, err := setupLogger(cfg.LogPath)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	slog.Info("database ready", "path", cfg.DBPath)

	cookieSecret, err := store.GetSecret(ctx, database, store.SecretCookie)
	if err != nil {
		return fmt.Errorf("loading cookie secret: %w", err)
	}

	client, err := newBackend(cfg)
	if err != nil {
		return err
	}

	sessions, err := session.NewManager(ctx, database)
	if err != nil {
		return fmt.Errorf("setting up sessions: %w", err)
	}
	views := view.NewRegistry()

	webServer, err := web.NewServer(database, client, sessions, views, cookieSecret, web.Options{
		LowStockThreshold: cfg.LowStockThreshold,
		PageSize:          cfg.PageSize,
		LoginRate:         cfg.LoginRate,
	})
	if err != nil {
		return fmt.Errorf("setting up web server: %w", err)
	}

	// API routes take priority, web routes handle the rest.
	mux := http.NewServeMux()
	mux.Handle("/api/", api.NewRouter(client, sessions, cookieSecret))
	mux.Handle("/", webServer.Router())

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Pages wait on the loading placeholder until stored sessions are restored.
	go func() {
		if err := sessions.Init(ctx, auth.CookieExpiry); err != nil {
			slog.Error("failed to restore sessions", "error", err)
		}
	}()
	go sweep(ctx, sessions, views)

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr, "api_url", cfg.APIURL)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}

// sweep periodically drops expired sessions and the views of idle ones.
func sweep(ctx context.Context, sessions *session.Manager, views *view.Registry) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dropped, err := sessions.Cleanup(ctx, auth.CookieExpiry)
			if err != nil {
				slog.Error("failed to clean up sessions", "error", err)
			}
			for _, id := range dropped {
				views.Drop(id)
			}
			if n := views.Sweep(auth.CookieExpiry); n > 0 || len(dropped) > 0 {
				slog.Info("swept idle state", "sessions", len(dropped), "views", n)
			}
		}
	}
}

func ping(c *cli.Context) error {
	cfg, err := config.Load(c.String("env"))
	if err != nil {
		return err
	}
	if c.IsSet("api-url") {
		cfg.APIURL = c.String("api-url")
	}

	client, err := newBackend(cfg)
	if err != nil {
		return err
	}

	if !client.Health(c.Context) {
		return fmt.Errorf("API at %s is not reachable", client.BaseURL())
	}
	fmt.Fprintf(os.Stdout, "API at %s is up\n", client.BaseURL())
	return nil
}
