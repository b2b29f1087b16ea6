// Command sessionmuxd serves the session multiplexing endpoint with a small
// built-in development service. It exists to run the transport standalone:
// point a client at the configured path, initialize a session, and exercise
// calls, notifications, and the resumable push stream.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ggoodman/sessionmux/auth"
	"github.com/ggoodman/sessionmux/eventlog/memory"
	"github.com/ggoodman/sessionmux/sessions"
	"github.com/ggoodman/sessionmux/streaminghttp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	lvl, err := cfg.slogLevel()
	if err != nil {
		return err
	}
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var authenticator auth.Authenticator
	if cfg.Auth.Issuer != "" {
		authenticator, err = auth.NewFromDiscovery(ctx, cfg.Auth.Issuer, cfg.Auth.Audience)
		if err != nil {
			return fmt.Errorf("configure authenticator: %w", err)
		}
		log.Info("auth.enabled", slog.String("issuer", cfg.Auth.Issuer))
	}

	registry := sessions.NewRegistry(sessions.WithLogger(log))
	store := memory.New()

	h, err := streaminghttp.New(cfg.Path, registry, store, devService{}, authenticator,
		streaminghttp.WithLogger(log))
	if err != nil {
		return fmt.Errorf("construct handler: %w", err)
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		if cfg.RequireListen {
			return fmt.Errorf("bind %s: %w", cfg.Listen, err)
		}
		log.Warn("listen.fallback",
			slog.String("addr", cfg.Listen),
			slog.String("err", err.Error()))
		ln, err = net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("bind fallback: %w", err)
		}
	}
	log.Info("listen.ok",
		slog.String("addr", ln.Addr().String()),
		slog.String("path", cfg.Path))

	srv := &http.Server{Handler: h}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	stop()

	log.Info("shutdown.start")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Close sessions first: open push streams block in their handlers until
	// the session closes, and Shutdown waits for handlers to return.
	// Per-session failures are reported by the coordinator; shutdown still
	// completes successfully.
	registry.CloseAll(shutdownCtx, cfg.ShutdownGrace.Duration)

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Warn("shutdown.http.fail", slog.String("err", err.Error()))
	}

	log.Info("shutdown.done")
	return nil
}
