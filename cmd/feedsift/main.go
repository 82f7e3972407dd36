// Command feedsift watches a feed page, classifies every rendered item,
// and optionally unfollows flagged authors from inside the page session.
//
// Usage:
//
//	feedsift -config feedsift.yaml          # full pipeline from YAML config
//	feedsift -url https://www.linkedin.com/feed/   # quick start, stdout sink
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/feedsift/feedsift/action"
	"github.com/feedsift/feedsift/connectivity"
	"github.com/feedsift/feedsift/control"
	"github.com/feedsift/feedsift/feedwatch"
	"github.com/feedsift/feedsift/internal/dbopen"
	"github.com/feedsift/feedsift/store"
)

const version = "1.12.6741"

func main() {
	configPath := flag.String("config", "", "path to feedsift.yaml config file")
	singleURL := flag.String("url", "", "observe a single feed URL (stdout sink)")
	addr := flag.String("addr", env("FEEDSIFT_ADDR", ":8470"), "control API listen address")
	dbPath := flag.String("db", env("FEEDSIFT_DB", "feedsift.db"), "path to the SQLite database")
	mcpStdio := flag.Bool("mcp", false, "serve MCP tools on stdio")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(*configPath, *singleURL)
	if err != nil {
		logger.Error("feedsift: config", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, logger, cfg, *addr, *dbPath, *mcpStdio); err != nil {
		logger.Error("feedsift: fatal", "error", err)
		os.Exit(1)
	}
}

func loadConfig(configPath, singleURL string) (*feedwatch.Config, error) {
	if configPath != "" {
		return feedwatch.LoadConfigFile(configPath)
	}
	if singleURL != "" {
		cfg := feedwatch.DefaultConfig()
		cfg.Feed.URL = singleURL
		cfg.Sinks = []feedwatch.SinkConfig{{Type: "stdout"}}
		return cfg, nil
	}
	return nil, fmt.Errorf("usage: feedsift -config <file> | -url <url>")
}

func run(ctx context.Context, logger *slog.Logger, cfg *feedwatch.Config, addr, dbPath string, mcpStdio bool) error {
	// One SQLite file carries both the settings/counters and the
	// connectivity routes.
	db, err := dbopen.Open(dbPath, dbopen.WithBusyTimeout(5000))
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	stats, err := store.New(db)
	if err != nil {
		return fmt.Errorf("init settings store: %w", err)
	}
	if err := connectivity.Init(db); err != nil {
		return fmt.Errorf("init routes: %w", err)
	}

	router := connectivity.New(connectivity.WithLogger(logger))
	router.RegisterTransport("http", connectivity.HTTPFactory())

	sinks, err := feedwatch.BuildSinks(cfg.Sinks, logger)
	if err != nil {
		return err
	}
	defer sinks.Close()

	dispatcher, err := action.NewDispatcher(cfg.Classify.ProfilePattern, router, logger)
	if err != nil {
		return err
	}

	watcher, err := feedwatch.NewWatcher(feedwatch.Options{
		Config:     cfg,
		Stats:      stats,
		Dispatcher: dispatcher,
		Sinks:      sinks,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	// Privileged action side. The unfollow handler evaluates inside the
	// watcher's current tab, gets panic isolation and call logging via
	// middleware.
	unfollow := action.NewUnfollowHandler(&watcherPage{w: watcher}, stats, logger)
	mw := connectivity.Chain(connectivity.Recovery(logger), connectivity.Logging(logger))
	router.RegisterLocal("unfollow", mw(unfollow.Handle))
	router.RegisterLocal("ping", func(ctx context.Context, payload []byte) ([]byte, error) {
		return []byte(`{"success":true,"version":"` + version + `"}`), nil
	})
	watcher.RegisterHandlers(router)

	go router.Watch(ctx, db, time.Second)
	defer router.Close()

	channel := connectivity.NewChannel(router, connectivity.WithChannelLogger(logger))
	if err := channel.Connect(ctx); err != nil {
		return fmt.Errorf("channel handshake: %w", err)
	}

	console := control.NewConsole()
	ctrl, err := control.NewServer(control.ServerOptions{
		Stats:   stats,
		Channel: channel,
		Admin:   connectivity.NewAdmin(db),
		Console: console,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	ctrl.RegisterHandlers(router)

	if mcpStdio {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "feedsift",
			Version: version,
		}, nil)
		ctrl.RegisterMCP(mcpSrv)
		go func() {
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				logger.Error("mcp stdio", "error", err)
			}
		}()
	}

	httpSrv := &http.Server{Addr: addr, Handler: ctrl.Handler()}
	go func() {
		logger.Info("control API listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("control API", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	return nil
}

// watcherPage resolves the watcher's current tab on every call, so the
// unfollow handler survives browser recycles.
type watcherPage struct {
	w *feedwatch.Watcher
}

func (p *watcherPage) Eval(ctx context.Context, js string, args ...any) (*proto.RuntimeRemoteObject, error) {
	tab := p.w.Tab()
	if tab == nil {
		return nil, fmt.Errorf("feedsift: no active feed tab")
	}
	return tab.Eval(ctx, js, args...)
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
