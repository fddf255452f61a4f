package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kauri-off/voxelproxy/internal/config"
	"github.com/kauri-off/voxelproxy/internal/proxy"
)

const ConfigPath = "config/voxelproxy.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	upstream := flag.String("upstream", "", "upstream server address (host[:port]); overrides config")
	flag.Parse()

	cfgPath := ConfigPath
	if p := os.Getenv("VOXELPROXY_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *upstream != "" {
		cfg.UpstreamAddress = *upstream
	}
	if cfg.UpstreamAddress == "" {
		return fmt.Errorf("no upstream address configured: set upstream_address in %s or pass -upstream", cfgPath)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	})))

	slog.Info("voxelproxy starting", "upstream", cfg.UpstreamAddress, "listen", cfg.ListenAddr())

	server := proxy.NewServer(cfg, slog.Default())
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("running proxy: %w", err)
	}
	return nil
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
