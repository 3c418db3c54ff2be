// Package app wires configuration, logging and the HTTP server into a
// runnable service.
package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	api "casaluna/internal/api/http"
	"casaluna/internal/xpkg/config"
	"casaluna/internal/xpkg/logger"
)

type Params struct {
	ConfigPath string
	Port       int
}

// Execute runs the service until a shutdown signal arrives or the server
// fails.
func Execute(ctx context.Context, mylog logger.Logger, params Params) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(params.ConfigPath)
	if err != nil {
		mylog.Action("config_load_failed").Error("Invalid configuration", err)
		return err
	}
	if params.Port != 0 {
		cfg.Server.Port = params.Port
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port >= 65536 {
		return fmt.Errorf("port must be in [1, 65535]: %d", cfg.Server.Port)
	}
	mylog.Action("config_loaded").Info("Configuration loaded", "port", cfg.Server.Port)

	server := api.NewServer(cfg, mylog)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		mylog.Action("shutdown_signal_received").Info("Shutdown signal received")
		return server.Stop(context.Background())
	})

	if err := g.Wait(); err != nil {
		mylog.Action("server_failed").Error("Server failed unexpectedly", err)
		return err
	}
	mylog.Action("server_stopped").Info("Server exited normally")
	return nil
}
