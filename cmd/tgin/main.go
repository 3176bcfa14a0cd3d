// Command tgin runs the dispatch engine described by a declarative
// config file.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prilive-com/tgin/adminapi"
	"github.com/prilive-com/tgin/config"
	"github.com/prilive-com/tgin/engine"
	"github.com/prilive-com/tgin/tg"
)

var configFile = flag.String("f", "tgin.json", "path to the declarative config file")

func main() {
	flag.StringVar(configFile, "file", *configFile, "path to the declarative config file (long form of -f)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	os.Exit(run(logger))
}

func run(logger *slog.Logger) int {
	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("tgin: failed to load config", "error", err)
		return exitCode(err)
	}

	built, err := config.Build(cfg, logger)
	if err != nil {
		logger.Error("tgin: failed to build engine", "error", err)
		return exitCode(err)
	}

	engCfg := engine.Config{
		Root:    built.Root,
		Sources: built.Sources,
		Port:    built.Port,
		Logger:  logger,
	}
	if built.TLS != nil {
		engCfg.TLS = &engine.TLSConfig{CertFile: built.TLS.CertFile, KeyFile: built.TLS.KeyFile}
	}

	if built.AdminBasePath != "" {
		control := make(chan engine.ControlMessage, engine.DefaultControlBufferSize)
		admin := adminapi.New(built.AdminBasePath, control, logger)
		engCfg.Admin = admin
		engCfg.AdminBasePath = built.AdminBasePath
		engCfg.ControlChan = control
		engCfg.Fallback = built.Registry.Fallback()
	}

	eng := engine.New(engCfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("tgin: starting", "config", *configFile, "port", portOrNil(built.Port))
	if err := eng.Run(ctx); err != nil {
		logger.Error("tgin: engine exited with error", "error", err)
		return exitCode(err)
	}

	logger.Info("tgin: shut down cleanly")
	return 0
}

func portOrNil(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, tg.ErrConfig):
		return 2
	case errors.Is(err, tg.ErrBind):
		return 3
	default:
		return 1
	}
}
