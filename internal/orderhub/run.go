// Package orderhub is the order-hub service: order intake, the per-item
// fulfillment state machine, credential resolution and real-time fan-out.
package orderhub

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"tableflow/internal/orderhub/api/http"
	"tableflow/internal/orderhub/app/core"
	"tableflow/internal/xpkg/config"
	"tableflow/internal/xpkg/logger"
)

type params struct {
	hubParams  *core.HubParams
	configPath string
	cfg        *config.Config
}

// Execute starts the order-hub service and blocks until shutdown.
func Execute(ctx context.Context, mylog logger.Logger, args []string) error {
	newCtx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	params, err := parseParams(args)
	if err != nil {
		if !errors.Is(err, core.ErrHelp) {
			mylog.Action("command_parse_failed").Error("invalid command received", err)
		}
		return err
	}
	if err = validateParams(params); err != nil {
		mylog.Action("command_validation_failed").Error("invalid command received", err)
		return err
	}

	server := http.NewServer(newCtx, context.Background(), params.cfg, params.hubParams, mylog)

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- server.Run()
	}()

	select {
	case <-newCtx.Done():
		mylog.Action("shutdown_signal_received").Info("shutdown signal received")
		return server.Stop(context.Background())
	case err := <-runErrCh:
		if err != nil {
			mylog.Action("order_hub_failed").Error("server failed unexpectedly", err)
			return err
		}
		mylog.Action("server_stopped").Info("server exited normally")
		return nil
	}
}

func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("order-hub", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")
	port := fs.Int("port", 0, "Port to run the order hub (overrides config)")

	if err := fs.Parse(args); err != nil {
		return nil, errors.New("cannot parse arguments")
	}

	if *showHelp {
		fs.Usage()
		return nil, core.ErrHelp
	}

	return &params{
		hubParams:  &core.HubParams{Port: *port, ConfigPath: *configPath},
		configPath: *configPath,
	}, nil
}

func validateParams(params *params) error {
	cfg, err := config.LoadConfig(params.configPath)
	if err != nil {
		return err
	}
	params.cfg = cfg

	if params.hubParams.Port == 0 {
		params.hubParams.Port = cfg.HTTP.Port
	}
	if params.hubParams.Port <= 0 || params.hubParams.Port >= 65536 {
		return fmt.Errorf("port must be in [1: 65,535]: %d", params.hubParams.Port)
	}

	switch cfg.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must be set")
	}
	return nil
}
