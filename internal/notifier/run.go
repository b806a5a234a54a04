// Package notifier is the notification-subscriber service: it binds to the
// order_events exchange and prints status updates as they are committed by
// the order hub.
package notifier

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"tableflow/internal/notifier/subscriber"
	"tableflow/internal/orderhub/app/core"
	"tableflow/internal/xpkg/config"
	"tableflow/internal/xpkg/logger"
	"tableflow/internal/xpkg/rabbitmq"
)

type params struct {
	configPath string
	patterns   []string
	name       string
	cfg        *config.Config
}

// Execute starts the notification subscriber and blocks until shutdown.
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

	rmq, err := rabbitmq.Connect(newCtx, params.cfg.RMQ, mylog)
	if err != nil {
		mylog.Action("mb_connection_failed").Error("failed to connect to message broker", err)
		return err
	}
	defer rmq.Close()
	mylog.Action("mb_connected").Info("successful message broker connection")

	// One consumer per watched station, all bound to the same exchange.
	g, gctx := errgroup.WithContext(newCtx)
	for i, pattern := range params.patterns {
		sub := subscriber.New(rmq, pattern, fmt.Sprintf("%s-%d", params.name, i), mylog)
		g.Go(func() error { return sub.Run(gctx) })
	}
	if err := g.Wait(); err != nil {
		mylog.Action("subscriber_failed").Error("notification subscriber stopped with error", err)
		return err
	}
	return nil
}

func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("notification-subscriber", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")
	restaurant := fs.String("restaurant", "*", "restaurant ID to watch")
	stations := fs.String("stations", "*", "comma-separated kitchen stations to watch")
	name := fs.String("name", "notification-subscriber", "consumer name")

	if err := fs.Parse(args); err != nil {
		return nil, errors.New("cannot parse arguments")
	}

	if *showHelp {
		fs.Usage()
		return nil, core.ErrHelp
	}

	var patterns []string
	for _, station := range strings.Split(*stations, ",") {
		station = strings.TrimSpace(station)
		if station == "" {
			continue
		}
		patterns = append(patterns, fmt.Sprintf("order.%s.%s.*", *restaurant, station))
	}
	if len(patterns) == 0 {
		return nil, errors.New("at least one station is required")
	}

	return &params{
		configPath: *configPath,
		patterns:   patterns,
		name:       *name,
	}, nil
}

func validateParams(params *params) error {
	cfg, err := config.LoadConfig(params.configPath)
	if err != nil {
		return err
	}
	params.cfg = cfg
	return nil
}
