package order

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"mon-resto/internal/metrics"
	"mon-resto/internal/mylogger"
	"mon-resto/internal/order/api/http"
	"mon-resto/internal/order/app/core"
	"mon-resto/internal/xpkg/config"
)

type params struct {
	orderParams *core.OrderParams
	cfg         *config.Config
}

// Execute starts the order service: checkout, lifecycle transitions,
// pull-mode status queries and the rating trigger.
func Execute(ctx context.Context, mylog mylogger.Logger, args []string) error {
	newCtx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	params, err := parseParams(args)
	if err != nil {
		if errors.Is(err, core.ErrHelp) {
			return nil
		}
		mylog.Action("command_parse_failed").Error("Invalid command received", err)
		return err
	}

	metrics.Init()

	server := http.NewServer(newCtx, context.Background(), params.cfg, params.orderParams, mylog)

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- server.Run()
	}()

	select {
	case <-newCtx.Done():
		mylog.Action("shutdown_signal_received").Info("Shutdown signal received")
		return server.Stop(context.Background())
	case err := <-runErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			mylog.Action("order_service_failed").Error("Server failed unexpectedly", err)
			return err
		}
		mylog.Action("server_stopped").Info("Server exited normally")
		return nil
	}
}

func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("order-service", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	port := fs.Int("port", 0, "Port to run the order service (overrides env)")

	if err := fs.Parse(args); err != nil {
		return nil, errors.New("cannot parse arguments")
	}
	if *showHelp {
		fs.Usage()
		return nil, core.ErrHelp
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if *port != 0 {
		cfg.OrderServicePort = *port
	}
	if cfg.OrderServicePort <= 0 || cfg.OrderServicePort >= 65536 {
		return nil, fmt.Errorf("port must be in [1: 65,535]: %d", cfg.OrderServicePort)
	}

	return &params{
		orderParams: &core.OrderParams{Port: cfg.OrderServicePort},
		cfg:         cfg,
	}, nil
}
