package gateway

import (
	"context"
	"errors"
	"flag"
	"os/signal"
	"syscall"

	"mon-resto/internal/gateway/hub"
	"mon-resto/internal/metrics"
	"mon-resto/internal/mylogger"
	"mon-resto/internal/xpkg/config"
	xerrors "mon-resto/internal/xpkg/errors"

	"golang.org/x/sync/errgroup"
)

// Execute starts the realtime gateway: one AMQP consumer pumping the
// status fanout into the hub, one WebSocket server pushing to observers.
func Execute(ctx context.Context, mylog mylogger.Logger, args []string) error {
	newCtx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fs := flag.NewFlagSet("realtime-gateway", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	port := fs.Int("port", 0, "Port to run the gateway (overrides env)")
	if err := fs.Parse(args); err != nil {
		return xerrors.ErrParseCmd
	}
	if *showHelp {
		fs.Usage()
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		mylog.Action("config_load_failed").Error("Invalid configuration", err)
		return err
	}
	if *port != 0 {
		cfg.GatewayPort = *port
	}

	metrics.Init()

	h := hub.New(mylog)

	consumer, err := NewConsumer(cfg.RMQ, h, mylog)
	if err != nil {
		mylog.Action("mb_connection_failed").Error("Failed to connect to message broker", err)
		return err
	}
	mylog.Action("mb_connected").Info("Successful message broker connection")

	server := NewServer(newCtx, cfg, h, mylog)

	g, gCtx := errgroup.WithContext(newCtx)
	g.Go(func() error {
		return consumer.Run(gCtx)
	})
	g.Go(func() error {
		return server.Run()
	})

	err = g.Wait()

	if stopErr := server.Stop(context.Background()); stopErr != nil {
		mylog.Action("gateway_shutdown_failed").Error("Failed to stop websocket server", stopErr)
	}
	if closeErr := consumer.Close(); closeErr != nil {
		mylog.Action("mb_close_failed").Error("Failed to close message broker", closeErr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		mylog.Action("gateway_failed").Error("Gateway exited with error", err)
		return err
	}
	mylog.Action("graceful_shutdown_completed").Info("Gateway shut down gracefully")
	return nil
}
