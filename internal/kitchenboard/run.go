// Package kitchenboard is the staff-facing console: a live board of every
// active order, driven by pushed status events, accepting lifecycle
// commands from stdin and reflecting them optimistically.
package kitchenboard

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"mon-resto/internal/mylogger"
	"mon-resto/internal/observer/api"
	"mon-resto/internal/observer/push"
	"mon-resto/internal/observer/store"
	"mon-resto/internal/order/domain/dto"
	"mon-resto/internal/order/domain/models"
	"mon-resto/internal/order/lifecycle"
	"mon-resto/internal/xpkg/config"
	xerrors "mon-resto/internal/xpkg/errors"
)

// Execute starts the kitchen board: snapshot of active orders, all-orders
// push subscription, and a command loop for staff transitions.
func Execute(ctx context.Context, mylog mylogger.Logger, args []string) error {
	newCtx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fs := flag.NewFlagSet("kitchen-board", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	actor := fs.String("actor", "kitchen", "Actor recorded in the status history")
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

	board := &Board{
		client: api.NewClient(cfg.OrderServiceURL, *actor),
		out:    os.Stdout,
		mylog:  mylog,
	}
	board.store = store.New(mylog)
	defer board.store.Close()

	unsubscribe := board.store.Subscribe("", board.render)
	defer unsubscribe()

	board.loadSnapshot(newCtx)

	pushClient := push.New(push.Config{
		GatewayURL:   cfg.GatewayURL,
		Filter:       push.Filter{Role: "kitchen"},
		Backoff:      cfg.ReconnectBackoff,
		PingInterval: cfg.PingInterval,
	}, board.store, mylog)
	pushClient.OnStateChange(func(state push.ConnState) {
		board.onPushState(newCtx, state)
	})

	g, gCtx := errgroup.WithContext(newCtx)
	g.Go(func() error {
		return pushClient.Run(gCtx)
	})
	g.Go(func() error {
		return board.commandLoop(gCtx, os.Stdin)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		mylog.Action("kitchen_board_failed").Error("Kitchen board exited with error", err)
		return err
	}
	mylog.Action("graceful_shutdown_completed").Info("Kitchen board shut down gracefully")
	return nil
}

// orderAPI is the slice of the order-service client the board needs.
type orderAPI interface {
	ActiveOrders(ctx context.Context) ([]models.Order, error)
	Status(ctx context.Context, orderID string) (models.StatusEvent, error)
	Transition(ctx context.Context, orderID, command string) (dto.TransitionResponse, error)
}

type Board struct {
	store  *store.Store
	client orderAPI
	out    io.Writer
	mylog  mylogger.Logger
}

// onPushState announces connection changes and refetches the snapshot on
// every reconnect. Orders that reached a terminal status while the push
// channel was down emit no further events, so only a fresh snapshot can
// clear them; the store drops stale entries, so an extra reload is safe.
func (b *Board) onPushState(ctx context.Context, state push.ConnState) {
	fmt.Fprintf(b.out, "-- live updates: %s --\n", state)
	if state != push.StateConnected {
		return
	}
	b.loadSnapshot(ctx)
}

func (b *Board) loadSnapshot(ctx context.Context) {
	orders, err := b.client.ActiveOrders(ctx)
	if err != nil {
		b.store.SetUnavailable()
		b.mylog.Action("snapshot_failed").Warn("Could not fetch active orders", "error", err.Error())
		fmt.Fprintln(b.out, "-- order list unavailable, retrying on reconnect --")
		return
	}
	b.store.LoadSnapshot(orders)
	b.printBoard()
}

// render is the store subscriber: one line per applied change, with a
// distinct cue when an order becomes ready for pickup.
func (b *Board) render(u store.Update) {
	marker := " "
	if u.Optimistic {
		marker = "~"
	}
	if u.Priority {
		fmt.Fprintf(b.out, "\a== READY FOR PICKUP: %s ==\n", u.OrderID)
		return
	}
	line := fmt.Sprintf("%s %s -> %s", marker, u.OrderID, u.Status)
	if u.EstimatedCompletion != nil {
		line += fmt.Sprintf(" (est. %s)", u.EstimatedCompletion.Format("15:04"))
	}
	fmt.Fprintln(b.out, line)
}

func (b *Board) printBoard() {
	orders := b.store.Orders()
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})

	fmt.Fprintf(b.out, "-- %d active orders --\n", len(orders))
	for _, order := range orders {
		fmt.Fprintf(b.out, "  %s  %-10s  %3dm  %s\n",
			order.ID, order.Status, models.ElapsedMinutes(order.CreatedAt, time.Now()), order.TableReference)
	}
}

// commandLoop reads staff commands: "confirm|start|done|serve|cancel
// <order-id>", plus "list" and "quit".
func (b *Board) commandLoop(ctx context.Context, in io.Reader) error {
	// Scanning runs in its own goroutine so a shutdown signal is not stuck
	// behind a blocked stdin read.
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-scanErr:
			if err != nil {
				return err
			}
			return io.EOF
		case line = <-lines:
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "list":
			b.printBoard()
		case "quit", "exit":
			return io.EOF
		default:
			if len(fields) != 2 {
				fmt.Fprintln(b.out, "usage: <confirm|start|done|serve|cancel> <order-id>")
				continue
			}
			b.transition(ctx, fields[0], fields[1])
		}
	}
}

// transition applies the command optimistically and then confirms it with
// the order service. On rejection the confirmed state is restored by
// running the authoritative status through the store.
func (b *Board) transition(ctx context.Context, command, orderID string) {
	cmd, err := lifecycle.ParseCommand(command)
	if err != nil {
		fmt.Fprintf(b.out, "unknown command %q\n", command)
		return
	}

	current, ok := b.store.Order(orderID)
	if !ok {
		fmt.Fprintf(b.out, "unknown order %q\n", orderID)
		return
	}

	next, err := lifecycle.Next(current.Status, cmd)
	if err != nil {
		fmt.Fprintf(b.out, "cannot %s an order that is %s\n", command, current.Status)
		return
	}

	if err := b.store.ApplyOptimistic(orderID, next); err != nil {
		fmt.Fprintf(b.out, "cannot apply %s: %v\n", command, err)
		return
	}

	if _, err := b.client.Transition(ctx, orderID, command); err != nil {
		b.mylog.Action("transition_rejected").Warn("Order service rejected transition", "order_id", orderID, "command", command, "error", err.Error())
		b.rollback(ctx, orderID)
	}
}

func (b *Board) rollback(ctx context.Context, orderID string) {
	event, err := b.client.Status(ctx, orderID)
	if err != nil {
		b.mylog.Action("rollback_failed").Warn("Could not refresh order after rejected transition", "order_id", orderID, "error", err.Error())
		return
	}
	b.store.ApplyEvent(event)
}
