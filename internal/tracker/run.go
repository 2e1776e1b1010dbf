// Package tracker is the customer-facing console: it follows a single
// order through its lifecycle over push with a polling fallback, and
// prompts for a rating once the order has been served.
package tracker

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"mon-resto/internal/mylogger"
	"mon-resto/internal/observer/api"
	"mon-resto/internal/observer/pull"
	"mon-resto/internal/observer/push"
	"mon-resto/internal/observer/store"
	"mon-resto/internal/order/domain/models"
	"mon-resto/internal/xpkg/config"
	xerrors "mon-resto/internal/xpkg/errors"
)

var statusLines = map[models.Status]string{
	models.StatusPending:   "Order received, waiting for confirmation",
	models.StatusConfirmed: "Order confirmed by the kitchen",
	models.StatusPreparing: "Your order is being prepared",
	models.StatusReady:     "Your order is ready",
	models.StatusDelivered: "Enjoy your meal!",
	models.StatusCancelled: "Order cancelled",
}

// Execute starts the customer tracker for one order. Push is the primary
// channel; polling fills in whenever the gateway is unreachable.
func Execute(ctx context.Context, mylog mylogger.Logger, args []string) error {
	newCtx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fs := flag.NewFlagSet("customer-tracker", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	orderID := fs.String("order", "", "Order ID to track (required)")
	if err := fs.Parse(args); err != nil {
		return xerrors.ErrParseCmd
	}
	if *showHelp {
		fs.Usage()
		return nil
	}
	if *orderID == "" {
		fs.Usage()
		return errors.New("the -order flag is required")
	}

	cfg, err := config.Load()
	if err != nil {
		mylog.Action("config_load_failed").Error("Invalid configuration", err)
		return err
	}

	t := &Tracker{
		orderID: *orderID,
		client:  api.NewClient(cfg.OrderServiceURL, "customer"),
		out:     os.Stdout,
		in:      os.Stdin,
		mylog:   mylog,
	}
	t.store = store.New(mylog, store.WithRatingPrompt(cfg.RatingPromptDelay, func(id string) {
		t.promptRating(newCtx, id)
	}))
	defer t.store.Close()

	unsubscribe := t.store.Subscribe(*orderID, t.render)
	defer unsubscribe()

	if err := t.loadSnapshot(newCtx); err != nil {
		return err
	}

	pushClient := push.New(push.Config{
		GatewayURL:   cfg.GatewayURL,
		Filter:       push.Filter{OrderID: *orderID, Role: "customer"},
		Backoff:      cfg.ReconnectBackoff,
		PingInterval: cfg.PingInterval,
	}, t.store, mylog)
	pushClient.OnStateChange(func(state push.ConnState) {
		if state != push.StateConnected {
			fmt.Fprintln(t.out, "(live updates paused, falling back to polling)")
		}
	})

	poller := pull.New(*orderID, cfg.PollInterval, t.client, t.store, mylog)
	poller.PauseWhen(func() bool {
		return pushClient.State() == push.StateConnected
	})

	g, gCtx := errgroup.WithContext(newCtx)
	g.Go(func() error {
		return pushClient.Run(gCtx)
	})
	g.Go(func() error {
		if err := poller.Run(gCtx); err != nil {
			return err
		}
		// Terminal status reached. Keep the process alive so the rating
		// prompt can still fire; the signal context ends it.
		<-gCtx.Done()
		return gCtx.Err()
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		mylog.Action("tracker_failed").Error("Tracker exited with error", err)
		return err
	}
	mylog.Action("graceful_shutdown_completed").Info("Tracker shut down gracefully")
	return nil
}

type Tracker struct {
	orderID string
	store   *store.Store
	client  *api.Client
	out     io.Writer
	in      io.Reader
	mylog   mylogger.Logger

	mu    sync.Mutex
	rated bool
}

func (t *Tracker) loadSnapshot(ctx context.Context) error {
	order, err := t.client.Order(ctx, t.orderID)
	if err != nil {
		if errors.Is(err, api.ErrOrderNotFound) {
			return fmt.Errorf("no such order: %s", t.orderID)
		}
		// The service may come back; start unavailable and let polling
		// recover.
		t.store.SetUnavailable()
		t.mylog.Action("snapshot_failed").Warn("Could not fetch order, polling will retry", "order_id", t.orderID, "error", err.Error())
		fmt.Fprintln(t.out, "(order status unavailable, retrying)")
		return nil
	}

	t.store.LoadSnapshot([]models.Order{order})
	return nil
}

func (t *Tracker) render(u store.Update) {
	line, ok := statusLines[u.Status]
	if !ok {
		line = string(u.Status)
	}
	if u.EstimatedCompletion != nil {
		line += fmt.Sprintf(" (ready around %s)", u.EstimatedCompletion.Format("15:04"))
	}
	fmt.Fprintln(t.out, line)
}

// promptRating runs once per order, some time after delivery, and reads a
// 1-5 score from the terminal.
func (t *Tracker) promptRating(ctx context.Context, orderID string) {
	t.mu.Lock()
	if t.rated {
		t.mu.Unlock()
		return
	}
	t.rated = true
	t.mu.Unlock()

	fmt.Fprintln(t.out, "How was your meal? Rate it 1-5 (enter to skip):")

	scanner := bufio.NewScanner(t.in)
	if !scanner.Scan() {
		return
	}
	raw := strings.TrimSpace(scanner.Text())
	if raw == "" {
		fmt.Fprintln(t.out, "Maybe next time!")
		return
	}

	score, err := strconv.Atoi(raw)
	if err != nil || score < 1 || score > 5 {
		fmt.Fprintln(t.out, "Expected a score between 1 and 5.")
		return
	}

	if err := t.client.SubmitRating(ctx, orderID, score, ""); err != nil {
		t.mylog.Action("rating_submit_failed").Warn("Could not submit rating", "order_id", orderID, "error", err.Error())
		fmt.Fprintln(t.out, "Could not send your rating, sorry.")
		return
	}
	fmt.Fprintln(t.out, "Thanks for the feedback!")
}
