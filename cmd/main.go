package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"mon-resto/internal/gateway"
	"mon-resto/internal/kitchenboard"
	"mon-resto/internal/mylogger"
	"mon-resto/internal/order"
	"mon-resto/internal/tracker"
)

const usage = `Usage: mon-resto --mode=<service> [flags]

Services:
  order-service     checkout, lifecycle transitions, pull-mode status
  realtime-gateway  websocket push of status events
  kitchen-board     staff console over all active orders
  customer-tracker  customer console for a single order
`

func main() {
	mode, args := parseMode(os.Args[1:])
	mylog := mylogger.New(mode)

	var err error
	switch mode {
	case "order-service":
		err = order.Execute(context.Background(), mylog, args)
	case "realtime-gateway":
		err = gateway.Execute(context.Background(), mylog, args)
	case "kitchen-board":
		err = kitchenboard.Execute(context.Background(), mylog, args)
	case "customer-tracker":
		err = tracker.Execute(context.Background(), mylog, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if err != nil {
		os.Exit(1)
	}
}

// parseMode accepts both "--mode=x" and "--mode x", leaving the rest of
// the arguments for the service's own flag set.
func parseMode(args []string) (string, []string) {
	for i, arg := range args {
		trimmed := strings.TrimLeft(arg, "-")
		switch {
		case trimmed == "mode":
			if i+1 < len(args) {
				rest := append(append([]string{}, args[:i]...), args[i+2:]...)
				return args[i+1], rest
			}
			return "", nil
		case strings.HasPrefix(trimmed, "mode="):
			rest := append(append([]string{}, args[:i]...), args[i+1:]...)
			return strings.TrimPrefix(trimmed, "mode="), rest
		}
	}
	return "", args
}
