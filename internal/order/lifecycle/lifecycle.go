// Package lifecycle holds the authoritative order state machine. Everything
// here is pure: validation of a transition and the metadata it produces.
// The repository applies it inside the same transaction that writes the
// status row, so an illegal attempt never partially applies.
package lifecycle

import (
	"fmt"
	"time"

	"mon-resto/internal/order/domain/models"
)

// Command is a staff/admin action against an order.
type Command string

const (
	CommandConfirm Command = "confirm"
	CommandStart   Command = "start"
	CommandDone    Command = "done"
	CommandServe   Command = "serve"
	CommandCancel  Command = "cancel"
)

func ParseCommand(raw string) (Command, error) {
	switch c := Command(raw); c {
	case CommandConfirm, CommandStart, CommandDone, CommandServe, CommandCancel:
		return c, nil
	}
	return "", fmt.Errorf("%w: unknown command %q", models.ErrInvalidTransition, raw)
}

// transitions lists every legal (current status, command) pair. Cancel is
// handled separately: it is legal from any non-terminal status.
var transitions = map[models.Status]map[Command]models.Status{
	models.StatusPending: {
		CommandConfirm: models.StatusConfirmed,
		CommandStart:   models.StatusPreparing,
	},
	models.StatusConfirmed: {
		CommandStart: models.StatusPreparing,
	},
	models.StatusPreparing: {
		CommandDone: models.StatusReady,
	},
	models.StatusReady: {
		CommandServe: models.StatusDelivered,
	},
}

// Next returns the status an order in state current moves to under cmd.
// Returns models.ErrInvalidTransition if the pair is illegal; the caller
// must leave the order untouched in that case.
func Next(current models.Status, cmd Command) (models.Status, error) {
	if cmd == CommandCancel {
		if current.Terminal() {
			return "", fmt.Errorf("%w: cannot cancel %s order", models.ErrInvalidTransition, current)
		}
		return models.StatusCancelled, nil
	}
	next, ok := transitions[current][cmd]
	if !ok {
		return "", fmt.Errorf("%w: %s from %s", models.ErrInvalidTransition, cmd, current)
	}
	return next, nil
}

// Per-service preparation estimates used when an order enters preparing.
var prepTime = map[models.ServiceType]time.Duration{
	models.ServiceDineIn:   20 * time.Minute,
	models.ServiceTakeaway: 15 * time.Minute,
}

// EstimatedCompletion computes the countdown target shown to observers
// while an order is being prepared.
func EstimatedCompletion(startedAt time.Time, serviceType models.ServiceType) time.Time {
	return startedAt.Add(prepTime[serviceType])
}

// Event assembles the StatusEvent published for a committed transition,
// including the side-effect metadata the new status implies.
func Event(order models.Order, newStatus models.Status, seq int64, at time.Time) models.StatusEvent {
	ev := models.StatusEvent{
		OrderID:         order.ID,
		NewStatus:       newStatus,
		ServerTimestamp: at,
		Sequence:        seq,
	}
	switch newStatus {
	case models.StatusPreparing:
		estimate := EstimatedCompletion(at, order.ServiceType)
		ev.EstimatedCompletion = &estimate
	case models.StatusReady:
		ev.Priority = true
	}
	return ev
}
