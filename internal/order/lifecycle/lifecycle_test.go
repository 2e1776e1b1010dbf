package lifecycle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mon-resto/internal/order/domain/models"
	"mon-resto/internal/order/lifecycle"
)

func TestNextLegalChain(t *testing.T) {
	t.Parallel()

	// The happy path from checkout to the table.
	steps := []struct {
		cmd  lifecycle.Command
		want models.Status
	}{
		{lifecycle.CommandConfirm, models.StatusConfirmed},
		{lifecycle.CommandStart, models.StatusPreparing},
		{lifecycle.CommandDone, models.StatusReady},
		{lifecycle.CommandServe, models.StatusDelivered},
	}

	current := models.StatusPending
	for _, step := range steps {
		next, err := lifecycle.Next(current, step.cmd)
		require.NoError(t, err)
		assert.Equal(t, step.want, next)
		current = next
	}
}

func TestNextSkipConfirmation(t *testing.T) {
	t.Parallel()

	// Kitchens may start cooking straight from pending.
	next, err := lifecycle.Next(models.StatusPending, lifecycle.CommandStart)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, next)
}

func TestNextIllegal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		current models.Status
		cmd     lifecycle.Command
	}{
		{"no going back from ready", models.StatusReady, lifecycle.CommandStart},
		{"cannot serve before ready", models.StatusPreparing, lifecycle.CommandServe},
		{"cannot confirm twice", models.StatusConfirmed, lifecycle.CommandConfirm},
		{"delivered is terminal", models.StatusDelivered, lifecycle.CommandStart},
		{"cancelled is terminal", models.StatusCancelled, lifecycle.CommandConfirm},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := lifecycle.Next(tt.current, tt.cmd)
			require.ErrorIs(t, err, models.ErrInvalidTransition)
		})
	}
}

func TestNextCancel(t *testing.T) {
	t.Parallel()

	for _, s := range []models.Status{
		models.StatusPending, models.StatusConfirmed, models.StatusPreparing, models.StatusReady,
	} {
		next, err := lifecycle.Next(s, lifecycle.CommandCancel)
		require.NoError(t, err, string(s))
		assert.Equal(t, models.StatusCancelled, next)
	}

	_, err := lifecycle.Next(models.StatusDelivered, lifecycle.CommandCancel)
	require.ErrorIs(t, err, models.ErrInvalidTransition)
	_, err = lifecycle.Next(models.StatusCancelled, lifecycle.CommandCancel)
	require.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	cmd, err := lifecycle.ParseCommand("serve")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.CommandServe, cmd)

	_, err = lifecycle.ParseCommand("refund")
	require.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestEventMetadata(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	order := models.Order{ID: "ord-1", ServiceType: models.ServiceDineIn}

	ev := lifecycle.Event(order, models.StatusPreparing, 3, at)
	assert.Equal(t, "ord-1", ev.OrderID)
	assert.Equal(t, int64(3), ev.Sequence)
	assert.False(t, ev.Priority)
	require.NotNil(t, ev.EstimatedCompletion)
	assert.Equal(t, at.Add(20*time.Minute), *ev.EstimatedCompletion)

	order.ServiceType = models.ServiceTakeaway
	ev = lifecycle.Event(order, models.StatusPreparing, 3, at)
	require.NotNil(t, ev.EstimatedCompletion)
	assert.Equal(t, at.Add(15*time.Minute), *ev.EstimatedCompletion)

	ev = lifecycle.Event(order, models.StatusReady, 4, at)
	assert.True(t, ev.Priority)
	assert.Nil(t, ev.EstimatedCompletion)

	ev = lifecycle.Event(order, models.StatusDelivered, 5, at)
	assert.False(t, ev.Priority)
	assert.Nil(t, ev.EstimatedCompletion)
}
