package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mon-resto/internal/order/domain/models"
)

func TestComputeTotal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		items   []models.LineItem
		want    int64
		wantErr bool
	}{
		{
			name:  "empty order totals zero",
			items: nil,
			want:  0,
		},
		{
			name: "single item",
			items: []models.LineItem{
				{MenuItemID: "margherita", Quantity: 2, UnitPrice: 950},
			},
			want: 1900,
		},
		{
			name: "mixed items",
			items: []models.LineItem{
				{MenuItemID: "burger", Quantity: 1, UnitPrice: 1200},
				{MenuItemID: "fries", Quantity: 2, UnitPrice: 350},
				{MenuItemID: "cola", Quantity: 3, UnitPrice: 200},
			},
			want: 2500,
		},
		{
			name: "zero quantity rejected",
			items: []models.LineItem{
				{MenuItemID: "burger", Quantity: 0, UnitPrice: 1200},
			},
			wantErr: true,
		},
		{
			name: "negative price rejected",
			items: []models.LineItem{
				{MenuItemID: "burger", Quantity: 1, UnitPrice: -5},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := models.ComputeTotal(tt.items)
			if tt.wantErr {
				require.ErrorIs(t, err, models.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeTotalOrderIndependent(t *testing.T) {
	t.Parallel()

	items := []models.LineItem{
		{MenuItemID: "a", Quantity: 1, UnitPrice: 1200},
		{MenuItemID: "b", Quantity: 2, UnitPrice: 350},
		{MenuItemID: "c", Quantity: 3, UnitPrice: 200},
	}
	reversed := []models.LineItem{items[2], items[1], items[0]}

	forward, err := models.ComputeTotal(items)
	require.NoError(t, err)
	backward, err := models.ComputeTotal(reversed)
	require.NoError(t, err)

	assert.Equal(t, forward, backward)
}

func TestElapsedMinutes(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, models.ElapsedMinutes(now, now))
	assert.Equal(t, 0, models.ElapsedMinutes(now, now.Add(59*time.Second)))
	assert.Equal(t, 12, models.ElapsedMinutes(now.Add(-12*time.Minute), now))
	// Clock skew between client and server must never render negative.
	assert.Equal(t, 0, models.ElapsedMinutes(now.Add(2*time.Minute), now))
}

func TestLoyaltyPoints(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, models.LoyaltyPoints(0))
	assert.Equal(t, 0, models.LoyaltyPoints(999))
	assert.Equal(t, 1, models.LoyaltyPoints(1000))
	assert.Equal(t, 2, models.LoyaltyPoints(2500))
	assert.Equal(t, 0, models.LoyaltyPoints(-500))
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    models.Status
		wantErr bool
	}{
		{raw: "pending", want: models.StatusPending},
		{raw: "delivered", want: models.StatusDelivered},
		{raw: "en_attente", want: models.StatusPending},
		{raw: "confirmee", want: models.StatusConfirmed},
		{raw: "en_cours", want: models.StatusPreparing},
		{raw: "pretee", want: models.StatusReady},
		{raw: "servie", want: models.StatusDelivered},
		{raw: "annulee", want: models.StatusCancelled},
		{raw: "shipped", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			got, err := models.ParseStatus(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, models.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, models.StatusDelivered.Terminal())
	assert.True(t, models.StatusCancelled.Terminal())

	for _, s := range []models.Status{
		models.StatusPending, models.StatusConfirmed, models.StatusPreparing, models.StatusReady,
	} {
		assert.False(t, s.Terminal(), string(s))
	}
}

func TestParseServiceType(t *testing.T) {
	t.Parallel()

	got, err := models.ParseServiceType("sur_place")
	require.NoError(t, err)
	assert.Equal(t, models.ServiceDineIn, got)

	got, err = models.ParseServiceType("takeaway")
	require.NoError(t, err)
	assert.Equal(t, models.ServiceTakeaway, got)

	_, err = models.ParseServiceType("drive_through")
	require.ErrorIs(t, err, models.ErrValidation)
}
