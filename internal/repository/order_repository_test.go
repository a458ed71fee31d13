package repository

import (
	"context"
	"testing"
	"time"

	"ochre-shop/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestOrder(t *testing.T, f *fixture, s *seeded, total string) *model.Order {
	t.Helper()
	ctx := context.Background()

	order := &model.Order{
		UUID:     uuid.New(),
		UserID:   s.userID,
		Status:   model.OrderStatusCreated,
		Subtotal: decimal.RequireFromString(total),
		TaxTotal: decimal.Zero,
		Total:    decimal.RequireFromString(total),
		Currency: "INR",
	}

	tx, err := f.orders.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, f.orders.CreateOrder(ctx, tx, order))

	soapID := s.soap.ID
	items := []model.OrderItem{
		{OrderID: order.ID, ProductID: &soapID, Title: "Neem Soap", Quantity: 2,
			UnitPrice: decimal.RequireFromString("120.00"), TaxPercent: decimal.NewFromInt(18)},
	}
	require.NoError(t, f.orders.CreateOrderItems(ctx, tx, items))
	require.NoError(t, tx.Commit(ctx))
	return order
}

func TestOrderRepository_BeginTx(t *testing.T) {
	f := setupRepos(t)
	ctx := context.Background()

	tx, err := f.orders.BeginTx(ctx)

	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.NoError(t, tx.Rollback(ctx))
}

func TestOrderRepository(t *testing.T) {
	f := setupRepos(t)
	ctx := context.Background()

	t.Run("CreateOrder and items round trip", func(t *testing.T) {
		s := seed(t, f)
		order := createTestOrder(t, f, s, "240.00")

		assert.NotZero(t, order.ID)
		assert.WithinDuration(t, time.Now(), order.CreatedAt, time.Minute)

		got, err := f.orders.GetByUUID(ctx, order.UUID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusCreated, got.Status)
		assert.Equal(t, "240", got.Total.String())
		assert.False(t, got.HasGatewayOrder())

		items, err := f.orders.Items(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Neem Soap", items[0].Title)
		assert.Equal(t, 2, items[0].Quantity)
	})

	t.Run("Rollback discards the order", func(t *testing.T) {
		s := seed(t, f)

		tx, err := f.orders.BeginTx(ctx)
		require.NoError(t, err)
		order := &model.Order{UUID: uuid.New(), UserID: s.userID, Status: model.OrderStatusCreated, Currency: "INR"}
		require.NoError(t, f.orders.CreateOrder(ctx, tx, order))
		require.NoError(t, tx.Rollback(ctx))

		_, err = f.orders.GetByUUID(ctx, order.UUID)
		assert.ErrorIs(t, err, model.ErrOrderNotFound)
	})

	t.Run("FindReusable matches status, user and total", func(t *testing.T) {
		s := seed(t, f)
		order := createTestOrder(t, f, s, "240.00")

		found, err := f.orders.FindReusable(ctx, s.userID, decimal.RequireFromString("240"))
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, order.UUID, found.UUID)

		none, err := f.orders.FindReusable(ctx, s.userID, decimal.RequireFromString("241"))
		require.NoError(t, err)
		assert.Nil(t, none)

		require.NoError(t, f.orders.Cancel(ctx, order.ID))
		none, err = f.orders.FindReusable(ctx, s.userID, decimal.RequireFromString("240"))
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("SetGatewayOrder never overwrites", func(t *testing.T) {
		s := seed(t, f)
		order := createTestOrder(t, f, s, "100.00")

		require.NoError(t, f.orders.SetGatewayOrder(ctx, order.ID, "order_A"))
		assert.ErrorIs(t, f.orders.SetGatewayOrder(ctx, order.ID, "order_B"), model.ErrInvalidTransition)

		got, err := f.orders.GetByUUID(ctx, order.UUID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusPaymentPending, got.Status)
		assert.Equal(t, "order_A", *got.GatewayOrderID)
	})

	t.Run("MarkPaid records payment and freezes the order", func(t *testing.T) {
		s := seed(t, f)
		order := createTestOrder(t, f, s, "100.00")

		tx, err := f.orders.BeginTx(ctx)
		require.NoError(t, err)
		locked, err := f.orders.GetByUUIDForUpdate(ctx, tx, order.UUID)
		require.NoError(t, err)
		require.NoError(t, f.orders.MarkPaid(ctx, tx, locked.ID, "order_X", "pay_1", "sig"))
		require.NoError(t, tx.Commit(ctx))

		got, err := f.orders.GetByUUID(ctx, order.UUID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusPaid, got.Status)
		assert.Equal(t, "order_X", *got.GatewayOrderID)
		assert.Equal(t, "pay_1", *got.GatewayPaymentID)
		assert.Equal(t, "sig", *got.GatewaySignature)

		assert.ErrorIs(t, f.orders.MarkFailed(ctx, nil, order.ID), model.ErrInvalidTransition)
		assert.ErrorIs(t, f.orders.Cancel(ctx, order.ID), model.ErrInvalidTransition)
		assert.ErrorIs(t, f.orders.MarkPaid(ctx, nil, order.ID, "order_X", "pay_2", "sig2"), model.ErrInvalidTransition)
	})

	t.Run("A gateway order cannot pay a second order", func(t *testing.T) {
		s := seed(t, f)
		first := createTestOrder(t, f, s, "900.00")
		second := createTestOrder(t, f, s, "100.00")
		require.NoError(t, f.orders.SetGatewayOrder(ctx, first.ID, "order_BIG"))

		assert.ErrorIs(t, f.orders.SetGatewayOrder(ctx, second.ID, "order_BIG"), model.ErrGatewayOrderMismatch)

		tx, err := f.orders.BeginTx(ctx)
		require.NoError(t, err)
		err = f.orders.MarkPaid(ctx, tx, second.ID, "order_BIG", "pay_9", "sig")
		assert.ErrorIs(t, err, model.ErrGatewayOrderMismatch)
		require.NoError(t, tx.Rollback(ctx))

		got, err := f.orders.GetByUUID(ctx, second.UUID)
		require.NoError(t, err)
		assert.NotEqual(t, model.OrderStatusPaid, got.Status)
		assert.Nil(t, got.GatewayOrderID)
	})

	t.Run("MarkFailed leaves payment fields empty", func(t *testing.T) {
		s := seed(t, f)
		order := createTestOrder(t, f, s, "100.00")

		require.NoError(t, f.orders.MarkFailed(ctx, nil, order.ID))

		got, err := f.orders.GetByUUID(ctx, order.UUID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusFailed, got.Status)
		assert.Nil(t, got.GatewayPaymentID)
		assert.Nil(t, got.GatewaySignature)
	})

	t.Run("ListByUser newest first", func(t *testing.T) {
		s := seed(t, f)
		first := createTestOrder(t, f, s, "1.00")
		second := createTestOrder(t, f, s, "2.00")

		orders, err := f.orders.ListByUser(ctx, s.userID)
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, second.UUID, orders[0].UUID)
		assert.Equal(t, first.UUID, orders[1].UUID)
	})
}
