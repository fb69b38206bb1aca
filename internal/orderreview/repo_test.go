package orderreview

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shoplane/shoplane-backend/pkg/db/models"
	"github.com/shoplane/shoplane-backend/pkg/enums"
	"github.com/shoplane/shoplane-backend/pkg/pagination"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  reference TEXT NOT NULL UNIQUE,
  public_order_id TEXT UNIQUE,
  customer_id TEXT,
  guest_ref TEXT,
  guest_name TEXT,
  guest_email TEXT,
  customer_email TEXT,
  payment_method TEXT NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  shipping_cents INTEGER,
  final_price_cents INTEGER,
  coupon_code TEXT,
  coupon_discount_cents INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  confirmation_token TEXT,
  admin_notes TEXT,
  cancel_reason TEXT,
  shipping_address TEXT,
  billing_address TEXT,
  confirmed_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(orderItems).Error)
	return db
}

func seedPendingOrder(t *testing.T, db *gorm.DB) *models.Order {
	t.Helper()

	reference, err := newReference()
	require.NoError(t, err)

	guestRef := fmt.Sprintf("guest-%d", time.Now().UnixNano())
	order := &models.Order{
		ID:            uuid.New(),
		Reference:     reference,
		GuestRef:      &guestRef,
		PaymentMethod: enums.PaymentMethodCashOnDelivery,
		SubtotalCents: 4500,
		Status:        enums.OrderStatusPendingReview,
		Items: []models.OrderItem{
			{ID: uuid.New(), ProductID: uuid.New(), ProductName: "Widget", Qty: 3, UnitPriceCents: 1500},
		},
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func priceOrder(t *testing.T, repo Repository, orderID uuid.UUID) string {
	t.Helper()

	token, err := newConfirmationToken()
	require.NoError(t, err)
	updated, err := repo.MarkAwaitingConfirmation(context.Background(), orderID, PricingUpdate{
		ShippingCents:   500,
		FinalPriceCents: 5000,
		CustomerEmail:   "buyer@shop.test",
		Token:           token,
	})
	require.NoError(t, err)
	require.True(t, updated)
	return token
}

func TestRepoCreateAndFind(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	order := seedPendingOrder(t, db)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Reference, found.Reference)
	require.Len(t, found.Items, 1)
	assert.Equal(t, 3, found.Items[0].Qty)

	byRef, err := repo.FindByReference(context.Background(), order.Reference)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byRef.ID)
}

func TestMarkAwaitingConfirmationFromPending(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	order := seedPendingOrder(t, db)

	token := priceOrder(t, repo, order.ID)

	priced, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAwaitingConfirmation, priced.Status)
	require.NotNil(t, priced.ConfirmationToken)
	assert.Equal(t, token, *priced.ConfirmationToken)
	require.NotNil(t, priced.ShippingCents)
	assert.Equal(t, 500, *priced.ShippingCents)
	require.NotNil(t, priced.FinalPriceCents)
	assert.Equal(t, 5000, *priced.FinalPriceCents)
	require.NotNil(t, priced.CustomerEmail)
	assert.Equal(t, "buyer@shop.test", *priced.CustomerEmail)
}

func TestRepricingOverwritesToken(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	order := seedPendingOrder(t, db)

	firstToken := priceOrder(t, repo, order.ID)
	secondToken := priceOrder(t, repo, order.ID)
	require.NotEqual(t, firstToken, secondToken)

	// The earlier link is dead: only the latest token confirms.
	updated, err := repo.MarkConfirmed(context.Background(), order.ID, firstToken, "123456", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, updated)

	updated, err = repo.MarkConfirmed(context.Background(), order.ID, secondToken, "123456", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, updated)
}

func TestMarkAwaitingConfirmationRejectsTerminal(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	order := seedPendingOrder(t, db)

	token := priceOrder(t, repo, order.ID)
	updated, err := repo.MarkCancelled(context.Background(), order.ID, token, nil, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, updated)

	updated, err = repo.MarkAwaitingConfirmation(context.Background(), order.ID, PricingUpdate{
		ShippingCents:   100,
		FinalPriceCents: 4600,
		CustomerEmail:   "buyer@shop.test",
		Token:           "irrelevant",
	})
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestMarkConfirmedIsAtMostOnce(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	order := seedPendingOrder(t, db)
	token := priceOrder(t, repo, order.ID)

	now := time.Now().UTC()
	updated, err := repo.MarkConfirmed(context.Background(), order.ID, token, "654321", now)
	require.NoError(t, err)
	require.True(t, updated)

	confirmed, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.PublicOrderID)
	assert.Equal(t, "654321", *confirmed.PublicOrderID)
	assert.Nil(t, confirmed.ConfirmationToken)
	assert.NotNil(t, confirmed.ConfirmedAt)

	// Replay with the consumed token loses.
	updated, err = repo.MarkConfirmed(context.Background(), order.ID, token, "111111", now)
	require.NoError(t, err)
	assert.False(t, updated)

	// And so does a cancel with the consumed token.
	updated, err = repo.MarkCancelled(context.Background(), order.ID, token, nil, now)
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestConcurrentConfirmsHaveOneWinner(t *testing.T) {
	db := setupOrderTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// sqlite allows a single writer at a time.
	sqlDB.SetMaxOpenConns(1)

	repo := NewRepository(db)
	order := seedPendingOrder(t, db)
	token := priceOrder(t, repo, order.ID)

	now := time.Now().UTC()
	results := make(chan bool, 2)
	var wg sync.WaitGroup
	for _, publicID := range []string{"314159", "271828"} {
		wg.Add(1)
		go func(publicID string) {
			defer wg.Done()
			updated, err := repo.MarkConfirmed(context.Background(), order.ID, token, publicID, now)
			assert.NoError(t, err)
			results <- updated
		}(publicID)
	}
	wg.Wait()
	close(results)

	winners := 0
	for updated := range results {
		if updated {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one confirm must win the race")

	confirmed, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, confirmed.Status)
	assert.Nil(t, confirmed.ConfirmationToken)
	require.NotNil(t, confirmed.PublicOrderID)
}

func TestMarkConfirmedWrongToken(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	order := seedPendingOrder(t, db)
	priceOrder(t, repo, order.ID)

	updated, err := repo.MarkConfirmed(context.Background(), order.ID, "bogus", "222222", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestMarkCancelledRecordsReason(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	order := seedPendingOrder(t, db)
	token := priceOrder(t, repo, order.ID)

	reason := "found a better price"
	updated, err := repo.MarkCancelled(context.Background(), order.ID, token, &reason, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, updated)

	cancelled, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.ConfirmationToken)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, reason, *cancelled.CancelReason)
	assert.NotNil(t, cancelled.CancelledAt)
}

func TestCancelPendingRequiresOwnerAndState(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)

	customerID := uuid.New()
	order := seedPendingOrder(t, db)
	require.NoError(t, db.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{"customer_id": customerID, "guest_ref": nil}).Error)

	// Wrong owner does not match.
	updated, err := repo.CancelPending(context.Background(), order.ID, uuid.New(), nil, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, updated)

	updated, err = repo.CancelPending(context.Background(), order.ID, customerID, nil, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, updated)

	// Already cancelled: no second transition.
	updated, err = repo.CancelPending(context.Background(), order.ID, customerID, nil, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestPublicOrderIDExists(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	order := seedPendingOrder(t, db)
	token := priceOrder(t, repo, order.ID)

	exists, err := repo.PublicOrderIDExists(context.Background(), "777777")
	require.NoError(t, err)
	assert.False(t, exists)

	updated, err := repo.MarkConfirmed(context.Background(), order.ID, token, "777777", time.Now().UTC())
	require.NoError(t, err)
	require.True(t, updated)

	exists, err = repo.PublicOrderIDExists(context.Background(), "777777")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFindAwaitingBefore(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)

	stale := seedPendingOrder(t, db)
	priceOrder(t, repo, stale.ID)
	require.NoError(t, db.Model(&models.Order{}).
		Where("id = ?", stale.ID).
		UpdateColumn("updated_at", time.Now().Add(-48*time.Hour)).Error)

	fresh := seedPendingOrder(t, db)
	priceOrder(t, repo, fresh.ID)

	found, err := repo.FindAwaitingBefore(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(found))
	for _, o := range found {
		ids = append(ids, o.ID)
	}
	assert.Contains(t, ids, stale.ID)
	assert.NotContains(t, ids, fresh.ID)
}

func TestListFiltersByStatus(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)

	pending := seedPendingOrder(t, db)
	priced := seedPendingOrder(t, db)
	priceOrder(t, repo, priced.ID)

	status := enums.OrderStatusAwaitingConfirmation
	items, _, err := repo.List(context.Background(), pagination.Params{Limit: 50}, ListFilters{Status: &status})
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(items))
	for _, o := range items {
		ids = append(ids, o.ID)
	}
	assert.Contains(t, ids, priced.ID)
	assert.NotContains(t, ids, pending.ID)
}
