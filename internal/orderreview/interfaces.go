package orderreview

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplane/shoplane-backend/pkg/db/models"
	"github.com/shoplane/shoplane-backend/pkg/enums"
	"github.com/shoplane/shoplane-backend/pkg/pagination"
)

// PricingUpdate carries the fields written when an admin prices an order.
// Token replaces whatever token was active before; repricing an already
// priced order therefore invalidates the earlier emailed link.
type PricingUpdate struct {
	ShippingCents   int
	FinalPriceCents int
	AdminNotes      *string
	CustomerEmail   string
	Token           string
}

// ListFilters narrows the admin order listing.
type ListFilters struct {
	Status     *enums.OrderStatus
	CustomerID *uuid.UUID
}

// Repository defines persistence operations for review-workflow orders.
// Every state transition is a single conditional UPDATE guarded by the
// expected current status (and token where one is in play); the boolean
// result reports whether this caller won the transition.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByReference(ctx context.Context, reference string) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Order, *pagination.Cursor, error)
	MarkAwaitingConfirmation(ctx context.Context, orderID uuid.UUID, update PricingUpdate) (bool, error)
	MarkConfirmed(ctx context.Context, orderID uuid.UUID, token, publicOrderID string, now time.Time) (bool, error)
	MarkCancelled(ctx context.Context, orderID uuid.UUID, token string, reason *string, now time.Time) (bool, error)
	CancelPending(ctx context.Context, orderID, customerID uuid.UUID, reason *string, now time.Time) (bool, error)
	PublicOrderIDExists(ctx context.Context, publicOrderID string) (bool, error)
	FindAwaitingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}
