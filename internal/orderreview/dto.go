package orderreview

import (
	"github.com/google/uuid"

	"github.com/shoplane/shoplane-backend/pkg/db/models"
	"github.com/shoplane/shoplane-backend/pkg/enums"
	"github.com/shoplane/shoplane-backend/pkg/types"
)

// SubmitItemInput is one requested order line. Unit price is captured here
// and never re-read from the catalog.
type SubmitItemInput struct {
	ProductID      uuid.UUID
	ProductName    string
	Qty            int
	UnitPriceCents int
}

// SubmitInput carries everything needed to open an order for review.
// CustomerID set means a registered purchase; otherwise the order is a guest
// order and a synthetic guest marker is minted.
type SubmitInput struct {
	CustomerID          *uuid.UUID
	GuestName           *string
	GuestEmail          *string
	PaymentMethod       enums.PaymentMethod
	CouponCode          *string
	CouponDiscountCents int
	Items               []SubmitItemInput
	ShippingAddress     *types.Address
	BillingAddress      *types.Address
}

// SubmitResult is returned to the storefront after intake. The reference is
// the only identifier the customer sees until confirmation mints the public
// order number.
type SubmitResult struct {
	OrderID   uuid.UUID         `json:"order_id"`
	Reference string            `json:"reference"`
	Status    enums.OrderStatus `json:"order_status"`
}

// PricingInput is the admin's shipping/final-price decision. Both monetary
// values are mandatory; pricing without a final total is rejected upstream.
type PricingInput struct {
	OrderID         uuid.UUID
	ShippingCents   int
	FinalPriceCents int
	AdminNotes      *string
	ActorUserID     uuid.UUID
}

// ListParams configures the admin order listing.
type ListParams struct {
	Status     string
	CustomerID *uuid.UUID
	Limit      int
	Cursor     string
}

// OrderList wraps a page of orders plus the cursor for the next page.
type OrderList struct {
	Items  []models.Order `json:"items"`
	Cursor string         `json:"cursor"`
}
