package orderreview

import (
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/shoplane-backend/pkg/db/models"
	"github.com/shoplane/shoplane-backend/pkg/enums"
	"github.com/shoplane/shoplane-backend/pkg/types"
)

// orderResponse is the public view of an order. The confirmation token is
// deliberately absent: it only ever travels inside the emailed link.
type orderResponse struct {
	OrderID       uuid.UUID `json:"order_id"`
	Reference     string    `json:"reference"`
	PublicOrderID *string   `json:"public_order_id,omitempty"`

	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
	GuestName  *string    `json:"guest_name,omitempty"`

	PaymentMethod enums.PaymentMethod `json:"payment_method"`

	SubtotalCents       int     `json:"subtotal_cents"`
	ShippingCents       *int    `json:"shipping_cents,omitempty"`
	FinalPriceCents     *int    `json:"final_price_cents,omitempty"`
	CouponCode          *string `json:"coupon_code,omitempty"`
	CouponDiscountCents int     `json:"coupon_discount_cents"`

	Status enums.OrderStatus `json:"order_status"`

	AdminNotes   *string `json:"admin_notes,omitempty"`
	CancelReason *string `json:"cancel_reason,omitempty"`

	ShippingAddress *types.Address `json:"shipping_address,omitempty"`
	BillingAddress  *types.Address `json:"billing_address,omitempty"`

	Items []orderItemResponse `json:"items"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type orderItemResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	Qty            int       `json:"qty"`
	UnitPriceCents int       `json:"unit_price_cents"`
	TotalCents     int       `json:"total_cents"`
}

type orderListResponse struct {
	Items  []orderResponse `json:"items"`
	Cursor string          `json:"cursor"`
}

// transitionResponse is the slim acknowledgement for confirm/cancel calls.
type transitionResponse struct {
	OrderID       uuid.UUID         `json:"order_id"`
	PublicOrderID *string           `json:"public_order_id,omitempty"`
	Status        enums.OrderStatus `json:"order_status"`
}

func newOrderResponse(order *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.TotalCents(),
		})
	}
	return orderResponse{
		OrderID:             order.ID,
		Reference:           order.Reference,
		PublicOrderID:       order.PublicOrderID,
		CustomerID:          order.CustomerID,
		GuestName:           order.GuestName,
		PaymentMethod:       order.PaymentMethod,
		SubtotalCents:       order.SubtotalCents,
		ShippingCents:       order.ShippingCents,
		FinalPriceCents:     order.FinalPriceCents,
		CouponCode:          order.CouponCode,
		CouponDiscountCents: order.CouponDiscountCents,
		Status:              order.Status,
		AdminNotes:          order.AdminNotes,
		CancelReason:        order.CancelReason,
		ShippingAddress:     order.ShippingAddress,
		BillingAddress:      order.BillingAddress,
		Items:               items,
		ConfirmedAt:         order.ConfirmedAt,
		CancelledAt:         order.CancelledAt,
		CreatedAt:           order.CreatedAt,
		UpdatedAt:           order.UpdatedAt,
	}
}

func newTransitionResponse(order *models.Order) transitionResponse {
	return transitionResponse{
		OrderID:       order.ID,
		PublicOrderID: order.PublicOrderID,
		Status:        order.Status,
	}
}
