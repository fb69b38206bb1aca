package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/shoplane-backend/pkg/enums"
	"github.com/shoplane/shoplane-backend/pkg/types"
)

// Order is the persisted record of one purchase attempt moving through the
// review-and-confirmation workflow.
//
// Reference is the placeholder identifier handed back at submission time;
// PublicOrderID is the human-facing six-digit number and stays NULL until
// the customer confirms. Exactly one of CustomerID (registered account) or
// GuestRef (synthetic guest marker) identifies the purchaser.
type Order struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Reference string    `gorm:"column:reference;type:text;not null;uniqueIndex"`

	PublicOrderID *string `gorm:"column:public_order_id;type:text;uniqueIndex"`

	CustomerID *uuid.UUID `gorm:"column:customer_id;type:uuid"`
	GuestRef   *string    `gorm:"column:guest_ref;type:text"`
	GuestName  *string    `gorm:"column:guest_name;type:text"`
	GuestEmail *string    `gorm:"column:guest_email;type:text"`

	// CustomerEmail is the address resolved for outbound correspondence.
	// May stay empty until pricing time for guest orders.
	CustomerEmail *string `gorm:"column:customer_email;type:text"`

	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`

	SubtotalCents       int     `gorm:"column:subtotal_cents;not null"`
	ShippingCents       *int    `gorm:"column:shipping_cents"`
	FinalPriceCents     *int    `gorm:"column:final_price_cents"`
	CouponCode          *string `gorm:"column:coupon_code;type:text"`
	CouponDiscountCents int     `gorm:"column:coupon_discount_cents;not null;default:0"`

	Status enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending_review'"`

	// ConfirmationToken is non-NULL only while Status is
	// awaiting_confirmation; every terminal transition clears it.
	ConfirmationToken *string `gorm:"column:confirmation_token;type:text"`

	AdminNotes   *string `gorm:"column:admin_notes;type:text"`
	CancelReason *string `gorm:"column:cancel_reason;type:text"`

	ShippingAddress *types.Address `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	BillingAddress  *types.Address `gorm:"column:billing_address;type:jsonb;serializer:json"`

	ConfirmedAt *time.Time `gorm:"column:confirmed_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsGuest reports whether the purchaser has no registered account.
func (o *Order) IsGuest() bool {
	return o.CustomerID == nil
}
