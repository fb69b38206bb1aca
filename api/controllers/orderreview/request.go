package orderreview

import (
	"github.com/google/uuid"

	internalreview "github.com/shoplane/shoplane-backend/internal/orderreview"
	"github.com/shoplane/shoplane-backend/pkg/enums"
	pkgerrors "github.com/shoplane/shoplane-backend/pkg/errors"
	"github.com/shoplane/shoplane-backend/pkg/types"
)

type addressRequest struct {
	Name       string  `json:"name" validate:"required"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Phone      *string `json:"phone"`
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2"`
	City       string  `json:"city" validate:"required"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code" validate:"required"`
	Country    string  `json:"country" validate:"required"`
}

func (a *addressRequest) toAddress() *types.Address {
	if a == nil {
		return nil
	}
	return &types.Address{
		Name:       a.Name,
		Email:      a.Email,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

type submitItemRequest struct {
	ProductID      string `json:"product_id" validate:"required,uuid"`
	ProductName    string `json:"product_name" validate:"required"`
	Qty            int    `json:"qty" validate:"required,min=1"`
	UnitPriceCents int    `json:"unit_price_cents" validate:"gte=0"`
}

type submitOrderRequest struct {
	GuestName           *string             `json:"guest_name"`
	GuestEmail          *string             `json:"guest_email" validate:"omitempty,email"`
	PaymentMethod       string              `json:"payment_method" validate:"required"`
	SubtotalCents       *int                `json:"subtotal_cents" validate:"required,gte=0"`
	CouponCode          *string             `json:"coupon_code"`
	CouponDiscountCents int                 `json:"coupon_discount_cents" validate:"gte=0"`
	Items               []submitItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress     *addressRequest     `json:"shipping_address" validate:"required"`
	BillingAddress      *addressRequest     `json:"billing_address"`
}

func (req *submitOrderRequest) toInput(customerID *uuid.UUID) (internalreview.SubmitInput, error) {
	method, err := enums.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return internalreview.SubmitInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}

	itemsTotal := 0
	items := make([]internalreview.SubmitItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return internalreview.SubmitInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
		}
		itemsTotal += item.Qty * item.UnitPriceCents
		items = append(items, internalreview.SubmitItemInput{
			ProductID:      productID,
			ProductName:    item.ProductName,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	if *req.SubtotalCents != itemsTotal {
		return internalreview.SubmitInput{}, pkgerrors.New(pkgerrors.CodeValidation, "subtotal does not match order items")
	}

	return internalreview.SubmitInput{
		CustomerID:          customerID,
		GuestName:           req.GuestName,
		GuestEmail:          req.GuestEmail,
		PaymentMethod:       method,
		CouponCode:          req.CouponCode,
		CouponDiscountCents: req.CouponDiscountCents,
		Items:               items,
		ShippingAddress:     req.ShippingAddress.toAddress(),
		BillingAddress:      req.BillingAddress.toAddress(),
	}, nil
}

type setShippingRequest struct {
	ShippingCents   *int    `json:"shipping_cents" validate:"required,gte=0"`
	FinalPriceCents *int    `json:"final_price_cents" validate:"required,gte=0"`
	AdminNotes      *string `json:"admin_notes"`
}

type cancelReasonRequest struct {
	Reason *string `json:"reason"`
}
