package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is one line of an order. Unit price is captured at submission
// time and never re-read from the catalog afterwards.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	ProductName    string    `gorm:"column:product_name;type:text;not null"`
	Qty            int       `gorm:"column:qty;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TotalCents returns the line total at the captured unit price.
func (i OrderItem) TotalCents() int {
	return i.Qty * i.UnitPriceCents
}
