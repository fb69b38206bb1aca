package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/shoplane-backend/pkg/enums"
)

// StockMovement is an immutable stock ledger entry. Order-driven movements
// carry the order id, which also serves as the idempotency key for the
// confirm-time decrement.
type StockMovement struct {
	ID        uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID                 `gorm:"column:product_id;type:uuid;not null;index"`
	OrderID   *uuid.UUID                `gorm:"column:order_id;type:uuid;index"`
	QtyDelta  int                       `gorm:"column:qty_delta;not null"`
	Reason    enums.StockMovementReason `gorm:"column:reason;type:text;not null"`
	CreatedAt time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
