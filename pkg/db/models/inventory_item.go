package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem tracks the current stock balance per product. Balances are
// derived from the stock movement ledger; this row is the materialized view
// the storefront reads.
type InventoryItem struct {
	ProductID    uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	AvailableQty int       `gorm:"column:available_qty;not null;default:0"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
