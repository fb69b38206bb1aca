package enums

import "fmt"

// StockMovementReason classifies an append-only stock ledger entry.
type StockMovementReason string

const (
	StockMovementReasonOrderConfirmed StockMovementReason = "order_confirmed"
	StockMovementReasonOrderReleased  StockMovementReason = "order_released"
	StockMovementReasonRestock        StockMovementReason = "restock"
	StockMovementReasonAdjustment     StockMovementReason = "adjustment"
)

var validStockMovementReasons = []StockMovementReason{
	StockMovementReasonOrderConfirmed,
	StockMovementReasonOrderReleased,
	StockMovementReasonRestock,
	StockMovementReasonAdjustment,
}

// IsValid reports whether the value is a known StockMovementReason.
func (s StockMovementReason) IsValid() bool {
	for _, candidate := range validStockMovementReasons {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockMovementReason converts raw input into a StockMovementReason.
func ParseStockMovementReason(value string) (StockMovementReason, error) {
	for _, candidate := range validStockMovementReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock movement reason %q", value)
}
