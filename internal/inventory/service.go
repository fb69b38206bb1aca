package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplane/shoplane-backend/pkg/db/models"
	"github.com/shoplane/shoplane-backend/pkg/enums"
	pkgerrors "github.com/shoplane/shoplane-backend/pkg/errors"
)

// Ledger applies order-driven stock movements inside the caller's
// transaction. Every balance change is backed by an immutable
// stock_movements row.
type Ledger interface {
	// CommitOrder decrements stock for every line of a confirmed order.
	// Idempotent per order: when a committed movement for the order already
	// exists the call is a no-op and reports applied=false.
	CommitOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (bool, error)

	// ReleaseOrder returns previously committed stock to the shelf. A no-op
	// when the order never committed stock or was already released.
	ReleaseOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (bool, error)
}

type ledgerImpl struct{}

// NewLedger exposes the default stock ledger implementation.
func NewLedger() Ledger {
	return ledgerImpl{}
}

func (ledgerImpl) CommitOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (bool, error) {
	if tx == nil {
		return false, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock commit")
	}

	committed, err := hasMovement(ctx, tx, order.ID, enums.StockMovementReasonOrderConfirmed)
	if err != nil {
		return false, err
	}
	if committed {
		return false, nil
	}

	for _, item := range order.Items {
		if item.Qty <= 0 {
			continue
		}
		if err := recordMovement(ctx, tx, order.ID, item.ProductID, -item.Qty, enums.StockMovementReasonOrderConfirmed); err != nil {
			return false, err
		}

		res := tx.WithContext(ctx).Exec(`
			UPDATE inventory_items
			SET available_qty = available_qty - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE product_id = ? AND available_qty >= ?
		`, item.Qty, item.ProductID, item.Qty)
		if res.Error != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
		}
		if res.RowsAffected == 0 {
			// Stock may legitimately run dry between pricing and
			// confirmation; the ledger row keeps the shortfall visible for
			// reconciliation instead of blocking the customer's confirm.
			res = tx.WithContext(ctx).Exec(`
				UPDATE inventory_items
				SET available_qty = 0,
					updated_at = CURRENT_TIMESTAMP
				WHERE product_id = ?
			`, item.ProductID)
			if res.Error != nil {
				return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "floor stock")
			}
		}
	}
	return true, nil
}

func (ledgerImpl) ReleaseOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (bool, error) {
	if tx == nil {
		return false, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock release")
	}

	committed, err := hasMovement(ctx, tx, order.ID, enums.StockMovementReasonOrderConfirmed)
	if err != nil {
		return false, err
	}
	if !committed {
		return false, nil
	}
	released, err := hasMovement(ctx, tx, order.ID, enums.StockMovementReasonOrderReleased)
	if err != nil {
		return false, err
	}
	if released {
		return false, nil
	}

	for _, item := range order.Items {
		if item.Qty <= 0 {
			continue
		}
		if err := recordMovement(ctx, tx, order.ID, item.ProductID, item.Qty, enums.StockMovementReasonOrderReleased); err != nil {
			return false, err
		}

		res := tx.WithContext(ctx).Exec(`
			UPDATE inventory_items
			SET available_qty = available_qty + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE product_id = ?
		`, item.Qty, item.ProductID)
		if res.Error != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release stock")
		}
	}
	return true, nil
}

func hasMovement(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason enums.StockMovementReason) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.StockMovement{}).
		Where("order_id = ? AND reason = ?", orderID, reason).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check stock movements")
	}
	return count > 0, nil
}

func recordMovement(ctx context.Context, tx *gorm.DB, orderID, productID uuid.UUID, delta int, reason enums.StockMovementReason) error {
	movement := &models.StockMovement{
		ID:        uuid.New(),
		ProductID: productID,
		OrderID:   &orderID,
		QtyDelta:  delta,
		Reason:    reason,
	}
	if err := tx.WithContext(ctx).Create(movement).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock movement")
	}
	return nil
}
