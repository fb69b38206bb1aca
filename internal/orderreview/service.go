package orderreview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplane/shoplane-backend/internal/notifier"
	"github.com/shoplane/shoplane-backend/pkg/config"
	"github.com/shoplane/shoplane-backend/pkg/db"
	"github.com/shoplane/shoplane-backend/pkg/db/models"
	"github.com/shoplane/shoplane-backend/pkg/enums"
	pkgerrors "github.com/shoplane/shoplane-backend/pkg/errors"
	"github.com/shoplane/shoplane-backend/pkg/logger"
	"github.com/shoplane/shoplane-backend/pkg/metrics"
	"github.com/shoplane/shoplane-backend/pkg/pagination"
)

const (
	referenceMaxAttempts       = 5
	defaultPublicIDMaxAttempts = 5
	defaultNotifyTimeout       = 10 * time.Second
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// stockLedger commits the confirm-time inventory decrement inside the
// confirmation transaction.
type stockLedger interface {
	CommitOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (bool, error)
}

// dispatchFunc runs a best-effort side effect after a state transition has
// committed. The default implementation detaches from the request context
// and runs in a goroutine; tests swap in a synchronous version.
type dispatchFunc func(ctx context.Context, fn func(ctx context.Context))

// Service drives the order review-and-confirmation workflow.
type Service interface {
	SubmitForReview(ctx context.Context, input SubmitInput) (*SubmitResult, error)
	SetShippingAndFinalPrice(ctx context.Context, input PricingInput) (*models.Order, error)
	ConfirmByCustomer(ctx context.Context, orderID uuid.UUID, token string) (*models.Order, error)
	CancelByCustomer(ctx context.Context, orderID uuid.UUID, token string, reason *string) (*models.Order, error)
	RequestCancel(ctx context.Context, orderID, customerID uuid.UUID, reason *string) error
	ConfirmByAccount(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error)
	CancelByAccount(ctx context.Context, orderID, customerID uuid.UUID, reason *string) (*models.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, params ListParams) (*OrderList, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	ledger   stockLedger
	notify   notifier.Notifier
	accounts accountDirectory
	resolver *RecipientResolver
	log      *logger.Logger
	metrics  *metrics.NotifyMetrics
	cfg      config.OrderReviewConfig
	baseURL  string
	dispatch dispatchFunc
}

// NewService wires the workflow engine with its collaborators.
func NewService(
	repo Repository,
	tx txRunner,
	ledger stockLedger,
	notify notifier.Notifier,
	accounts accountDirectory,
	resolver *RecipientResolver,
	log *logger.Logger,
	notifyMetrics *metrics.NotifyMetrics,
	cfg config.OrderReviewConfig,
	publicBaseURL string,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order review repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("recipient resolver required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	timeout := cfg.NotifyTimeout
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}

	return &service{
		repo:     repo,
		tx:       tx,
		ledger:   ledger,
		notify:   notify,
		accounts: accounts,
		resolver: resolver,
		log:      log,
		metrics:  notifyMetrics,
		cfg:      cfg,
		baseURL:  strings.TrimRight(publicBaseURL, "/"),
		dispatch: asyncDispatch(timeout),
	}, nil
}

func asyncDispatch(timeout time.Duration) dispatchFunc {
	return func(ctx context.Context, fn func(ctx context.Context)) {
		detached := context.WithoutCancel(ctx)
		go func() {
			runCtx, cancel := context.WithTimeout(detached, timeout)
			defer cancel()
			fn(runCtx)
		}()
	}
}

func (s *service) SubmitForReview(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	if err := validateSubmitInput(input); err != nil {
		return nil, err
	}

	subtotal := 0
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		subtotal += item.Qty * item.UnitPriceCents
		items = append(items, models.OrderItem{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
		})
	}

	order := &models.Order{
		CustomerID:          input.CustomerID,
		GuestName:           input.GuestName,
		GuestEmail:          input.GuestEmail,
		PaymentMethod:       input.PaymentMethod,
		SubtotalCents:       subtotal,
		CouponCode:          input.CouponCode,
		CouponDiscountCents: input.CouponDiscountCents,
		Status:              enums.OrderStatusPendingReview,
		ShippingAddress:     input.ShippingAddress,
		BillingAddress:      input.BillingAddress,
		Items:               items,
	}
	if input.CustomerID == nil {
		guestRef := fmt.Sprintf("guest-%d", time.Now().UnixNano())
		order.GuestRef = &guestRef
	}

	// Best effort at intake: a missing address only becomes a hard failure
	// at pricing time, when the confirmation link has to go somewhere.
	if email, err := s.resolver.Resolve(ctx, order, s.accounts); err == nil {
		order.CustomerEmail = &email
	}

	var created *models.Order
	for attempt := 0; attempt < referenceMaxAttempts; attempt++ {
		reference, err := newReference()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint order reference")
		}
		order.ID = uuid.New()
		order.Reference = reference

		created, err = s.repo.Create(ctx, order)
		if err == nil {
			break
		}
		if db.IsUniqueViolation(err, "orders_reference_key") && attempt+1 < referenceMaxAttempts {
			continue
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	s.notifyAsync(ctx, enums.NotificationTypeOrderSubmitted, func(ctx context.Context) error {
		event := notifier.Event{Type: enums.NotificationTypeOrderSubmitted, Order: created}
		err := s.notify.NotifyAdmins(ctx, event)
		if created.CustomerEmail != nil {
			if customerErr := s.notify.NotifyCustomer(ctx, *created.CustomerEmail, event); customerErr != nil && err == nil {
				err = customerErr
			}
		}
		return err
	})

	return &SubmitResult{
		OrderID:   created.ID,
		Reference: created.Reference,
		Status:    created.Status,
	}, nil
}

func validateSubmitInput(input SubmitInput) error {
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one order item required")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "item product id required")
		}
		if strings.TrimSpace(item.ProductName) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "item product name required")
		}
		if item.Qty < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item qty must be at least 1")
		}
		if item.UnitPriceCents < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item unit price cannot be negative")
		}
	}
	if input.CouponDiscountCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon discount cannot be negative")
	}
	if input.ShippingAddress == nil || input.ShippingAddress.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}
	if input.CustomerID != nil && (input.GuestName != nil || input.GuestEmail != nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "guest fields not allowed for registered customers")
	}
	return nil
}

func (s *service) SetShippingAndFinalPrice(ctx context.Context, input PricingInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ShippingCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping cannot be negative")
	}
	if input.FinalPriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "final price cannot be negative")
	}

	var (
		priced *models.Order
		token  string
		email  string
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be priced")
		}

		// Resolve the recipient before writing anything: a transition into
		// awaiting_confirmation with nowhere to send the link is useless.
		email, err = s.resolver.Resolve(ctx, order, s.accounts)
		if err != nil {
			return err
		}

		token, err = newConfirmationToken()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint confirmation token")
		}

		updated, err := repo.MarkAwaitingConfirmation(ctx, input.OrderID, PricingUpdate{
			ShippingCents:   input.ShippingCents,
			FinalPriceCents: input.FinalPriceCents,
			AdminNotes:      input.AdminNotes,
			CustomerEmail:   email,
			Token:           token,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "price order")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be priced")
		}

		priced, err = repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	confirmURL := fmt.Sprintf("%s/api/v1/order-review/customer-confirm/%s/%s", s.baseURL, priced.ID, token)
	cancelURL := fmt.Sprintf("%s/api/v1/order-review/customer-cancel/%s/%s", s.baseURL, priced.ID, token)
	s.notifyAsync(ctx, enums.NotificationTypeOrderPriced, func(ctx context.Context) error {
		return s.notify.NotifyCustomer(ctx, email, notifier.Event{
			Type:       enums.NotificationTypeOrderPriced,
			Order:      priced,
			ConfirmURL: confirmURL,
			CancelURL:  cancelURL,
		})
	})

	return priced, nil
}

func (s *service) ConfirmByCustomer(ctx context.Context, orderID uuid.UUID, token string) (*models.Order, error) {
	// An unknown order and a stale token are deliberately told apart by
	// nobody: both read as not found.
	if orderID == uuid.Nil || strings.TrimSpace(token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	attempts := s.cfg.PublicIDMaxAttempts
	if attempts <= 0 {
		attempts = defaultPublicIDMaxAttempts
	}

	var confirmed *models.Order
	for attempt := 0; attempt < attempts; attempt++ {
		publicID, err := s.mintPublicOrderID(ctx, attempts)
		if err != nil {
			return nil, err
		}

		txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			updated, err := repo.MarkConfirmed(ctx, orderID, token, publicID, time.Now().UTC())
			if err != nil {
				return err
			}
			if !updated {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}

			order, err := repo.FindByID(ctx, orderID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
			}
			if _, err := s.ledger.CommitOrder(ctx, tx, order); err != nil {
				return err
			}
			confirmed = order
			return nil
		})
		if txErr == nil {
			break
		}
		// Lost the number to a concurrent confirm; draw again.
		if db.IsUniqueViolation(txErr, "orders_public_order_id_key") && attempt+1 < attempts {
			continue
		}
		if typed := pkgerrors.As(txErr); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "confirm order")
	}
	if confirmed == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique order number")
	}

	s.notifyAsync(ctx, enums.NotificationTypeOrderConfirmed, func(ctx context.Context) error {
		event := notifier.Event{Type: enums.NotificationTypeOrderConfirmed, Order: confirmed}
		err := s.notify.NotifyAdmins(ctx, event)
		if confirmed.CustomerEmail != nil {
			if customerErr := s.notify.NotifyCustomer(ctx, *confirmed.CustomerEmail, event); customerErr != nil && err == nil {
				err = customerErr
			}
		}
		return err
	})

	return confirmed, nil
}

// mintPublicOrderID draws six-digit candidates until one is unused. The
// unique index still backstops the race between check and insert.
func (s *service) mintPublicOrderID(ctx context.Context, attempts int) (string, error) {
	for attempt := 0; attempt < attempts; attempt++ {
		candidate, err := newPublicOrderID()
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint public order id")
		}
		exists, err := s.repo.PublicOrderIDExists(ctx, candidate)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check public order id")
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique order number")
}

func (s *service) CancelByCustomer(ctx context.Context, orderID uuid.UUID, token string, reason *string) (*models.Order, error) {
	if orderID == uuid.Nil || strings.TrimSpace(token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		updated, err := repo.MarkCancelled(ctx, orderID, token, reason, time.Now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}

		cancelled, err = repo.FindByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyAsync(ctx, enums.NotificationTypeOrderCancelled, func(ctx context.Context) error {
		event := notifier.Event{Type: enums.NotificationTypeOrderCancelled, Order: cancelled, Reason: reason}
		err := s.notify.NotifyAdmins(ctx, event)
		if cancelled.CustomerEmail != nil {
			if customerErr := s.notify.NotifyCustomer(ctx, *cancelled.CustomerEmail, event); customerErr != nil && err == nil {
				err = customerErr
			}
		}
		return err
	})

	return cancelled, nil
}

func (s *service) RequestCancel(ctx context.Context, orderID, customerID uuid.UUID, reason *string) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		updated, err := repo.CancelPending(ctx, orderID, customerID, reason, time.Now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if updated {
			cancelled, err = repo.FindByID(ctx, orderID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
			}
			return nil
		}

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		// Orders belonging to someone else look like they don't exist.
		if order.CustomerID == nil || *order.CustomerID != customerID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer pending review")
	})
	if err != nil {
		return err
	}

	s.notifyAsync(ctx, enums.NotificationTypeOrderCancelled, func(ctx context.Context) error {
		return s.notify.NotifyAdmins(ctx, notifier.Event{
			Type:   enums.NotificationTypeOrderCancelled,
			Order:  cancelled,
			Reason: reason,
		})
	})
	return nil
}

func (s *service) ConfirmByAccount(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error) {
	token, err := s.activeTokenForOwner(ctx, orderID, customerID)
	if err != nil {
		return nil, err
	}
	return s.ConfirmByCustomer(ctx, orderID, token)
}

func (s *service) CancelByAccount(ctx context.Context, orderID, customerID uuid.UUID, reason *string) (*models.Order, error) {
	token, err := s.activeTokenForOwner(ctx, orderID, customerID)
	if err != nil {
		return nil, err
	}
	return s.CancelByCustomer(ctx, orderID, token, reason)
}

// activeTokenForOwner fetches the order's current token for an owner acting
// through their session instead of the emailed link. Reusing the observed
// token keeps the two paths mutually exclusive: if the token moves between
// read and update, the conditional update misses and the caller sees not
// found, same as a stale link.
func (s *service) activeTokenForOwner(ctx context.Context, orderID, customerID uuid.UUID) (string, error) {
	if orderID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if customerID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.CustomerID == nil || *order.CustomerID != customerID {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.ConfirmationToken == nil {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting confirmation")
	}
	return *order.ConfirmationToken, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, params ListParams) (*OrderList, error) {
	filters := ListFilters{CustomerID: params.CustomerID}
	if strings.TrimSpace(params.Status) != "" {
		status, err := enums.ParseOrderStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}

	items, next, err := s.repo.List(ctx, pagination.Params{Limit: params.Limit, Cursor: params.Cursor}, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &OrderList{Items: items, Cursor: cursor}, nil
}

func (s *service) notifyAsync(ctx context.Context, event enums.NotificationType, fn func(ctx context.Context) error) {
	s.dispatch(ctx, func(ctx context.Context) {
		if err := fn(ctx); err != nil {
			s.log.Error(ctx, "notification dispatch failed", err)
			s.metrics.IncFailure(string(event))
			return
		}
		s.metrics.IncSuccess(string(event))
	})
}
