package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/shoplane/shoplane-backend/internal/notifier"
	"github.com/shoplane/shoplane-backend/pkg/db/models"
	"github.com/shoplane/shoplane-backend/pkg/enums"
	"github.com/shoplane/shoplane-backend/pkg/logger"
)

const (
	defaultStaleAwaitingAfter = 10 * 24 * time.Hour
	defaultStalePendingAfter  = 5 * 24 * time.Hour
)

// staleOrderReader surfaces orders stuck in a non-terminal review state.
type staleOrderReader interface {
	FindAwaitingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type adminNotifier interface {
	NotifyAdmins(ctx context.Context, event notifier.Event) error
}

// staleFlagChecker reports whether an order was already flagged, keyed by
// the notification link, so each order is nagged about once.
type staleFlagChecker interface {
	StaleFlagExists(ctx context.Context, link string) (bool, error)
}

// ReviewTTLJobParams configure the stale review sweep.
type ReviewTTLJobParams struct {
	Logger        *logger.Logger
	Orders        staleOrderReader
	Notifier      adminNotifier
	Flags         staleFlagChecker
	AwaitingAfter time.Duration
	PendingAfter  time.Duration
}

// NewReviewTTLJob builds the cron job that flags orders stuck in review.
// Confirmation tokens never expire, so the job only surfaces stale orders to
// operators; it never transitions state or invalidates a link.
func NewReviewTTLJob(params ReviewTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Flags == nil {
		return nil, fmt.Errorf("stale flag checker required")
	}
	awaitingAfter := params.AwaitingAfter
	if awaitingAfter <= 0 {
		awaitingAfter = defaultStaleAwaitingAfter
	}
	pendingAfter := params.PendingAfter
	if pendingAfter <= 0 {
		pendingAfter = defaultStalePendingAfter
	}
	return &reviewTTLJob{
		logg:          params.Logger,
		orders:        params.Orders,
		notifier:      params.Notifier,
		flags:         params.Flags,
		awaitingAfter: awaitingAfter,
		pendingAfter:  pendingAfter,
		now:           time.Now,
	}, nil
}

type reviewTTLJob struct {
	logg          *logger.Logger
	orders        staleOrderReader
	notifier      adminNotifier
	flags         staleFlagChecker
	awaitingAfter time.Duration
	pendingAfter  time.Duration
	now           func() time.Time
}

func (j *reviewTTLJob) Name() string { return "review-ttl" }

func (j *reviewTTLJob) Run(ctx context.Context) error {
	var errs []error
	if err := j.flagStaleAwaiting(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := j.nudgeStalePending(ctx); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

func (j *reviewTTLJob) flagStaleAwaiting(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.awaitingAfter)
	orders, err := j.orders.FindAwaitingBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale awaiting orders: %w", err)
	}
	flagged, err := j.flagOrders(ctx, orders)
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": flagged, "state": string(enums.OrderStatusAwaitingConfirmation)})
	j.logg.Info(logCtx, "stale awaiting sweep complete")
	return err
}

func (j *reviewTTLJob) nudgeStalePending(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.pendingAfter)
	orders, err := j.orders.FindPendingBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}
	flagged, err := j.flagOrders(ctx, orders)
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": flagged, "state": string(enums.OrderStatusPendingReview)})
	j.logg.Info(logCtx, "stale pending sweep complete")
	return err
}

func (j *reviewTTLJob) flagOrders(ctx context.Context, orders []models.Order) (int, error) {
	var errs []error
	flagged := 0
	for i := range orders {
		order := orders[i]
		link := "/admin/order-review/" + order.ID.String()
		exists, err := j.flags.StaleFlagExists(ctx, link)
		if err != nil {
			errs = append(errs, fmt.Errorf("check stale flag for %s: %w", order.ID, err))
			continue
		}
		if exists {
			continue
		}
		err = j.notifier.NotifyAdmins(ctx, notifier.Event{
			Type:  enums.NotificationTypeStaleReview,
			Order: &order,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("flag order %s: %w", order.ID, err))
			continue
		}
		flagged++
	}
	return flagged, multierr.Combine(errs...)
}
