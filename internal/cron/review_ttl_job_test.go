package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/shoplane-backend/internal/notifier"
	"github.com/shoplane/shoplane-backend/pkg/db/models"
	"github.com/shoplane/shoplane-backend/pkg/enums"
	"github.com/shoplane/shoplane-backend/pkg/logger"
)

type fakeStaleReader struct {
	awaiting []models.Order
	pending  []models.Order
	err      error
}

func (f *fakeStaleReader) FindAwaitingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	return f.awaiting, f.err
}

func (f *fakeStaleReader) FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	return f.pending, f.err
}

type fakeAdminNotifier struct {
	events []notifier.Event
	err    error
}

func (f *fakeAdminNotifier) NotifyAdmins(ctx context.Context, event notifier.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type fakeFlags struct {
	existing map[string]bool
}

func (f *fakeFlags) StaleFlagExists(ctx context.Context, link string) (bool, error) {
	return f.existing[link], nil
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func newReviewTTLJob(t *testing.T, reader *fakeStaleReader, notify *fakeAdminNotifier, flags *fakeFlags) *reviewTTLJob {
	t.Helper()

	job, err := NewReviewTTLJob(ReviewTTLJobParams{
		Logger:   quietLogger(),
		Orders:   reader,
		Notifier: notify,
		Flags:    flags,
	})
	if err != nil {
		t.Fatalf("NewReviewTTLJob: %v", err)
	}
	return job.(*reviewTTLJob)
}

func staleOrder(status enums.OrderStatus) models.Order {
	return models.Order{
		ID:        uuid.New(),
		Reference: "SL-STALE001",
		Status:    status,
	}
}

func TestReviewTTLJobFlagsStaleOrders(t *testing.T) {
	awaiting := staleOrder(enums.OrderStatusAwaitingConfirmation)
	pending := staleOrder(enums.OrderStatusPendingReview)
	reader := &fakeStaleReader{
		awaiting: []models.Order{awaiting},
		pending:  []models.Order{pending},
	}
	notify := &fakeAdminNotifier{}
	job := newReviewTTLJob(t, reader, notify, &fakeFlags{existing: map[string]bool{}})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(notify.events) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notify.events))
	}
	for _, event := range notify.events {
		if event.Type != enums.NotificationTypeStaleReview {
			t.Fatalf("unexpected event type: %s", event.Type)
		}
	}
}

func TestReviewTTLJobSkipsAlreadyFlagged(t *testing.T) {
	awaiting := staleOrder(enums.OrderStatusAwaitingConfirmation)
	reader := &fakeStaleReader{awaiting: []models.Order{awaiting}}
	notify := &fakeAdminNotifier{}
	flags := &fakeFlags{existing: map[string]bool{
		"/admin/order-review/" + awaiting.ID.String(): true,
	}}
	job := newReviewTTLJob(t, reader, notify, flags)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(notify.events) != 0 {
		t.Fatalf("expected no notifications, got %d", len(notify.events))
	}
}

func TestReviewTTLJobAggregatesErrors(t *testing.T) {
	reader := &fakeStaleReader{
		awaiting: []models.Order{staleOrder(enums.OrderStatusAwaitingConfirmation)},
		pending:  []models.Order{staleOrder(enums.OrderStatusPendingReview)},
	}
	notify := &fakeAdminNotifier{err: errors.New("mailer down")}
	job := newReviewTTLJob(t, reader, notify, &fakeFlags{existing: map[string]bool{}})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected aggregated error")
	}
}

func TestReviewTTLJobUsesConfiguredCutoffs(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	reader := &fakeStaleReader{}
	job := newReviewTTLJob(t, reader, &fakeAdminNotifier{}, &fakeFlags{existing: map[string]bool{}})
	job.now = func() time.Time { return now }
	job.awaitingAfter = 48 * time.Hour
	job.pendingAfter = 24 * time.Hour

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
