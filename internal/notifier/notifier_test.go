package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoplane/shoplane-backend/pkg/db/models"
	"github.com/shoplane/shoplane-backend/pkg/enums"
)

type mailCall struct {
	to      []string
	subject string
	body    string
}

type stubMailer struct {
	calls []mailCall
	err   error
}

func (s *stubMailer) Send(ctx context.Context, to []string, subject, body string) error {
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, mailCall{to: to, subject: subject, body: body})
	return nil
}

type stubAdmins struct {
	admins []models.User
	err    error
}

func (s *stubAdmins) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.admins, s.err
}

type stubInbox struct {
	rows []*models.Notification
	err  error
}

func (s *stubInbox) Create(ctx context.Context, n *models.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, n)
	return nil
}

func submittedOrder() *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		Reference:     "SL-A1B2C3",
		Status:        enums.OrderStatusPendingReview,
		SubtotalCents: 4500,
	}
}

func TestNotifyAdminsFansOut(t *testing.T) {
	mail := &stubMailer{}
	inbox := &stubInbox{}
	adminA := models.User{ID: uuid.New(), Email: "ops-a@shoplane.dev"}
	adminB := models.User{ID: uuid.New(), Email: "ops-b@shoplane.dev"}
	svc, err := NewService(mail, &stubAdmins{admins: []models.User{adminA, adminB}}, inbox, nil)
	require.NoError(t, err)

	err = svc.NotifyAdmins(context.Background(), Event{
		Type:  enums.NotificationTypeOrderSubmitted,
		Order: submittedOrder(),
	})
	require.NoError(t, err)

	require.Len(t, inbox.rows, 2)
	assert.Equal(t, adminA.ID, inbox.rows[0].UserID)
	assert.Equal(t, enums.NotificationTypeOrderSubmitted, inbox.rows[0].Type)
	require.NotNil(t, inbox.rows[0].Link)

	require.Len(t, mail.calls, 1)
	assert.ElementsMatch(t, []string{adminA.Email, adminB.Email}, mail.calls[0].to)
	assert.Contains(t, mail.calls[0].subject, "SL-A1B2C3")
}

func TestNotifyAdminsNoAdminsIsNoOp(t *testing.T) {
	mail := &stubMailer{}
	svc, err := NewService(mail, &stubAdmins{}, &stubInbox{}, nil)
	require.NoError(t, err)

	err = svc.NotifyAdmins(context.Background(), Event{
		Type:  enums.NotificationTypeOrderSubmitted,
		Order: submittedOrder(),
	})
	require.NoError(t, err)
	assert.Empty(t, mail.calls)
}

func TestNotifyAdminsAggregatesFailures(t *testing.T) {
	mail := &stubMailer{err: errors.New("smtp down")}
	inbox := &stubInbox{err: errors.New("insert failed")}
	svc, err := NewService(mail, &stubAdmins{admins: []models.User{{ID: uuid.New(), Email: "ops@shoplane.dev"}}}, inbox, nil)
	require.NoError(t, err)

	err = svc.NotifyAdmins(context.Background(), Event{
		Type:  enums.NotificationTypeOrderSubmitted,
		Order: submittedOrder(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notify admins")
}

func TestNotifyCustomerPricedIncludesLinks(t *testing.T) {
	mail := &stubMailer{}
	svc, err := NewService(mail, &stubAdmins{}, &stubInbox{}, nil)
	require.NoError(t, err)

	shipping := 500
	total := 5000
	order := submittedOrder()
	order.Status = enums.OrderStatusAwaitingConfirmation
	order.ShippingCents = &shipping
	order.FinalPriceCents = &total

	err = svc.NotifyCustomer(context.Background(), "buyer@example.dev", Event{
		Type:       enums.NotificationTypeOrderPriced,
		Order:      order,
		ConfirmURL: "https://shop.example.dev/confirm/x",
		CancelURL:  "https://shop.example.dev/cancel/x",
	})
	require.NoError(t, err)

	require.Len(t, mail.calls, 1)
	assert.Equal(t, []string{"buyer@example.dev"}, mail.calls[0].to)
	assert.Contains(t, mail.calls[0].body, "https://shop.example.dev/confirm/x")
	assert.Contains(t, mail.calls[0].body, "https://shop.example.dev/cancel/x")
	assert.Contains(t, mail.calls[0].body, "$50.00")
}

func TestNotifyCustomerRequiresEmail(t *testing.T) {
	svc, err := NewService(&stubMailer{}, &stubAdmins{}, &stubInbox{}, nil)
	require.NoError(t, err)

	err = svc.NotifyCustomer(context.Background(), "  ", Event{
		Type:  enums.NotificationTypeOrderConfirmed,
		Order: submittedOrder(),
	})
	require.Error(t, err)
}

func TestCustomerConfirmedMessageUsesPublicID(t *testing.T) {
	order := submittedOrder()
	publicID := "482913"
	total := 5000
	order.PublicOrderID = &publicID
	order.Status = enums.OrderStatusConfirmed
	order.FinalPriceCents = &total

	subject, body := customerMessage(Event{Type: enums.NotificationTypeOrderConfirmed, Order: order})
	assert.True(t, strings.Contains(subject, "#482913"))
	assert.Contains(t, body, "$50.00")
}
