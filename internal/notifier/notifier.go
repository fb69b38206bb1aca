package notifier

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/shoplane/shoplane-backend/pkg/db/models"
	"github.com/shoplane/shoplane-backend/pkg/enums"
	pkgerrors "github.com/shoplane/shoplane-backend/pkg/errors"
	"github.com/shoplane/shoplane-backend/pkg/logger"
)

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// AdminDirectory lists the administrator accounts to fan out to.
type AdminDirectory interface {
	ListAdmins(ctx context.Context) ([]models.User, error)
}

// InboxWriter persists in-app notification rows for admin users.
type InboxWriter interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Event describes a workflow occurrence worth telling someone about.
type Event struct {
	Type       enums.NotificationType
	Order      *models.Order
	ConfirmURL string
	CancelURL  string
	Reason     *string
}

// Notifier fans workflow events out to admins and customers. All sends are
// best-effort; callers log and count failures but never roll back on them.
type Notifier interface {
	NotifyAdmins(ctx context.Context, event Event) error
	NotifyCustomer(ctx context.Context, email string, event Event) error
}

type service struct {
	mail   Mailer
	admins AdminDirectory
	inbox  InboxWriter
	log    *logger.Logger
}

// NewService wires the notifier dependencies.
func NewService(mail Mailer, admins AdminDirectory, inbox InboxWriter, log *logger.Logger) (Notifier, error) {
	if mail == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if admins == nil {
		return nil, fmt.Errorf("admin directory required")
	}
	if inbox == nil {
		return nil, fmt.Errorf("inbox writer required")
	}
	return &service{mail: mail, admins: admins, inbox: inbox, log: log}, nil
}

func (s *service) NotifyAdmins(ctx context.Context, event Event) error {
	if event.Order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event order required")
	}

	admins, err := s.admins.ListAdmins(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list admins")
	}
	if len(admins) == 0 {
		if s.log != nil {
			s.log.Warn(ctx, "no admin accounts to notify")
		}
		return nil
	}

	subject, body := adminMessage(event)
	link := orderLink(event.Order)

	var errs error
	for _, admin := range admins {
		row := &models.Notification{
			UserID:  admin.ID,
			Type:    event.Type,
			Title:   subject,
			Message: body,
			Link:    &link,
		}
		if err := s.inbox.Create(ctx, row); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("inbox row for %s: %w", admin.ID, err))
		}
	}

	emails := make([]string, 0, len(admins))
	for _, admin := range admins {
		if strings.TrimSpace(admin.Email) != "" {
			emails = append(emails, admin.Email)
		}
	}
	if len(emails) > 0 {
		if err := s.mail.Send(ctx, emails, subject, body); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("admin email: %w", err))
		}
	}

	if errs != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "notify admins")
	}
	return nil
}

func (s *service) NotifyCustomer(ctx context.Context, email string, event Event) error {
	if event.Order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event order required")
	}
	if strings.TrimSpace(email) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer email required")
	}

	subject, body := customerMessage(event)
	if err := s.mail.Send(ctx, []string{email}, subject, body); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "customer email")
	}
	return nil
}

func adminMessage(event Event) (string, string) {
	order := event.Order
	switch event.Type {
	case enums.NotificationTypeOrderSubmitted:
		return fmt.Sprintf("New order %s awaiting review", order.Reference),
			fmt.Sprintf("Order %s was submitted and is waiting for shipping and final pricing. Subtotal: %s.",
				order.Reference, formatCents(order.SubtotalCents))
	case enums.NotificationTypeOrderConfirmed:
		return fmt.Sprintf("Order %s confirmed", displayID(order)),
			fmt.Sprintf("The customer confirmed order %s. Final price: %s.",
				displayID(order), formatCentsPtr(order.FinalPriceCents))
	case enums.NotificationTypeOrderCancelled:
		return fmt.Sprintf("Order %s cancelled", displayID(order)),
			fmt.Sprintf("Order %s was cancelled%s.", displayID(order), reasonSuffix(event.Reason))
	case enums.NotificationTypeStaleReview:
		return fmt.Sprintf("Order %s needs attention", order.Reference),
			fmt.Sprintf("Order %s has been sitting in %s since %s.",
				order.Reference, order.Status, order.UpdatedAt.Format("2006-01-02 15:04"))
	default:
		return fmt.Sprintf("Order %s update", order.Reference),
			fmt.Sprintf("Order %s changed state to %s.", order.Reference, order.Status)
	}
}

func customerMessage(event Event) (string, string) {
	order := event.Order
	switch event.Type {
	case enums.NotificationTypeOrderSubmitted:
		return fmt.Sprintf("We received your order %s", order.Reference),
			fmt.Sprintf("Thanks for your order %s. We will price shipping and send you a confirmation link shortly.",
				order.Reference)
	case enums.NotificationTypeOrderPriced:
		return fmt.Sprintf("Your order %s is ready to confirm", order.Reference),
			fmt.Sprintf("Shipping for order %s is %s, total %s.\n\nConfirm: %s\nCancel: %s",
				order.Reference, formatCentsPtr(order.ShippingCents), formatCentsPtr(order.FinalPriceCents),
				event.ConfirmURL, event.CancelURL)
	case enums.NotificationTypeOrderConfirmed:
		return fmt.Sprintf("Order %s confirmed", displayID(order)),
			fmt.Sprintf("Your order %s is confirmed. Total: %s.",
				displayID(order), formatCentsPtr(order.FinalPriceCents))
	case enums.NotificationTypeOrderCancelled:
		return fmt.Sprintf("Order %s cancelled", displayID(order)),
			fmt.Sprintf("Your order %s was cancelled%s.", displayID(order), reasonSuffix(event.Reason))
	default:
		return fmt.Sprintf("Order %s update", order.Reference),
			fmt.Sprintf("Your order %s changed state to %s.", order.Reference, order.Status)
	}
}

// displayID prefers the public order number once minted.
func displayID(order *models.Order) string {
	if order.PublicOrderID != nil && *order.PublicOrderID != "" {
		return "#" + *order.PublicOrderID
	}
	return order.Reference
}

func orderLink(order *models.Order) string {
	return "/admin/order-review/" + order.ID.String()
}

func reasonSuffix(reason *string) string {
	if reason == nil || strings.TrimSpace(*reason) == "" {
		return ""
	}
	return fmt.Sprintf(" (reason: %s)", strings.TrimSpace(*reason))
}

func formatCents(cents int) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

func formatCentsPtr(cents *int) string {
	if cents == nil {
		return "-"
	}
	return formatCents(*cents)
}
