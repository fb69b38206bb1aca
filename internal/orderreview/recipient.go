package orderreview

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/shoplane/shoplane-backend/pkg/db/models"
	pkgerrors "github.com/shoplane/shoplane-backend/pkg/errors"
)

// accountDirectory looks up the registered email for an account.
type accountDirectory interface {
	EmailByID(ctx context.Context, id uuid.UUID) (string, error)
}

// RecipientResolver picks the outbound email address for an order. Two
// historical intake paths stored contact details in different places, so
// resolution walks a fixed fallback chain: guest email, shipping-address
// email, previously stored order email, registered account email. The first
// syntactically valid, non-placeholder hit wins.
type RecipientResolver struct {
	placeholderDomains map[string]struct{}
}

// NewRecipientResolver builds a resolver that rejects addresses on the
// given placeholder domains (seed data and legacy imports used sentinels
// like no-reply@example.com).
func NewRecipientResolver(placeholderDomains []string) *RecipientResolver {
	blocked := make(map[string]struct{}, len(placeholderDomains))
	for _, domain := range placeholderDomains {
		trimmed := strings.ToLower(strings.TrimSpace(domain))
		if trimmed != "" {
			blocked[trimmed] = struct{}{}
		}
	}
	return &RecipientResolver{placeholderDomains: blocked}
}

// Resolve returns the deliverable address for the order, or a
// CodeUnresolvableRecipient error when the whole chain comes up empty.
func (r *RecipientResolver) Resolve(ctx context.Context, order *models.Order, accounts accountDirectory) (string, error) {
	candidates := make([]string, 0, 4)
	if order.GuestEmail != nil {
		candidates = append(candidates, *order.GuestEmail)
	}
	if order.ShippingAddress != nil && order.ShippingAddress.Email != nil {
		candidates = append(candidates, *order.ShippingAddress.Email)
	}
	if order.CustomerEmail != nil {
		candidates = append(candidates, *order.CustomerEmail)
	}

	for _, candidate := range candidates {
		if email, ok := r.usable(candidate); ok {
			return email, nil
		}
	}

	if order.CustomerID != nil && accounts != nil {
		accountEmail, err := accounts.EmailByID(ctx, *order.CustomerID)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up account email")
		}
		if email, ok := r.usable(accountEmail); ok {
			return email, nil
		}
	}

	return "", pkgerrors.New(pkgerrors.CodeUnresolvableRecipient, "no deliverable email address for order")
}

// usable validates syntax and filters placeholder domains, returning the
// normalized address.
func (r *RecipientResolver) usable(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return "", false
	}
	at := strings.LastIndex(addr.Address, "@")
	if at < 0 {
		return "", false
	}
	domain := strings.ToLower(addr.Address[at+1:])
	if _, blocked := r.placeholderDomains[domain]; blocked {
		return "", false
	}
	return addr.Address, true
}
