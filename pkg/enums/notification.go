package enums

import "fmt"

// NotificationType classifies in-app notification rows shown to admins.
type NotificationType string

const (
	NotificationTypeOrderSubmitted NotificationType = "order_submitted"
	NotificationTypeOrderPriced    NotificationType = "order_priced"
	NotificationTypeOrderConfirmed NotificationType = "order_confirmed"
	NotificationTypeOrderCancelled NotificationType = "order_cancelled"
	NotificationTypeStaleReview    NotificationType = "stale_review"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderSubmitted,
	NotificationTypeOrderPriced,
	NotificationTypeOrderConfirmed,
	NotificationTypeOrderCancelled,
	NotificationTypeStaleReview,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
