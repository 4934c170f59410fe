package enums

import "fmt"

// NotificationType categorizes in-app notifications.
type NotificationType string

const (
	NotificationPaymentConfirmed NotificationType = "payment_confirmed"
	NotificationPaymentFailed    NotificationType = "payment_failed"
	NotificationOrderCancelled   NotificationType = "order_cancelled"
	NotificationOrderOverdue     NotificationType = "order_overdue"
	NotificationRefundIssued     NotificationType = "refund_issued"
)

var validNotificationTypes = []NotificationType{
	NotificationPaymentConfirmed,
	NotificationPaymentFailed,
	NotificationOrderCancelled,
	NotificationOrderOverdue,
	NotificationRefundIssued,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
