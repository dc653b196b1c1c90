package application

import "context"

type NotificationRepository interface {
	// Record is idempotent per order: re-delivered events don't produce
	// duplicate notifications.
	Record(ctx context.Context, n VendorNotification) error
}
