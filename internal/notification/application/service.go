package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// VendorNotification is one "new order" notice for a vendor's inbox.
type VendorNotification struct {
	ID          string
	OrderID     string
	VendorID    string
	OrderNumber string
	TotalCents  int64
	NotifiedAt  time.Time
}

type Service struct {
	log  *slog.Logger
	repo NotificationRepository
}

func NewService(log *slog.Logger, repo NotificationRepository) *Service {
	return &Service{log: log, repo: repo}
}

// NotifyOrderPlaced records a notification row for the vendor. Delivery to
// the vendor's device happens out of band off this table.
func (s *Service) NotifyOrderPlaced(ctx context.Context, orderID, vendorID, orderNumber string, totalCents int64) error {
	n := VendorNotification{
		ID:          uuid.NewString(),
		OrderID:     orderID,
		VendorID:    vendorID,
		OrderNumber: orderNumber,
		TotalCents:  totalCents,
		NotifiedAt:  time.Now().UTC(),
	}
	if err := s.repo.Record(ctx, n); err != nil {
		return err
	}
	s.log.Info("vendor notified", "vendor_id", vendorID, "order_number", orderNumber)
	return nil
}
