package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yourbarrio/checkout-service/internal/notification/application"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Record(ctx context.Context, n application.VendorNotification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO vendor_notifications (id, order_id, vendor_id, order_number, total_cents, notified_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (order_id) DO NOTHING
	`, n.ID, n.OrderID, n.VendorID, n.OrderNumber, n.TotalCents, n.NotifiedAt)
	return err
}
