package postgres

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yourbarrio/checkout-service/internal/checkout/domain"
)

const uniqueViolation = "23505"

type OrderRepository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewOrderRepository(log *slog.Logger, pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{log: log, pool: pool}
}

// CreateWithOutbox writes the order, its items, the cart's submitted status
// and the outbox event in one transaction, so a partially created order can
// never be observed. A unique violation on the order number maps to
// domain.ErrOrderNumberTaken for the allocator's retry loop.
func (r *OrderRepository) CreateWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, order_number, customer_id, vendor_id, cart_id, status, fulfillment_type,
			contact_name, contact_phone, contact_email,
			delivery_address1, delivery_address2, delivery_city, delivery_postal_code,
			pickup_time, delivery_time,
			subtotal_cents, fee_cents, total_cents, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`, o.ID, o.Number, o.CustomerID, o.VendorID, o.CartID, o.Status, o.Fulfillment,
		o.Contact.Name, o.Contact.Phone, o.Contact.Email,
		o.Delivery.Line1, o.Delivery.Line2, o.Delivery.City, o.Delivery.PostalCode,
		o.PickupTime, o.DeliveryTime,
		o.SubtotalCents, o.FeeCents, o.TotalCents, o.CreatedAt)
	if err != nil {
		if isOrderNumberCollision(err) {
			return domain.ErrOrderNumberTaken
		}
		return err
	}

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(`
			INSERT INTO order_items (id, order_id, listing_id, title, unit_price_cents, image_url, quantity)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, item.ID, item.OrderID, item.ListingID, item.Title, item.UnitPriceCents, item.ImageURL, item.Quantity)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	ct, err := tx.Exec(ctx,
		`UPDATE carts SET status=$2, updated_at=$3 WHERE id=$1 AND customer_id=$4 AND status='active'`,
		o.CartID, domain.CartStatusSubmitted, o.CreatedAt, o.CustomerID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrCartNotFound
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		 VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		"order", o.ID, eventType, payload, map[string]string{"source": "checkout-service"}, traceparent)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *OrderRepository) ByNumber(ctx context.Context, customerID, number string) (domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, order_number, customer_id, vendor_id, cart_id, status, fulfillment_type,
			contact_name, contact_phone, COALESCE(contact_email, ''),
			COALESCE(delivery_address1, ''), COALESCE(delivery_address2, ''), COALESCE(delivery_city, ''), COALESCE(delivery_postal_code, ''),
			COALESCE(pickup_time, ''), COALESCE(delivery_time, ''),
			subtotal_cents, fee_cents, total_cents, created_at
		FROM orders
		WHERE customer_id=$1 AND order_number=$2
	`, customerID, number).Scan(
		&o.ID, &o.Number, &o.CustomerID, &o.VendorID, &o.CartID, &o.Status, &o.Fulfillment,
		&o.Contact.Name, &o.Contact.Phone, &o.Contact.Email,
		&o.Delivery.Line1, &o.Delivery.Line2, &o.Delivery.City, &o.Delivery.PostalCode,
		&o.PickupTime, &o.DeliveryTime,
		&o.SubtotalCents, &o.FeeCents, &o.TotalCents, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, listing_id, title, unit_price_cents, COALESCE(image_url, ''), quantity
		FROM order_items WHERE order_id=$1
	`, o.ID)
	if err != nil {
		return domain.Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ListingID, &item.Title, &item.UnitPriceCents, &item.ImageURL, &item.Quantity); err != nil {
			return domain.Order{}, err
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func isOrderNumberCollision(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && strings.Contains(pgErr.ConstraintName, "order_number")
}
