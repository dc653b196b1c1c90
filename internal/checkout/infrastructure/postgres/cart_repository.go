package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yourbarrio/checkout-service/internal/checkout/domain"
)

type CartRepository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewCartRepository(log *slog.Logger, pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{log: log, pool: pool}
}

// ActiveCart loads the newest active cart with its items. The ORDER BY
// keeps reads deterministic if the one-active-cart invariant is ever
// violated by a concurrent create.
func (r *CartRepository) ActiveCart(ctx context.Context, customerID string) (*domain.Cart, error) {
	var c domain.Cart
	var fulfillment *string
	err := r.pool.QueryRow(ctx, `
		SELECT id, customer_id, vendor_id, status, fulfillment_type, created_at, updated_at
		FROM carts
		WHERE customer_id=$1 AND status='active'
		ORDER BY created_at DESC
		LIMIT 1
	`, customerID).Scan(&c.ID, &c.CustomerID, &c.VendorID, &c.Status, &fulfillment, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if fulfillment != nil {
		t := domain.FulfillmentType(*fulfillment)
		c.Fulfillment = &t
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, cart_id, vendor_id, listing_id, title, unit_price_cents, COALESCE(image_url, ''), quantity, created_at, updated_at
		FROM cart_items
		WHERE cart_id=$1
		ORDER BY created_at
	`, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.VendorID, &item.ListingID, &item.Title, &item.UnitPriceCents, &item.ImageURL, &item.Quantity, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CartRepository) CreateCart(ctx context.Context, cart domain.Cart) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO carts (id, customer_id, vendor_id, status, fulfillment_type, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, cart.ID, cart.CustomerID, cart.VendorID, cart.Status, cart.Fulfillment, cart.CreatedAt, cart.UpdatedAt)
	return err
}

// InsertItem upserts on (cart_id, listing_id) so two concurrent adds of the
// same listing merge into one line instead of violating the uniqueness
// constraint.
func (r *CartRepository) InsertItem(ctx context.Context, item domain.CartItem) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cart_items (id, cart_id, vendor_id, listing_id, title, unit_price_cents, image_url, quantity, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (cart_id, listing_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
	`, item.ID, item.CartID, item.VendorID, item.ListingID, item.Title, item.UnitPriceCents, item.ImageURL, item.Quantity, item.CreatedAt, item.UpdatedAt)
	return err
}

func (r *CartRepository) UpdateItemQuantity(ctx context.Context, itemID string, quantity int) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE cart_items SET quantity=$2, updated_at=$3 WHERE id=$1`,
		itemID, quantity, time.Now().UTC())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *CartRepository) DeleteItem(ctx context.Context, itemID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id=$1`, itemID)
	return err
}

func (r *CartRepository) DeleteItems(ctx context.Context, cartID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID)
	return err
}

// SetFulfillment skips the write when the stored value already matches.
func (r *CartRepository) SetFulfillment(ctx context.Context, cartID string, t domain.FulfillmentType) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE carts SET fulfillment_type=$2, updated_at=$3
		WHERE id=$1 AND fulfillment_type IS DISTINCT FROM $2
	`, cartID, t, time.Now().UTC())
	return err
}

func (r *CartRepository) SetStatus(ctx context.Context, cartID string, status domain.CartStatus) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE carts SET status=$2, updated_at=$3 WHERE id=$1`,
		cartID, status, time.Now().UTC())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrCartNotFound
	}
	return nil
}
