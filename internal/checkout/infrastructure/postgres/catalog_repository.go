package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yourbarrio/checkout-service/internal/checkout/domain"
)

// CatalogRepository reads listings and vendor summaries. The checkout
// workflow never writes either table.
type CatalogRepository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewCatalogRepository(log *slog.Logger, pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{log: log, pool: pool}
}

func (r *CatalogRepository) Get(ctx context.Context, id string) (domain.Listing, error) {
	var l domain.Listing
	err := r.pool.QueryRow(ctx,
		`SELECT id, vendor_id, title, unit_price_cents, COALESCE(photo_url, '') FROM listings WHERE id=$1`, id).
		Scan(&l.ID, &l.VendorID, &l.Title, &l.UnitPriceCents, &l.PhotoURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	if err != nil {
		return domain.Listing{}, err
	}
	return l, nil
}

// VendorRepository wraps the same pool for vendor summary reads.
type VendorRepository struct {
	pool *pgxpool.Pool
}

func NewVendorRepository(pool *pgxpool.Pool) *VendorRepository {
	return &VendorRepository{pool: pool}
}

func (r *VendorRepository) Get(ctx context.Context, id string) (domain.Vendor, error) {
	var v domain.Vendor
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(logo_url, '') FROM vendors WHERE id=$1`, id).
		Scan(&v.ID, &v.Name, &v.LogoURL)
	if err != nil {
		return domain.Vendor{}, err
	}
	return v, nil
}
