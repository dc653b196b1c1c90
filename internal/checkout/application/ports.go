package application

import (
	"context"

	"github.com/yourbarrio/checkout-service/internal/checkout/domain"
)

type ListingRepository interface {
	// Get returns domain.ErrListingNotFound when the listing doesn't exist.
	Get(ctx context.Context, id string) (domain.Listing, error)
}

type VendorRepository interface {
	Get(ctx context.Context, id string) (domain.Vendor, error)
}

type CartRepository interface {
	// ActiveCart returns the newest active cart with its items, or nil
	// when the customer has none.
	ActiveCart(ctx context.Context, customerID string) (*domain.Cart, error)
	CreateCart(ctx context.Context, cart domain.Cart) error
	InsertItem(ctx context.Context, item domain.CartItem) error
	UpdateItemQuantity(ctx context.Context, itemID string, quantity int) error
	DeleteItem(ctx context.Context, itemID string) error
	DeleteItems(ctx context.Context, cartID string) error
	SetFulfillment(ctx context.Context, cartID string, t domain.FulfillmentType) error
	SetStatus(ctx context.Context, cartID string, status domain.CartStatus) error
}

type OrderRepository interface {
	// CreateWithOutbox persists the order with its items, marks the
	// originating cart submitted and enqueues the outbox event, all in one
	// transaction. Returns domain.ErrOrderNumberTaken when the order number
	// collides with an existing one.
	CreateWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error
	// ByNumber returns domain.ErrOrderNotFound when no order with that
	// number belongs to the customer.
	ByNumber(ctx context.Context, customerID, number string) (domain.Order, error)
}
