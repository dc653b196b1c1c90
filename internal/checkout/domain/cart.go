package domain

import (
	"time"

	"github.com/google/uuid"
)

type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusSubmitted CartStatus = "submitted"
	CartStatusAbandoned CartStatus = "abandoned"
)

type FulfillmentType string

const (
	FulfillmentPickup   FulfillmentType = "pickup"
	FulfillmentDelivery FulfillmentType = "delivery"
)

func (t FulfillmentType) Valid() bool {
	return t == FulfillmentPickup || t == FulfillmentDelivery
}

// Cart is a customer's in-progress order, bound to exactly one vendor.
// A customer has at most one active cart at a time.
type Cart struct {
	ID          string
	CustomerID  string
	VendorID    string
	Status      CartStatus
	Fulfillment *FulfillmentType
	Items       []CartItem
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CartItem is one listing+quantity line inside a cart. Title, price and
// image are snapshotted at add time so later listing edits don't rewrite
// carts. Unique per (cart, listing).
type CartItem struct {
	ID             string
	CartID         string
	VendorID       string
	ListingID      string
	Title          string
	UnitPriceCents int64
	ImageURL       string
	Quantity       int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewCart(customerID, vendorID string) Cart {
	now := time.Now().UTC()
	return Cart{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		VendorID:   vendorID,
		Status:     CartStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func NewCartItem(cart Cart, listing Listing, quantity int) CartItem {
	now := time.Now().UTC()
	return CartItem{
		ID:             uuid.NewString(),
		CartID:         cart.ID,
		VendorID:       cart.VendorID,
		ListingID:      listing.ID,
		Title:          listing.Title,
		UnitPriceCents: listing.UnitPriceCents,
		ImageURL:       listing.PhotoURL,
		Quantity:       quantity,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ItemByListing returns the line item for a listing, or nil.
func (c *Cart) ItemByListing(listingID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ListingID == listingID {
			return &c.Items[i]
		}
	}
	return nil
}

// Item returns the line item with the given id, or nil.
func (c *Cart) Item(itemID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}

func (c *Cart) SubtotalCents() int64 {
	var total int64
	for _, item := range c.Items {
		total += int64(item.Quantity) * item.UnitPriceCents
	}
	return total
}
