package domain

import (
	"errors"
	"fmt"
)

var (
	ErrListingNotFound        = errors.New("listing not found")
	ErrCartNotFound           = errors.New("no active cart")
	ErrItemNotFound           = errors.New("cart item not found")
	ErrInvalidQuantity        = errors.New("quantity must be a positive integer")
	ErrInvalidFulfillment     = errors.New("fulfillment type must be pickup or delivery")
	ErrEmptyCart              = errors.New("cart has no items")
	ErrMissingContactDetails  = errors.New("contact name and phone are required")
	ErrMissingFulfillmentType = errors.New("fulfillment type is required")
	ErrMissingDeliveryAddress = errors.New("delivery address is required")
	ErrOrderNumberTaken       = errors.New("order number already taken")
	ErrOrderCreationFailed    = errors.New("could not create order")
	ErrOrderNotFound          = errors.New("order not found")
)

// VendorMismatchError means the customer's active cart belongs to a
// different vendor than the listing being added. It carries the cart's
// vendor id so the caller can prompt before discarding the cart.
type VendorMismatchError struct {
	VendorID string
}

func (e *VendorMismatchError) Error() string {
	return fmt.Sprintf("active cart belongs to another vendor (%s)", e.VendorID)
}
