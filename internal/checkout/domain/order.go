package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

// Statuses after "requested" are advanced by the vendor side, not here.
const (
	OrderStatusRequested      OrderStatus = "requested"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusReady          OrderStatus = "ready"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusFulfilled      OrderStatus = "fulfilled"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusCompleted      OrderStatus = "completed"
)

type Contact struct {
	Name  string
	Phone string
	Email string
}

type DeliveryAddress struct {
	Line1      string
	Line2      string
	City       string
	PostalCode string
}

// Order is the immutable record built from a submitted cart.
type Order struct {
	ID            string
	Number        string
	CustomerID    string
	VendorID      string
	CartID        string
	Status        OrderStatus
	Fulfillment   FulfillmentType
	Contact       Contact
	Delivery      DeliveryAddress
	PickupTime    string
	DeliveryTime  string
	SubtotalCents int64
	FeeCents      int64
	TotalCents    int64
	Items         []OrderItem
	CreatedAt     time.Time
}

// OrderItem is a cart line frozen at order-creation time.
type OrderItem struct {
	ID             string
	OrderID        string
	ListingID      string
	Title          string
	UnitPriceCents int64
	ImageURL       string
	Quantity       int
}

// NewOrder snapshots a cart into an order. Fees are always zero; there is
// no fee engine.
func NewOrder(number string, cart Cart, fulfillment FulfillmentType, contact Contact, delivery DeliveryAddress, pickupTime, deliveryTime string) Order {
	o := Order{
		ID:           uuid.NewString(),
		Number:       number,
		CustomerID:   cart.CustomerID,
		VendorID:     cart.VendorID,
		CartID:       cart.ID,
		Status:       OrderStatusRequested,
		Fulfillment:  fulfillment,
		Contact:      contact,
		Delivery:     delivery,
		PickupTime:   pickupTime,
		DeliveryTime: deliveryTime,
		CreatedAt:    time.Now().UTC(),
	}

	o.Items = make([]OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		o.Items = append(o.Items, OrderItem{
			ID:             uuid.NewString(),
			OrderID:        o.ID,
			ListingID:      line.ListingID,
			Title:          line.Title,
			UnitPriceCents: line.UnitPriceCents,
			ImageURL:       line.ImageURL,
			Quantity:       line.Quantity,
		})
		o.SubtotalCents += int64(line.Quantity) * line.UnitPriceCents
	}
	o.TotalCents = o.SubtotalCents + o.FeeCents
	return o
}
