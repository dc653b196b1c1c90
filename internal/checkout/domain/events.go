package domain

// OrderPlaced is published through the outbox when a cart is turned into
// an order.
type OrderPlaced struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	CustomerID  string `json:"customer_id"`
	VendorID    string `json:"vendor_id"`
	Fulfillment string `json:"fulfillment_type"`
	TotalCents  int64  `json:"total_cents"`
	ItemCount   int    `json:"item_count"`
}
