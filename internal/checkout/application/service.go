package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/yourbarrio/checkout-service/internal/checkout/domain"
)

// CartView is what every cart read and mutation returns: the canonical cart
// state re-read from storage, with the vendor summary denormalized in. Both
// fields are nil when the customer has no active cart.
type CartView struct {
	Cart   *domain.Cart
	Vendor *domain.Vendor
}

type Service struct {
	log      *slog.Logger
	listings ListingRepository
	vendors  VendorRepository
	carts    CartRepository
	orders   OrderRepository

	// traceparent is resolved per call; injected so tests don't need a
	// tracer provider.
	traceparent func(ctx context.Context) string
}

func NewService(log *slog.Logger, listings ListingRepository, vendors VendorRepository, carts CartRepository, orders OrderRepository, traceparent func(ctx context.Context) string) *Service {
	if traceparent == nil {
		traceparent = func(context.Context) string { return "" }
	}
	return &Service{
		log:         log,
		listings:    listings,
		vendors:     vendors,
		carts:       carts,
		orders:      orders,
		traceparent: traceparent,
	}
}

// ActiveCart returns the customer's cart view, nil fields when none exists.
func (s *Service) ActiveCart(ctx context.Context, customerID string) (*CartView, error) {
	return s.view(ctx, customerID)
}

// AddItem resolves the listing and adds quantity of it to the customer's
// active cart, creating the cart when none exists. When the active cart
// belongs to another vendor the call fails with VendorMismatchError unless
// allowVendorSwitch is set, in which case the old cart is abandoned and a
// fresh one created for the listing's vendor. Adding a listing already in
// the cart increments its line instead of duplicating it.
func (s *Service) AddItem(ctx context.Context, customerID, listingID string, quantity int, allowVendorSwitch bool) (*CartView, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	listing, err := s.listings.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.ActiveCart(ctx, customerID)
	if err != nil {
		return nil, err
	}

	switch {
	case cart == nil:
		fresh := domain.NewCart(customerID, listing.VendorID)
		if err := s.carts.CreateCart(ctx, fresh); err != nil {
			return nil, err
		}
		cart = &fresh
	case cart.VendorID != listing.VendorID:
		if !allowVendorSwitch {
			return nil, &domain.VendorMismatchError{VendorID: cart.VendorID}
		}
		if err := s.abandon(ctx, cart); err != nil {
			return nil, err
		}
		s.log.Info("cart switched vendors", "customer_id", customerID, "old_vendor", cart.VendorID, "new_vendor", listing.VendorID)
		fresh := domain.NewCart(customerID, listing.VendorID)
		if err := s.carts.CreateCart(ctx, fresh); err != nil {
			return nil, err
		}
		cart = &fresh
	}

	if existing := cart.ItemByListing(listingID); existing != nil {
		if err := s.carts.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+quantity); err != nil {
			return nil, err
		}
	} else {
		if err := s.carts.InsertItem(ctx, domain.NewCartItem(*cart, listing, quantity)); err != nil {
			return nil, err
		}
	}

	return s.view(ctx, customerID)
}

// UpdateItem sets a line item's quantity; zero deletes the line. The item
// must belong to the customer's active cart.
func (s *Service) UpdateItem(ctx context.Context, customerID, itemID string, quantity int) (*CartView, error) {
	if quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	cart, err := s.carts.ActiveCart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, domain.ErrCartNotFound
	}
	item := cart.Item(itemID)
	if item == nil {
		return nil, domain.ErrItemNotFound
	}

	if quantity == 0 {
		err = s.carts.DeleteItem(ctx, item.ID)
	} else {
		err = s.carts.UpdateItemQuantity(ctx, item.ID, quantity)
	}
	if err != nil {
		return nil, err
	}

	return s.view(ctx, customerID)
}

// RemoveItem is UpdateItem with quantity zero.
func (s *Service) RemoveItem(ctx context.Context, customerID, itemID string) (*CartView, error) {
	return s.UpdateItem(ctx, customerID, itemID, 0)
}

// SetFulfillmentType records the customer's pickup/delivery choice on the
// active cart. Writing the value it already holds is skipped.
func (s *Service) SetFulfillmentType(ctx context.Context, customerID string, t domain.FulfillmentType) (*CartView, error) {
	if !t.Valid() {
		return nil, domain.ErrInvalidFulfillment
	}

	cart, err := s.carts.ActiveCart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, domain.ErrCartNotFound
	}

	if cart.Fulfillment == nil || *cart.Fulfillment != t {
		if err := s.carts.SetFulfillment(ctx, cart.ID, t); err != nil {
			return nil, err
		}
	}

	return s.view(ctx, customerID)
}

// ClearCart abandons the active cart and deletes its items. A customer with
// no active cart gets a successful no-op.
func (s *Service) ClearCart(ctx context.Context, customerID string) error {
	cart, err := s.carts.ActiveCart(ctx, customerID)
	if err != nil {
		return err
	}
	if cart == nil {
		return nil
	}
	return s.abandon(ctx, cart)
}

func (s *Service) abandon(ctx context.Context, cart *domain.Cart) error {
	if err := s.carts.DeleteItems(ctx, cart.ID); err != nil {
		return err
	}
	return s.carts.SetStatus(ctx, cart.ID, domain.CartStatusAbandoned)
}

// PlaceOrderInput carries everything the checkout form submits.
type PlaceOrderInput struct {
	CartID       string
	Contact      domain.Contact
	Fulfillment  domain.FulfillmentType
	Delivery     domain.DeliveryAddress
	PickupTime   string
	DeliveryTime string
}

// PlaceOrder turns the customer's active cart into an order and returns the
// order number. Preconditions are checked in a fixed sequence, each failing
// with its own error. The order, its items, the cart's submitted status and
// the OrderPlaced outbox event are written in one transaction; number
// collisions retry with a fresh candidate.
func (s *Service) PlaceOrder(ctx context.Context, customerID string, in PlaceOrderInput) (string, error) {
	if strings.TrimSpace(in.Contact.Name) == "" || strings.TrimSpace(in.Contact.Phone) == "" {
		return "", domain.ErrMissingContactDetails
	}

	cart, err := s.carts.ActiveCart(ctx, customerID)
	if err != nil {
		return "", err
	}
	if cart == nil || (in.CartID != "" && cart.ID != in.CartID) {
		return "", domain.ErrCartNotFound
	}
	if len(cart.Items) == 0 {
		return "", domain.ErrEmptyCart
	}

	fulfillment := in.Fulfillment
	if fulfillment == "" && cart.Fulfillment != nil {
		fulfillment = *cart.Fulfillment
	}
	if fulfillment == "" {
		return "", domain.ErrMissingFulfillmentType
	}
	if !fulfillment.Valid() {
		return "", domain.ErrInvalidFulfillment
	}
	if fulfillment == domain.FulfillmentDelivery && strings.TrimSpace(in.Delivery.Line1) == "" {
		return "", domain.ErrMissingDeliveryAddress
	}

	traceparent := s.traceparent(ctx)

	number, err := AllocateOrderNumber(ctx, NewOrderNumber, func(ctx context.Context, candidate string) error {
		order := domain.NewOrder(candidate, *cart, fulfillment, in.Contact, in.Delivery, in.PickupTime, in.DeliveryTime)
		event := domain.OrderPlaced{
			OrderID:     order.ID,
			OrderNumber: order.Number,
			CustomerID:  order.CustomerID,
			VendorID:    order.VendorID,
			Fulfillment: string(order.Fulfillment),
			TotalCents:  order.TotalCents,
			ItemCount:   len(order.Items),
		}
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		return s.orders.CreateWithOutbox(ctx, order, "OrderPlaced", payload, traceparent)
	}, orderNumberAttempts)
	if err != nil {
		return "", err
	}

	s.log.Info("order placed", "customer_id", customerID, "order_number", number, "vendor_id", cart.VendorID)
	return number, nil
}

// Order fetches one of the customer's orders by its human-facing number.
func (s *Service) Order(ctx context.Context, customerID, number string) (domain.Order, error) {
	return s.orders.ByNumber(ctx, customerID, number)
}

func (s *Service) view(ctx context.Context, customerID string) (*CartView, error) {
	cart, err := s.carts.ActiveCart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return &CartView{}, nil
	}
	vendor, err := s.vendors.Get(ctx, cart.VendorID)
	if err != nil {
		return nil, err
	}
	return &CartView{Cart: cart, Vendor: &vendor}, nil
}
