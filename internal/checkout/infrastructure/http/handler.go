package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/yourbarrio/checkout-service/internal/checkout/application"
	"github.com/yourbarrio/checkout-service/internal/checkout/domain"
)

type Handler struct {
	log      *slog.Logger
	service  *application.Service
	sessions SessionStore
	validate *validator.Validate
	tracer   trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service, sessions SessionStore) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		sessions: sessions,
		validate: validator.New(),
		tracer:   otel.Tracer("checkout-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireSession(h.log, h.sessions))
		r.Get("/cart", h.getCart)
		r.Post("/cart", h.addItem)
		r.Patch("/cart", h.updateCart)
		r.Delete("/cart", h.clearCart)
		r.Post("/orders", h.placeOrder)
		r.Get("/orders/{orderNumber}", h.getOrder)
	})
	return r
}

type addItemRequest struct {
	ListingID     string `json:"listing_id" validate:"required"`
	Quantity      *int   `json:"quantity" validate:"omitempty,min=1"`
	ClearExisting bool   `json:"clear_existing"`
}

type updateCartRequest struct {
	ItemID          *string `json:"item_id"`
	Quantity        *int    `json:"quantity"`
	FulfillmentType *string `json:"fulfillment_type" validate:"omitempty,oneof=pickup delivery"`
}

type placeOrderRequest struct {
	CartID             string `json:"cart_id"`
	ContactName        string `json:"contact_name" validate:"required"`
	ContactPhone       string `json:"contact_phone" validate:"required"`
	ContactEmail       string `json:"contact_email" validate:"omitempty,email"`
	FulfillmentType    string `json:"fulfillment_type" validate:"omitempty,oneof=pickup delivery"`
	DeliveryAddress1   string `json:"delivery_address1"`
	DeliveryAddress2   string `json:"delivery_address2"`
	DeliveryCity       string `json:"delivery_city"`
	DeliveryPostalCode string `json:"delivery_postal_code"`
	PickupTime         string `json:"pickup_time"`
	DeliveryTime       string `json:"delivery_time"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ActiveCart(r.Context(), CustomerID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeCartView(w, http.StatusOK, view)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddCartItem")
	defer span.End()

	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	view, err := h.service.AddItem(ctx, CustomerID(ctx), req.ListingID, quantity, req.ClearExisting)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeCartView(w, http.StatusOK, view)
}

func (h *Handler) updateCart(w http.ResponseWriter, r *http.Request) {
	var req updateCartRequest
	if !h.decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	customerID := CustomerID(ctx)

	var view *application.CartView
	var err error
	switch {
	case req.FulfillmentType != nil:
		view, err = h.service.SetFulfillmentType(ctx, customerID, domain.FulfillmentType(*req.FulfillmentType))
	case req.ItemID != nil:
		if req.Quantity == nil {
			h.writeError(w, domain.ErrInvalidQuantity)
			return
		}
		view, err = h.service.UpdateItem(ctx, customerID, *req.ItemID, *req.Quantity)
	default:
		writeJSONError(w, http.StatusBadRequest, "nothing to update")
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeCartView(w, http.StatusOK, view)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearCart(r.Context(), CustomerID(r.Context())); err != nil {
		h.writeError(w, err)
		return
	}
	writeCartView(w, http.StatusOK, &application.CartView{})
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PlaceOrder")
	defer span.End()

	var req placeOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	number, err := h.service.PlaceOrder(ctx, CustomerID(ctx), application.PlaceOrderInput{
		CartID: req.CartID,
		Contact: domain.Contact{
			Name:  req.ContactName,
			Phone: req.ContactPhone,
			Email: req.ContactEmail,
		},
		Fulfillment: domain.FulfillmentType(req.FulfillmentType),
		Delivery: domain.DeliveryAddress{
			Line1:      req.DeliveryAddress1,
			Line2:      req.DeliveryAddress2,
			City:       req.DeliveryCity,
			PostalCode: req.DeliveryPostalCode,
		},
		PickupTime:   req.PickupTime,
		DeliveryTime: req.DeliveryTime,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"order_number": number})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "orderNumber")
	order, err := h.service.Order(r.Context(), CustomerID(r.Context()), number)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderPayload(order))
}

// decode unmarshals and validates the request body, answering 400 itself
// when either step fails.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var mismatch *domain.VendorMismatchError
	if errors.As(err, &mismatch) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":     mismatch.Error(),
			"code":      "vendor_mismatch",
			"vendor_id": mismatch.VendorID,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrListingNotFound),
		errors.Is(err, domain.ErrCartNotFound),
		errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrOrderNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidFulfillment),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrMissingContactDetails),
		errors.Is(err, domain.ErrMissingFulfillmentType),
		errors.Is(err, domain.ErrMissingDeliveryAddress):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrOrderCreationFailed):
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	default:
		h.log.Error("request failed", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "store unavailable")
	}
}

type cartItemView struct {
	ID             string    `json:"id"`
	ListingID      string    `json:"listing_id"`
	Title          string    `json:"title"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	ImageURL       string    `json:"image_url,omitempty"`
	Quantity       int       `json:"quantity"`
	CreatedAt      time.Time `json:"created_at"`
}

type cartView struct {
	ID              string         `json:"id"`
	VendorID        string         `json:"vendor_id"`
	Status          string         `json:"status"`
	FulfillmentType *string        `json:"fulfillment_type"`
	SubtotalCents   int64          `json:"subtotal_cents"`
	Items           []cartItemView `json:"items"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type vendorView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	LogoURL string `json:"logo_url,omitempty"`
}

func writeCartView(w http.ResponseWriter, status int, view *application.CartView) {
	// Cart state is per-session and mutable; never let intermediaries cache it.
	w.Header().Set("Cache-Control", "no-store")

	body := map[string]any{"cart": nil, "vendor": nil}
	if view.Cart != nil {
		c := view.Cart
		items := make([]cartItemView, 0, len(c.Items))
		for _, item := range c.Items {
			items = append(items, cartItemView{
				ID:             item.ID,
				ListingID:      item.ListingID,
				Title:          item.Title,
				UnitPriceCents: item.UnitPriceCents,
				ImageURL:       item.ImageURL,
				Quantity:       item.Quantity,
				CreatedAt:      item.CreatedAt,
			})
		}
		var fulfillment *string
		if c.Fulfillment != nil {
			f := string(*c.Fulfillment)
			fulfillment = &f
		}
		body["cart"] = cartView{
			ID:              c.ID,
			VendorID:        c.VendorID,
			Status:          string(c.Status),
			FulfillmentType: fulfillment,
			SubtotalCents:   c.SubtotalCents(),
			Items:           items,
			CreatedAt:       c.CreatedAt,
			UpdatedAt:       c.UpdatedAt,
		}
	}
	if view.Vendor != nil {
		body["vendor"] = vendorView{
			ID:      view.Vendor.ID,
			Name:    view.Vendor.Name,
			LogoURL: view.Vendor.LogoURL,
		}
	}
	writeJSON(w, status, body)
}

type orderItemView struct {
	ListingID      string `json:"listing_id"`
	Title          string `json:"title"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	ImageURL       string `json:"image_url,omitempty"`
	Quantity       int    `json:"quantity"`
}

type orderView struct {
	OrderNumber     string          `json:"order_number"`
	Status          string          `json:"status"`
	FulfillmentType string          `json:"fulfillment_type"`
	ContactName     string          `json:"contact_name"`
	ContactPhone    string          `json:"contact_phone"`
	ContactEmail    string          `json:"contact_email,omitempty"`
	SubtotalCents   int64           `json:"subtotal_cents"`
	FeeCents        int64           `json:"fee_cents"`
	TotalCents      int64           `json:"total_cents"`
	Items           []orderItemView `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
}

func orderPayload(o domain.Order) orderView {
	items := make([]orderItemView, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemView{
			ListingID:      item.ListingID,
			Title:          item.Title,
			UnitPriceCents: item.UnitPriceCents,
			ImageURL:       item.ImageURL,
			Quantity:       item.Quantity,
		})
	}
	return orderView{
		OrderNumber:     o.Number,
		Status:          string(o.Status),
		FulfillmentType: string(o.Fulfillment),
		ContactName:     o.Contact.Name,
		ContactPhone:    o.Contact.Phone,
		ContactEmail:    o.Contact.Email,
		SubtotalCents:   o.SubtotalCents,
		FeeCents:        o.FeeCents,
		TotalCents:      o.TotalCents,
		Items:           items,
		CreatedAt:       o.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
