package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/yourbarrio/checkout-service/internal/checkout/application"
	"github.com/yourbarrio/checkout-service/internal/checkout/domain"
	"github.com/yourbarrio/checkout-service/pkg/sessions"
)

type stubState struct {
	mu       sync.Mutex
	listings map[string]domain.Listing
	vendors  map[string]domain.Vendor
	carts    map[string]*domain.Cart
	orders   map[string]domain.Order
}

type stubListings struct{ s *stubState }

func (r stubListings) Get(_ context.Context, id string) (domain.Listing, error) {
	l, ok := r.s.listings[id]
	if !ok {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	return l, nil
}

type stubVendors struct{ s *stubState }

func (r stubVendors) Get(_ context.Context, id string) (domain.Vendor, error) {
	return r.s.vendors[id], nil
}

type stubCarts struct{ s *stubState }

func (r stubCarts) ActiveCart(_ context.Context, customerID string) (*domain.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var newest *domain.Cart
	for _, c := range r.s.carts {
		if c.CustomerID == customerID && c.Status == domain.CartStatusActive {
			if newest == nil || c.CreatedAt.After(newest.CreatedAt) {
				newest = c
			}
		}
	}
	if newest == nil {
		return nil, nil
	}
	cp := *newest
	cp.Items = append([]domain.CartItem(nil), newest.Items...)
	return &cp, nil
}

func (r stubCarts) CreateCart(_ context.Context, cart domain.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.carts[cart.ID] = &cart
	return nil
}

func (r stubCarts) InsertItem(_ context.Context, item domain.CartItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cart := r.s.carts[item.CartID]
	for i := range cart.Items {
		if cart.Items[i].ListingID == item.ListingID {
			cart.Items[i].Quantity += item.Quantity
			return nil
		}
	}
	cart.Items = append(cart.Items, item)
	return nil
}

func (r stubCarts) UpdateItemQuantity(_ context.Context, itemID string, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, cart := range r.s.carts {
		for i := range cart.Items {
			if cart.Items[i].ID == itemID {
				cart.Items[i].Quantity = quantity
				return nil
			}
		}
	}
	return domain.ErrItemNotFound
}

func (r stubCarts) DeleteItem(_ context.Context, itemID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, cart := range r.s.carts {
		for i := range cart.Items {
			if cart.Items[i].ID == itemID {
				cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

func (r stubCarts) DeleteItems(_ context.Context, cartID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if cart, ok := r.s.carts[cartID]; ok {
		cart.Items = nil
	}
	return nil
}

func (r stubCarts) SetFulfillment(_ context.Context, cartID string, t domain.FulfillmentType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.carts[cartID].Fulfillment = &t
	return nil
}

func (r stubCarts) SetStatus(_ context.Context, cartID string, status domain.CartStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.carts[cartID].Status = status
	return nil
}

type stubOrders struct{ s *stubState }

func (r stubOrders) CreateWithOutbox(ctx context.Context, o domain.Order, _ string, _ []byte, _ string) error {
	r.s.mu.Lock()
	if _, dup := r.s.orders[o.Number]; dup {
		r.s.mu.Unlock()
		return domain.ErrOrderNumberTaken
	}
	r.s.orders[o.Number] = o
	r.s.mu.Unlock()
	return stubCarts{r.s}.SetStatus(ctx, o.CartID, domain.CartStatusSubmitted)
}

func (r stubOrders) ByNumber(_ context.Context, customerID, number string) (domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[number]
	if !ok || o.CustomerID != customerID {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

type stubSessions map[string]string

func (s stubSessions) Customer(_ context.Context, token string) (string, error) {
	id, ok := s[token]
	if !ok {
		return "", sessions.ErrNoSession
	}
	return id, nil
}

const (
	anaToken = "tok-ana"
	anaID    = "customer-ana"
)

func newTestServer() (http.Handler, *stubState) {
	state := &stubState{
		listings: map[string]domain.Listing{
			"l1": {ID: "l1", VendorID: "v1", Title: "Empanadas", UnitPriceCents: 1000},
			"l2": {ID: "l2", VendorID: "v1", Title: "Horchata", UnitPriceCents: 500},
			"b1": {ID: "b1", VendorID: "v2", Title: "Tamales", UnitPriceCents: 750},
		},
		vendors: map[string]domain.Vendor{
			"v1": {ID: "v1", Name: "La Cocina de Ana"},
			"v2": {ID: "v2", Name: "Tamales Rosa"},
		},
		carts:  map[string]*domain.Cart{},
		orders: map[string]domain.Order{},
	}

	log := slog.New(slog.DiscardHandler)
	svc := application.NewService(log, stubListings{state}, stubVendors{state}, stubCarts{state}, stubOrders{state}, nil)
	h := NewHandler(log, svc, stubSessions{anaToken: anaID})
	return h.Routes(), state
}

func doJSON(t *testing.T, srv http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestHealthzIsPublic(t *testing.T) {
	srv, _ := newTestServer()
	rec := doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRequiresSession(t *testing.T) {
	srv, _ := newTestServer()
	for _, token := range []string{"", "unknown-token"} {
		rec := doJSON(t, srv, http.MethodGet, "/cart", token, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want 401", token, rec.Code)
		}
	}
}

func TestGetCartEmpty(t *testing.T) {
	srv, _ := newTestServer()
	rec := doJSON(t, srv, http.MethodGet, "/cart", anaToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
	body := decodeBody(t, rec)
	if body["cart"] != nil || body["vendor"] != nil {
		t.Errorf("body = %v, want null cart and vendor", body)
	}
}

func TestAddItemDefaultsQuantity(t *testing.T) {
	srv, _ := newTestServer()
	rec := doJSON(t, srv, http.MethodPost, "/cart", anaToken, map[string]any{"listing_id": "l1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	cart := body["cart"].(map[string]any)
	items := cart["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("items = %v", items)
	}
	item := items[0].(map[string]any)
	if item["quantity"].(float64) != 1 {
		t.Errorf("quantity = %v, want 1", item["quantity"])
	}
	vendor := body["vendor"].(map[string]any)
	if vendor["name"] != "La Cocina de Ana" {
		t.Errorf("vendor = %v", vendor)
	}
}

func TestAddItemValidation(t *testing.T) {
	srv, _ := newTestServer()

	rec := doJSON(t, srv, http.MethodPost, "/cart", anaToken, map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing listing_id: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/cart", anaToken, map[string]any{"listing_id": "l1", "quantity": 0})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero quantity: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/cart", anaToken, map[string]any{"listing_id": "missing"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown listing: status = %d, want 404", rec.Code)
	}
}

func TestVendorMismatchConflict(t *testing.T) {
	srv, _ := newTestServer()

	if rec := doJSON(t, srv, http.MethodPost, "/cart", anaToken, map[string]any{"listing_id": "l1"}); rec.Code != http.StatusOK {
		t.Fatalf("seed add: %d", rec.Code)
	}

	rec := doJSON(t, srv, http.MethodPost, "/cart", anaToken, map[string]any{"listing_id": "b1"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["code"] != "vendor_mismatch" {
		t.Errorf("code = %v, want vendor_mismatch", body["code"])
	}
	if body["vendor_id"] != "v1" {
		t.Errorf("vendor_id = %v, want v1", body["vendor_id"])
	}

	rec = doJSON(t, srv, http.MethodPost, "/cart", anaToken, map[string]any{"listing_id": "b1", "clear_existing": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("switch: status = %d", rec.Code)
	}
	cart := decodeBody(t, rec)["cart"].(map[string]any)
	if cart["vendor_id"] != "v2" {
		t.Errorf("cart vendor = %v, want v2", cart["vendor_id"])
	}
}

func TestPatchCart(t *testing.T) {
	srv, _ := newTestServer()

	rec := doJSON(t, srv, http.MethodPatch, "/cart", anaToken, map[string]any{"fulfillment_type": "pickup"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("no cart: status = %d, want 404", rec.Code)
	}

	seed := doJSON(t, srv, http.MethodPost, "/cart", anaToken, map[string]any{"listing_id": "l1", "quantity": 2})
	itemID := decodeBody(t, seed)["cart"].(map[string]any)["items"].([]any)[0].(map[string]any)["id"].(string)

	rec = doJSON(t, srv, http.MethodPatch, "/cart", anaToken, map[string]any{"fulfillment_type": "pickup"})
	if rec.Code != http.StatusOK {
		t.Fatalf("set fulfillment: status = %d", rec.Code)
	}
	if ft := decodeBody(t, rec)["cart"].(map[string]any)["fulfillment_type"]; ft != "pickup" {
		t.Errorf("fulfillment_type = %v, want pickup", ft)
	}

	rec = doJSON(t, srv, http.MethodPatch, "/cart", anaToken, map[string]any{"item_id": itemID})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("item without quantity: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPatch, "/cart", anaToken, map[string]any{"item_id": itemID, "quantity": 0})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete via quantity 0: status = %d", rec.Code)
	}
	if items := decodeBody(t, rec)["cart"].(map[string]any)["items"].([]any); len(items) != 0 {
		t.Errorf("items = %v, want empty", items)
	}

	rec = doJSON(t, srv, http.MethodPatch, "/cart", anaToken, map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty patch: status = %d, want 400", rec.Code)
	}
}

func TestDeleteCart(t *testing.T) {
	srv, _ := newTestServer()

	rec := doJSON(t, srv, http.MethodDelete, "/cart", anaToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("clear with no cart: status = %d, want 200", rec.Code)
	}

	doJSON(t, srv, http.MethodPost, "/cart", anaToken, map[string]any{"listing_id": "l1"})
	rec = doJSON(t, srv, http.MethodDelete, "/cart", anaToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear: status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["cart"] != nil || body["vendor"] != nil {
		t.Errorf("body = %v, want nulls", body)
	}
}

func TestPlaceOrderAndFetch(t *testing.T) {
	srv, _ := newTestServer()

	doJSON(t, srv, http.MethodPost, "/cart", anaToken, map[string]any{"listing_id": "l1", "quantity": 2})
	doJSON(t, srv, http.MethodPost, "/cart", anaToken, map[string]any{"listing_id": "l2"})

	rec := doJSON(t, srv, http.MethodPost, "/orders", anaToken, map[string]any{
		"contact_name":     "Ana Diaz",
		"contact_phone":    "+341234567",
		"fulfillment_type": "pickup",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("place order: status = %d, body %s", rec.Code, rec.Body.String())
	}
	number := decodeBody(t, rec)["order_number"].(string)
	if number == "" {
		t.Fatal("empty order number")
	}

	rec = doJSON(t, srv, http.MethodGet, "/cart", anaToken, nil)
	if body := decodeBody(t, rec); body["cart"] != nil {
		t.Errorf("cart after submit = %v, want null", body["cart"])
	}

	rec = doJSON(t, srv, http.MethodGet, "/orders/"+number, anaToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get order: status = %d", rec.Code)
	}
	order := decodeBody(t, rec)
	if order["subtotal_cents"].(float64) != 2500 || order["fee_cents"].(float64) != 0 || order["total_cents"].(float64) != 2500 {
		t.Errorf("totals = %v/%v/%v", order["subtotal_cents"], order["fee_cents"], order["total_cents"])
	}
	if order["status"] != "requested" {
		t.Errorf("status = %v, want requested", order["status"])
	}
	if items := order["items"].([]any); len(items) != 2 {
		t.Errorf("order items = %v", items)
	}

	rec = doJSON(t, srv, http.MethodGet, "/orders/YB-NOPE99", anaToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown order: status = %d, want 404", rec.Code)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	srv, _ := newTestServer()
	doJSON(t, srv, http.MethodPost, "/cart", anaToken, map[string]any{"listing_id": "l1"})

	rec := doJSON(t, srv, http.MethodPost, "/orders", anaToken, map[string]any{
		"contact_phone":    "+341234567",
		"fulfillment_type": "pickup",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing name: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/orders", anaToken, map[string]any{
		"contact_name":     "Ana Diaz",
		"contact_phone":    "+341234567",
		"fulfillment_type": "delivery",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("delivery without address: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/orders", anaToken, map[string]any{
		"contact_name":  "Ana Diaz",
		"contact_phone": "+341234567",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("no fulfillment anywhere: status = %d, want 400", rec.Code)
	}
}
