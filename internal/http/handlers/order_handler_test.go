package handlers

import (
	"net/http"
	"testing"

	"github.com/oaddad/nucleo-backend/internal/domain"
)

func createOrder(t *testing.T, e *env, deliveryType string) domain.Order {
	t.Helper()
	var o domain.Order
	w := e.doJSON(t, http.MethodPost, "/api/v1/orders", map[string]any{
		"customer_name":  "Maria",
		"customer_phone": "5534996727535",
		"delivery_type":  deliveryType,
		"delivery_fee":   5.0,
		"items": []map[string]any{
			{"name": "X-Burger", "quantity": 2, "unit_price": 30.0},
		},
	}, &o)
	wantStatus(t, w, http.StatusCreated)
	return o
}

func TestCreateOrder_TotalsAndCode(t *testing.T) {
	e := setup(t)
	o := createOrder(t, e, "delivery")

	if o.Status != domain.StatusAwaitingAccept {
		t.Errorf("Status = %q, want aguardando_aceite", o.Status)
	}
	if o.Subtotal != 60.0 || o.Total != 65.0 {
		t.Errorf("Subtotal/Total = %v/%v, want 60/65", o.Subtotal, o.Total)
	}
	if o.Code == "" {
		t.Error("order code not generated")
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	e := setup(t)

	// Invalid delivery type.
	w := e.doJSON(t, http.MethodPost, "/api/v1/orders", map[string]any{
		"customer_phone": "5534996727535",
		"delivery_type":  "teleport",
		"items":          []map[string]any{{"name": "X", "quantity": 1}},
	}, nil)
	wantStatus(t, w, http.StatusBadRequest)

	// No items.
	w = e.doJSON(t, http.MethodPost, "/api/v1/orders", map[string]any{
		"customer_phone": "5534996727535",
		"delivery_type":  "delivery",
		"items":          []map[string]any{},
	}, nil)
	wantStatus(t, w, http.StatusBadRequest)
}

func TestTransitionOrder(t *testing.T) {
	e := setup(t)
	o := createOrder(t, e, "delivery")

	var got domain.Order
	w := e.doJSON(t, http.MethodPut, "/api/v1/orders/"+o.ID+"/status", map[string]any{"status": "aceito"}, &got)
	wantStatus(t, w, http.StatusOK)
	if got.Status != domain.StatusAccepted {
		t.Errorf("Status = %q, want aceito", got.Status)
	}

	// Out-of-sequence move is a conflict.
	var resp ErrorResponse
	w = e.doJSON(t, http.MethodPut, "/api/v1/orders/"+o.ID+"/status", map[string]any{"status": "em_rota"}, &resp)
	wantStatus(t, w, http.StatusConflict)
	if resp.Code != ErrCodeTransitionFailed {
		t.Errorf("code = %q", resp.Code)
	}

	// Unknown status and unknown order.
	wantStatus(t, e.doJSON(t, http.MethodPut, "/api/v1/orders/"+o.ID+"/status", map[string]any{"status": "flying"}, nil), http.StatusBadRequest)
	wantStatus(t, e.doJSON(t, http.MethodPut, "/api/v1/orders/ghost/status", map[string]any{"status": "aceito"}, nil), http.StatusNotFound)
}

func TestOrderEventsHistory(t *testing.T) {
	e := setup(t)
	o := createOrder(t, e, "pickup")

	wantStatus(t, e.doJSON(t, http.MethodPut, "/api/v1/orders/"+o.ID+"/status", map[string]any{"status": "aceito"}, nil), http.StatusOK)
	wantStatus(t, e.doJSON(t, http.MethodPut, "/api/v1/orders/"+o.ID+"/status", map[string]any{"status": "producao"}, nil), http.StatusOK)

	var events []domain.OrderEvent
	wantStatus(t, e.doJSON(t, http.MethodGet, "/api/v1/orders/"+o.ID+"/events", nil, &events), http.StatusOK)
	if len(events) != 3 { // creation + two transitions
		t.Fatalf("events = %d, want 3", len(events))
	}
	if events[0].Status != domain.StatusAwaitingAccept {
		t.Errorf("first event = %q, want aguardando_aceite", events[0].Status)
	}
}

func TestAssignCourier(t *testing.T) {
	e := setup(t)
	o := createOrder(t, e, "delivery")

	wantStatus(t, e.doJSON(t, http.MethodPut, "/api/v1/orders/"+o.ID+"/courier", map[string]any{"courier": "Carlos"}, nil), http.StatusNoContent)
	wantStatus(t, e.doJSON(t, http.MethodPut, "/api/v1/orders/ghost/courier", map[string]any{"courier": "Carlos"}, nil), http.StatusNotFound)

	var got domain.Order
	wantStatus(t, e.doJSON(t, http.MethodGet, "/api/v1/orders/"+o.ID, nil, &got), http.StatusOK)
	if got.Courier != "Carlos" {
		t.Errorf("Courier = %q", got.Courier)
	}
}

func TestListOrders_Pagination(t *testing.T) {
	e := setup(t)
	for i := 0; i < 3; i++ {
		createOrder(t, e, "delivery")
	}

	var page struct {
		Items []domain.Order `json:"items"`
		Total int64          `json:"total"`
		Limit int            `json:"limit"`
	}
	wantStatus(t, e.doJSON(t, http.MethodGet, "/api/v1/orders?page=1&limit=2", nil, &page), http.StatusOK)
	if len(page.Items) != 2 || page.Total != 3 {
		t.Fatalf("items=%d total=%d, want 2/3", len(page.Items), page.Total)
	}

	// Nonsense pagination values fall back to sane defaults.
	wantStatus(t, e.doJSON(t, http.MethodGet, "/api/v1/orders?page=x&limit=-5", nil, &page), http.StatusOK)
	if page.Limit != 20 {
		t.Errorf("limit = %d, want default 20", page.Limit)
	}
}
