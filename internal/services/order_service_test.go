package services

import (
	"context"
	"errors"
	"testing"

	"github.com/oaddad/nucleo-backend/internal/domain"
)

// ----- Fake listener -----

type fakeListener struct {
	seen []domain.OrderStatus
}

func (f *fakeListener) OrderTransitioned(o *domain.Order, next domain.OrderStatus) {
	f.seen = append(f.seen, next)
}

// ----- Tests -----

func TestOrderCreate_TotalsAndInitialStatus(t *testing.T) {
	db := openTestDB(t)
	lis := &fakeListener{}
	svc := NewOrderService(db, lis)

	o, err := svc.Create(context.Background(), &domain.Order{
		CustomerName:  "Maria",
		CustomerPhone: "5534996727535",
		DeliveryType:  domain.DeliveryTypeDelivery,
		DeliveryFee:   8.00,
		Items: []domain.OrderItem{
			{Name: "X-Burger", Quantity: 2, UnitPrice: 35.00},
			{Name: "Refrigerante Lata", Quantity: 1, UnitPrice: 6.00},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if o.Subtotal != 76.00 {
		t.Errorf("subtotal = %v; want 76.00", o.Subtotal)
	}
	if o.Total != 84.00 {
		t.Errorf("total = %v; want 84.00", o.Total)
	}
	if o.Status != domain.StatusAwaitingAccept {
		t.Errorf("status = %q; want aguardando_aceite", o.Status)
	}
	if len(lis.seen) != 1 || lis.seen[0] != domain.StatusAwaitingAccept {
		t.Errorf("listener saw %v; want [aguardando_aceite]", lis.seen)
	}
}

func TestOrderCreate_InvalidDeliveryType(t *testing.T) {
	db := openTestDB(t)
	svc := NewOrderService(db, nil)
	if _, err := svc.Create(context.Background(), &domain.Order{DeliveryType: "drone"}); err != ErrInvalidDeliveryType {
		t.Fatalf("got %v, want ErrInvalidDeliveryType", err)
	}
}

func TestTransition_FullDeliveryLifecycle(t *testing.T) {
	db := openTestDB(t)
	lis := &fakeListener{}
	svc := NewOrderService(db, lis)
	ctx := context.Background()

	o, err := svc.Create(ctx, &domain.Order{
		CustomerPhone: "5534996727535",
		DeliveryType:  domain.DeliveryTypeDelivery,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	seq := []domain.OrderStatus{
		domain.StatusAccepted, domain.StatusInProduction, domain.StatusReady,
		domain.StatusInBag, domain.StatusEnRoute, domain.StatusDelivered,
	}
	for _, next := range seq {
		if _, err := svc.Transition(ctx, o.ID, next); err != nil {
			t.Fatalf("Transition(%s): %v", next, err)
		}
	}

	want := append([]domain.OrderStatus{domain.StatusAwaitingAccept}, seq...)
	if len(lis.seen) != len(want) {
		t.Fatalf("listener saw %d transitions; want %d", len(lis.seen), len(want))
	}
	for i := range want {
		if lis.seen[i] != want[i] {
			t.Errorf("transition[%d] = %s; want %s", i, lis.seen[i], want[i])
		}
	}
}

func TestTransition_TerminalRejected(t *testing.T) {
	db := openTestDB(t)
	svc := NewOrderService(db, nil)
	ctx := context.Background()

	o, err := svc.Create(ctx, &domain.Order{DeliveryType: domain.DeliveryTypePickup})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Transition(ctx, o.ID, domain.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err = svc.Transition(ctx, o.ID, domain.StatusAccepted)
	var inv *domain.ErrInvalidTransition
	if !errors.As(err, &inv) {
		t.Fatalf("got %v, want ErrInvalidTransition", err)
	}

	// The rejected transition must not have touched the row.
	got, terr := svc.Transition(ctx, o.ID, domain.StatusCancelled)
	if terr == nil {
		t.Fatalf("double cancel accepted: %+v", got)
	}
}

func TestTransition_UnknownStatusAndOrder(t *testing.T) {
	db := openTestDB(t)
	svc := NewOrderService(db, nil)
	ctx := context.Background()

	o, err := svc.Create(ctx, &domain.Order{DeliveryType: domain.DeliveryTypeDelivery})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Transition(ctx, o.ID, "em_espera"); err != ErrUnknownStatus {
		t.Errorf("got %v, want ErrUnknownStatus", err)
	}
	if _, err := svc.Transition(ctx, "missing", domain.StatusAccepted); err != ErrUnknownOrder {
		t.Errorf("got %v, want ErrUnknownOrder", err)
	}
}
