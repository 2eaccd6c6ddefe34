// Package services – OrderService
//
// This file implements order intake and the status state machine. Every
// accepted transition is persisted together with its timestamp and then
// published to the registered listener (the notification pipeline), which
// decides whether a customer message goes out.
//
// Transition validation is pure (domain.OrderStatus.CanTransition); a
// rejected transition has no side effects.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/domain"
	"github.com/oaddad/nucleo-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TransitionListener receives every committed order-state transition.
// Implementations must not block: the notifier schedules its own timers.
type TransitionListener interface {
	// OrderTransitioned is called after the transition to next has been
	// persisted. The order carries its pre-transition field values except
	// Status, which is already next.
	OrderTransitioned(o *domain.Order, next domain.OrderStatus)
}

// OrderService owns order creation and lifecycle transitions.
type OrderService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Listener, when set, observes committed transitions. Typically the
	// notification pipeline.
	Listener TransitionListener
}

// NewOrderService constructs an OrderService.
func NewOrderService(db *gorm.DB, l TransitionListener) *OrderService {
	return &OrderService{DB: db, Listener: l}
}

// Create validates and persists a new order in aguardando_aceite, deriving
// subtotal and total from its items, and publishes the creation transition.
func (s *OrderService) Create(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Create")
	defer span.End()

	if !o.DeliveryType.Valid() {
		return nil, ErrInvalidDeliveryType
	}

	subtotal := 0.0
	for i := range o.Items {
		it := &o.Items[i]
		if it.Quantity <= 0 {
			it.Quantity = 1
		}
		it.Total = it.UnitPrice * float64(it.Quantity)
		subtotal += it.Total
	}
	o.Subtotal = subtotal
	o.Total = subtotal + o.DeliveryFee
	o.Status = domain.StatusAwaitingAccept

	if err := repo.CreateOrder(ctx, s.DB, o); err != nil {
		return nil, err
	}
	if s.Listener != nil {
		s.Listener.OrderTransitioned(o, domain.StatusAwaitingAccept)
	}
	return o, nil
}

// Transition moves an order to next, enforcing the state machine. Terminal
// orders and out-of-sequence moves are rejected with
// *domain.ErrInvalidTransition and produce no side effects.
func (s *OrderService) Transition(ctx context.Context, orderID string, next domain.OrderStatus) (*domain.Order, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Transition",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.String("order.next_status", string(next)),
		),
	)
	defer span.End()

	if !next.Valid() {
		return nil, ErrUnknownStatus
	}

	o, err := repo.GetOrder(ctx, s.DB, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownOrder
		}
		return nil, err
	}
	if !o.Status.CanTransition(next, o.DeliveryType) {
		return nil, &domain.ErrInvalidTransition{From: o.Status, To: next}
	}

	now := time.Now().UTC()
	if err := repo.UpdateOrderStatus(ctx, s.DB, orderID, next, now); err != nil {
		return nil, err
	}
	o.Status = next
	o.UpdatedAt = now

	if s.Listener != nil {
		s.Listener.OrderTransitioned(o, next)
	}
	return o, nil
}

// AssignCourier records the courier responsible for a delivery order.
func (s *OrderService) AssignCourier(ctx context.Context, orderID, courier string) error {
	res := s.DB.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", orderID).
		Update("courier", courier)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUnknownOrder
	}
	return nil
}
