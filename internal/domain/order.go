// Package domain – orders and the order status state machine.
//
// Order rows carry denormalized customer name/phone so customer-facing
// renders survive customer edits or deletion. Per-transition timestamps are
// kept as OrderEvent rows rather than one column per status.
package domain

import (
	"fmt"
	"time"
)

// DeliveryType distinguishes delivered orders from counter pickups.
type DeliveryType string

// Supported delivery types.
const (
	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
)

// Valid reports whether t is a known delivery type.
func (t DeliveryType) Valid() bool {
	return t == DeliveryTypeDelivery || t == DeliveryTypePickup
}

// OrderStatus is one state of the order lifecycle.
type OrderStatus string

// Order lifecycle states.
//
//	aguardando_aceite → aceito → producao → pronto
//	pronto (delivery) → na_bag → em_rota → entregue (terminal)
//	pronto (pickup)                       → retirado (terminal)
//	any non-terminal  → cancelado (terminal)
const (
	StatusAwaitingAccept OrderStatus = "aguardando_aceite"
	StatusAccepted       OrderStatus = "aceito"
	StatusInProduction   OrderStatus = "producao"
	StatusReady          OrderStatus = "pronto"
	StatusInBag          OrderStatus = "na_bag"
	StatusEnRoute        OrderStatus = "em_rota"
	StatusDelivered      OrderStatus = "entregue"
	StatusPickedUp       OrderStatus = "retirado"
	StatusCancelled      OrderStatus = "cancelado"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusAwaitingAccept, StatusAccepted, StatusInProduction, StatusReady,
		StatusInBag, StatusEnRoute, StatusDelivered, StatusPickedUp, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusPickedUp || s == StatusCancelled
}

// transitions is the exhaustive forward-transition table, keyed by current
// status. Cancellation is handled separately (allowed from any non-terminal
// state). Delivery-type restrictions are enforced in CanTransition.
var transitions = map[OrderStatus][]OrderStatus{
	StatusAwaitingAccept: {StatusAccepted},
	StatusAccepted:       {StatusInProduction},
	StatusInProduction:   {StatusReady},
	StatusReady:          {StatusInBag, StatusPickedUp},
	StatusInBag:          {StatusEnRoute},
	StatusEnRoute:        {StatusDelivered},
}

// CanTransition reports whether an order of delivery type dt may move from
// s to next. Terminal states admit nothing; cancellation is allowed from any
// non-terminal state.
func (s OrderStatus) CanTransition(next OrderStatus, dt DeliveryType) bool {
	if s.Terminal() || !next.Valid() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	// Delivery-type gates on the two branches out of "pronto".
	if next == StatusInBag && dt != DeliveryTypeDelivery {
		return false
	}
	if next == StatusPickedUp && dt != DeliveryTypePickup {
		return false
	}
	for _, n := range transitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// ErrInvalidTransition describes a rejected state-machine move. No side
// effects are performed when it is returned.
type ErrInvalidTransition struct {
	From OrderStatus
	To   OrderStatus
}

// Error implements the error interface.
func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid order transition: %s -> %s", e.From, e.To)
}

// Order is a customer order. CustomerName and CustomerPhone are denormalized
// from the customer record at creation time.
type Order struct {
	ID            string       `json:"id"             gorm:"type:char(36);primaryKey"`
	Code          string       `json:"code"           gorm:"type:varchar(16);not null;uniqueIndex"`
	CustomerID    string       `json:"customer_id"    gorm:"type:char(36);index"`
	CustomerName  string       `json:"customer_name"  gorm:"type:varchar(255)"`
	CustomerPhone string       `json:"customer_phone" gorm:"type:varchar(20);index"`
	DeliveryType  DeliveryType `json:"delivery_type"  gorm:"type:varchar(16);not null"`
	Courier       string       `json:"courier,omitempty" gorm:"type:varchar(255)"`
	Subtotal      float64      `json:"subtotal"`
	DeliveryFee   float64      `json:"delivery_fee"`
	Total         float64      `json:"total"`
	PaymentMethod string       `json:"payment_method" gorm:"type:varchar(32)"`
	Status        OrderStatus  `json:"status"         gorm:"type:varchar(32);not null;index"`
	CreatedAt     time.Time    `json:"created_at"     gorm:"index"`
	UpdatedAt     time.Time    `json:"updated_at"`

	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }

// OrderItem is one line of an order. Name and UnitPrice are frozen copies of
// the product at order time.
type OrderItem struct {
	ID        string  `json:"id"         gorm:"type:char(36);primaryKey"`
	OrderID   string  `json:"order_id"   gorm:"type:char(36);not null;index"`
	ProductID string  `json:"product_id" gorm:"type:char(36);index"`
	Name      string  `json:"name"       gorm:"type:varchar(255);not null"`
	Quantity  int     `json:"quantity"   gorm:"not null;default:1"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`

	Order Order `json:"-" gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for OrderItem.
func (OrderItem) TableName() string { return "order_items" }

// OrderEvent records one status transition of an order with its timestamp.
// Events are append-only.
type OrderEvent struct {
	ID      string      `json:"id"       gorm:"type:char(36);primaryKey"`
	OrderID string      `json:"order_id" gorm:"type:char(36);not null;index:idx_order_events,priority:1"`
	Status  OrderStatus `json:"status"   gorm:"type:varchar(32);not null"`
	At      time.Time   `json:"at"       gorm:"index:idx_order_events,priority:2"`

	Order Order `json:"-" gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for OrderEvent.
func (OrderEvent) TableName() string { return "order_events" }
