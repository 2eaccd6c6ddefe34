// Package services defines the business logic for cost accounting and
// orders. This file centralizes common service-level error values so that
// they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

// Validation errors rejected at the component boundary. They are surfaced
// to the caller and never retried.
var (
	// ErrInvalidQuantity is returned when a purchase is recorded with a
	// non-positive quantity; the unit price would be undefined.
	ErrInvalidQuantity = errors.New("purchase quantity must be positive")

	// ErrUnknownProduct indicates that the referenced product does not exist
	// in the catalog.
	ErrUnknownProduct = errors.New("unknown product")

	// ErrUnknownIngredient indicates that the referenced ingredient does not
	// exist in the catalog.
	ErrUnknownIngredient = errors.New("unknown ingredient")

	// ErrUnknownOrder indicates that the referenced order does not exist.
	ErrUnknownOrder = errors.New("unknown order")

	// ErrUnknownStatus is returned when a transition names a status outside
	// the order state machine.
	ErrUnknownStatus = errors.New("unknown order status")

	// ErrInvalidDeliveryType is returned when an order carries a delivery
	// type outside {delivery, pickup}.
	ErrInvalidDeliveryType = errors.New("invalid delivery type")
)
