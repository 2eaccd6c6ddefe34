// Package handlers – order endpoints: creation, listing, status
// transitions, courier assignment, and the per-order event history.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/domain"
	"github.com/oaddad/nucleo-backend/internal/repo"
	"github.com/oaddad/nucleo-backend/internal/services"
)

// orderItemRequest is one line of a new order. UnitPrice is frozen at
// creation; line totals and the order subtotal are recomputed server-side.
type orderItemRequest struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required"`
	UnitPrice float64 `json:"unit_price"`
}

// createOrderRequest is the payload for POST /orders.
type createOrderRequest struct {
	CustomerID    string             `json:"customer_id"`
	CustomerName  string             `json:"customer_name"`
	CustomerPhone string             `json:"customer_phone" binding:"required"`
	DeliveryType  string             `json:"delivery_type" binding:"required"`
	PaymentMethod string             `json:"payment_method"`
	DeliveryFee   float64            `json:"delivery_fee"`
	Items         []orderItemRequest `json:"items" binding:"required,min=1"`
}

// CreateOrder godoc
// @Summary  Create an order in the aguardando_aceite state
// @Tags     orders
// @Accept   json
// @Produce  json
// @Success  201 {object} domain.Order
// @Failure  400 {object} ErrorResponse
// @Router   /orders [post]
func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "customer_phone, delivery_type and at least one item are required")
		return
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Quantity < 1 {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "item quantity must be >= 1")
			return
		}
		items = append(items, domain.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	o := &domain.Order{
		CustomerID:    req.CustomerID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		DeliveryType:  domain.DeliveryType(req.DeliveryType),
		PaymentMethod: req.PaymentMethod,
		DeliveryFee:   req.DeliveryFee,
		Items:         items,
	}

	created, err := h.Orders.Create(c.Request.Context(), o)
	switch {
	case errors.Is(err, services.ErrInvalidDeliveryType):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "delivery_type must be delivery or pickup")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not create order")
	default:
		ok(c, http.StatusCreated, created)
	}
}

// ListOrders returns orders, newest page first.
func (h *Handler) ListOrders(c *gin.Context) {
	page, limit := clampPagination(c.Query("page"), c.Query("limit"))
	ctx := c.Request.Context()

	total, err := repo.CountOrders(ctx, h.DB)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not count orders")
		return
	}
	rows, err := repo.ListOrdersPage(ctx, h.DB, (page-1)*limit, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list orders")
		return
	}
	ok(c, http.StatusOK, gin.H{"items": rows, "page": page, "limit": limit, "total": total})
}

// GetOrder returns one order with items preloaded.
func (h *Handler) GetOrder(c *gin.Context) {
	o, err := repo.GetOrder(c.Request.Context(), h.DB, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "order not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load order")
		return
	}
	ok(c, http.StatusOK, o)
}

// transitionRequest is the payload for PUT /orders/:id/status.
type transitionRequest struct {
	Status string `json:"status" binding:"required"`
}

// TransitionOrder godoc
// @Summary  Advance an order through its state machine
// @Tags     orders
// @Accept   json
// @Produce  json
// @Success  200 {object} domain.Order
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse
// @Router   /orders/{id}/status [put]
func (h *Handler) TransitionOrder(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status is required")
		return
	}

	o, err := h.Orders.Transition(c.Request.Context(), c.Param("id"), domain.OrderStatus(req.Status))
	var invalid *domain.ErrInvalidTransition
	switch {
	case errors.Is(err, services.ErrUnknownOrder):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "order not found")
	case errors.Is(err, services.ErrUnknownStatus):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown order status")
	case errors.As(err, &invalid):
		fail(c, http.StatusConflict, ErrCodeTransitionFailed, invalid.Error())
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeTransitionFailed, "could not transition order")
	default:
		ok(c, http.StatusOK, o)
	}
}

// assignCourierRequest is the payload for PUT /orders/:id/courier.
type assignCourierRequest struct {
	Courier string `json:"courier" binding:"required"`
}

// AssignCourier records who is delivering the order.
func (h *Handler) AssignCourier(c *gin.Context) {
	var req assignCourierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "courier is required")
		return
	}
	err := h.Orders.AssignCourier(c.Request.Context(), c.Param("id"), req.Courier)
	switch {
	case errors.Is(err, services.ErrUnknownOrder):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "order not found")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not assign courier")
	default:
		noContent(c)
	}
}

// OrderEvents returns the append-only transition history of an order.
func (h *Handler) OrderEvents(c *gin.Context) {
	events, err := repo.ListOrderEvents(c.Request.Context(), h.DB, c.Param("id"))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list order events")
		return
	}
	ok(c, http.StatusOK, events)
}
