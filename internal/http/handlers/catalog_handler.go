// Package handlers – catalog endpoints: ingredients, purchases, products,
// cost breakdowns, and customers.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/domain"
	"github.com/oaddad/nucleo-backend/internal/repo"
	"github.com/oaddad/nucleo-backend/internal/services"
)

// createIngredientRequest is the payload for POST /ingredients.
type createIngredientRequest struct {
	Name     string  `json:"name" binding:"required"`
	Unit     string  `json:"unit"`
	Category string  `json:"category"`
	Stock    float64 `json:"stock"`
	MinStock float64 `json:"min_stock"`
	MaxStock float64 `json:"max_stock"`
}

// CreateIngredient godoc
// @Summary  Register a raw material
// @Tags     catalog
// @Accept   json
// @Produce  json
// @Success  201 {object} domain.Ingredient
// @Failure  400 {object} ErrorResponse
// @Router   /ingredients [post]
func (h *Handler) CreateIngredient(c *gin.Context) {
	var req createIngredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name is required")
		return
	}
	ing := &domain.Ingredient{
		Name:     req.Name,
		Unit:     req.Unit,
		Category: req.Category,
		Stock:    req.Stock,
		MinStock: req.MinStock,
		MaxStock: req.MaxStock,
	}
	if err := repo.CreateIngredient(c.Request.Context(), h.DB, ing); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not create ingredient")
		return
	}
	ok(c, http.StatusCreated, ing)
}

// ListIngredients godoc
// @Summary  List all raw materials
// @Tags     catalog
// @Produce  json
// @Success  200 {array} domain.Ingredient
// @Router   /ingredients [get]
func (h *Handler) ListIngredients(c *gin.Context) {
	rows, err := repo.ListIngredients(c.Request.Context(), h.DB)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list ingredients")
		return
	}
	ok(c, http.StatusOK, rows)
}

// GetIngredient returns one ingredient by id.
func (h *Handler) GetIngredient(c *gin.Context) {
	ing, err := repo.GetIngredient(c.Request.Context(), h.DB, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "ingredient not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load ingredient")
		return
	}
	ok(c, http.StatusOK, ing)
}

// recordPurchaseRequest is the payload for POST /purchases. PurchasedAt is
// RFC3339; empty means "now".
type recordPurchaseRequest struct {
	IngredientID string  `json:"ingredient_id" binding:"required"`
	Supplier     string  `json:"supplier"`
	BatchID      string  `json:"batch_id"`
	Quantity     float64 `json:"quantity" binding:"required"`
	Price        float64 `json:"price"`
	PurchasedAt  string  `json:"purchased_at"`
}

// RecordPurchase godoc
// @Summary  Record an ingredient purchase and refresh its average cost
// @Tags     catalog
// @Accept   json
// @Produce  json
// @Success  201 {object} domain.Purchase
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /purchases [post]
func (h *Handler) RecordPurchase(c *gin.Context) {
	var req recordPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "ingredient_id and quantity are required")
		return
	}
	at := time.Now().UTC()
	if req.PurchasedAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.PurchasedAt)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "purchased_at must be RFC3339")
			return
		}
		at = parsed
	}

	p, err := h.Costs.RecordPurchase(c.Request.Context(), req.IngredientID, req.Supplier, req.BatchID, req.Quantity, req.Price, at)
	switch {
	case errors.Is(err, services.ErrInvalidQuantity):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "quantity must be positive")
	case errors.Is(err, services.ErrUnknownIngredient), errors.Is(err, gorm.ErrRecordNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "ingredient not found")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not record purchase")
	default:
		ok(c, http.StatusCreated, p)
	}
}

// DeletePurchase removes a purchase row and recomputes the ingredient's
// average unit cost from the surviving history.
func (h *Handler) DeletePurchase(c *gin.Context) {
	err := h.Costs.DeletePurchase(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "purchase not found")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not delete purchase")
	default:
		noContent(c)
	}
}

// ListPurchases returns purchases, newest page first.
func (h *Handler) ListPurchases(c *gin.Context) {
	page, limit := clampPagination(c.Query("page"), c.Query("limit"))
	ctx := c.Request.Context()

	total, err := repo.CountPurchases(ctx, h.DB)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not count purchases")
		return
	}
	rows, err := repo.ListPurchases(ctx, h.DB, (page-1)*limit, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list purchases")
		return
	}
	ok(c, http.StatusOK, gin.H{"items": rows, "page": page, "limit": limit, "total": total})
}

// createProductRequest is the payload for POST /products. Recipe lines and
// combo step groups are optional; an order-step item referencing another
// combo is rejected.
type createProductRequest struct {
	Name       string                  `json:"name" binding:"required"`
	Category   string                  `json:"category"`
	SalePrice  float64                 `json:"sale_price"`
	Active     *bool                   `json:"active"`
	Recipe     []domain.RecipeLine     `json:"recipe"`
	StepGroups []domain.OrderStepGroup `json:"step_groups"`
}

// CreateProduct godoc
// @Summary  Create a sellable product (simple or combo)
// @Tags     catalog
// @Accept   json
// @Produce  json
// @Success  201 {object} domain.Product
// @Failure  400 {object} ErrorResponse
// @Router   /products [post]
func (h *Handler) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name is required")
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	p := &domain.Product{
		Name:       req.Name,
		Category:   req.Category,
		SalePrice:  req.SalePrice,
		Active:     active,
		Recipe:     req.Recipe,
		StepGroups: req.StepGroups,
	}
	err := repo.CreateProduct(c.Request.Context(), h.DB, p)
	switch {
	case errors.Is(err, repo.ErrNestedCombo):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "step items must reference leaf products")
	case errors.Is(err, gorm.ErrRecordNotFound):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "step item references an unknown product")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not create product")
	default:
		ok(c, http.StatusCreated, p)
	}
}

// ListProducts returns the whole catalog with recipes preloaded.
func (h *Handler) ListProducts(c *gin.Context) {
	rows, err := repo.ListProducts(c.Request.Context(), h.DB)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list products")
		return
	}
	ok(c, http.StatusOK, rows)
}

// GetProduct returns one product with its recipe and step tree.
func (h *Handler) GetProduct(c *gin.Context) {
	p, err := repo.GetProduct(c.Request.Context(), h.DB, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "product not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load product")
		return
	}
	ok(c, http.StatusOK, p)
}

// productCostResponse carries the on-demand CMV computation. Margin is null
// when the sale price is zero (margin undefined).
type productCostResponse struct {
	ProductID string                  `json:"product_id"`
	Cost      *services.CostBreakdown `json:"cost"`
	Margin    *float64                `json:"margin"`
}

// ProductCost godoc
// @Summary  Compute CMV and profit margin for a product
// @Tags     catalog
// @Produce  json
// @Success  200 {object} productCostResponse
// @Failure  404 {object} ErrorResponse
// @Router   /products/{id}/cost [get]
func (h *Handler) ProductCost(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	breakdown, err := h.Costs.ComputeCMV(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrUnknownProduct) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "product not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCostFailed, "could not compute cost")
		return
	}
	margin, err := h.Costs.ComputeProfitMargin(ctx, id)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCostFailed, "could not compute margin")
		return
	}
	ok(c, http.StatusOK, productCostResponse{ProductID: id, Cost: breakdown, Margin: margin})
}

// createCustomerRequest is the payload for POST /customers.
type createCustomerRequest struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
	Address string `json:"address"`
}

// CreateCustomer registers a customer.
func (h *Handler) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name and phone are required")
		return
	}
	cust := &domain.Customer{Name: req.Name, Phone: req.Phone, Address: req.Address}
	if err := repo.CreateCustomer(c.Request.Context(), h.DB, cust); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not create customer")
		return
	}
	ok(c, http.StatusCreated, cust)
}

// ListCustomers returns all customers.
func (h *Handler) ListCustomers(c *gin.Context) {
	rows, err := repo.ListCustomers(c.Request.Context(), h.DB)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list customers")
		return
	}
	ok(c, http.StatusOK, rows)
}
