// Package services – CostService
//
// This file implements the ingredient cost engine. Each ingredient carries a
// running average unit cost derived from its most recent purchases; recipe
// cost (CMV) and profit margin of products are computed from those averages.
//
// The engine is synchronous and caller-threaded. Recomputation serializes
// per ingredient through a keyed mutex so every run observes a consistent
// view of that ingredient's purchase log. All amounts are float64 internally;
// two-decimal rounding is a display concern only.
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/domain"
	"github.com/oaddad/nucleo-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultAverageWindow is how many recent purchases feed the average unit
// price when no explicit window is configured.
const DefaultAverageWindow = 5

// CostService maintains ingredient average prices and derives product cost
// figures from them.
type CostService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Window caps how many recent purchases feed the average. Values <= 0
	// fall back to DefaultAverageWindow.
	Window int

	// mu guards locks.
	mu sync.Mutex
	// locks holds one mutex per ingredient so recomputations of the same
	// ingredient serialize while distinct ingredients proceed in parallel.
	locks map[string]*sync.Mutex
}

// NewCostService constructs a CostService with the default window.
func NewCostService(db *gorm.DB) *CostService {
	return &CostService{DB: db, Window: DefaultAverageWindow, locks: make(map[string]*sync.Mutex)}
}

// ingredientLock returns the mutex dedicated to ingredientID, creating it on
// first use.
func (s *CostService) ingredientLock(ingredientID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks == nil {
		s.locks = make(map[string]*sync.Mutex)
	}
	l, ok := s.locks[ingredientID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[ingredientID] = l
	}
	return l
}

// window returns the effective average window.
func (s *CostService) window() int {
	if s.Window > 0 {
		return s.Window
	}
	return DefaultAverageWindow
}

// RecordPurchase persists a purchase event and recomputes the ingredient's
// average price. The unit price is derived as price / quantity; a
// non-positive quantity yields ErrInvalidQuantity. batchID is optional.
func (s *CostService) RecordPurchase(ctx context.Context, ingredientID, supplier, batchID string, quantity, price float64, purchasedAt time.Time) (*domain.Purchase, error) {
	tr := otel.Tracer("services/CostService")
	ctx, span := tr.Start(ctx, "RecordPurchase",
		trace.WithAttributes(attribute.String("ingredient.id", ingredientID)),
	)
	defer span.End()

	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if _, err := repo.GetIngredient(ctx, s.DB, ingredientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownIngredient
		}
		return nil, err
	}
	if purchasedAt.IsZero() {
		purchasedAt = time.Now().UTC()
	}

	p := &domain.Purchase{
		BatchID:      batchID,
		Supplier:     supplier,
		IngredientID: ingredientID,
		Quantity:     quantity,
		Price:        price,
		UnitPrice:    price / quantity,
		PurchasedAt:  purchasedAt,
	}
	if err := repo.CreatePurchase(ctx, s.DB, p); err != nil {
		return nil, err
	}
	if err := s.RecomputeAverage(ctx, ingredientID); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePurchase removes a purchase and recomputes the referenced
// ingredient's average price.
func (s *CostService) DeletePurchase(ctx context.Context, purchaseID string) error {
	tr := otel.Tracer("services/CostService")
	ctx, span := tr.Start(ctx, "DeletePurchase",
		trace.WithAttributes(attribute.String("purchase.id", purchaseID)),
	)
	defer span.End()

	p, err := repo.GetPurchase(ctx, s.DB, purchaseID)
	if err != nil {
		return err
	}
	if err := repo.DeletePurchase(ctx, s.DB, purchaseID); err != nil {
		return err
	}
	return s.RecomputeAverage(ctx, p.IngredientID)
}

// RecomputeAverage loads the up to Window most recent purchases of the
// ingredient (timestamp order, insertion-order tie-break) and writes the
// mean of their unit prices to ingredient.average_price. With no purchases
// the average is 0. Idempotent for a fixed purchase history.
func (s *CostService) RecomputeAverage(ctx context.Context, ingredientID string) error {
	l := s.ingredientLock(ingredientID)
	l.Lock()
	defer l.Unlock()

	recent, err := repo.ListRecentPurchases(ctx, s.DB, ingredientID, s.window())
	if err != nil {
		return err
	}
	avg := 0.0
	if len(recent) > 0 {
		sum := 0.0
		for _, p := range recent {
			sum += p.UnitPrice
		}
		avg = sum / float64(len(recent))
	}
	return repo.UpdateIngredientAveragePrice(ctx, s.DB, ingredientID, avg)
}

// CostBreakdown is the result of a CMV computation.
type CostBreakdown struct {
	// CMV is the cost of goods sold for one unit of the product.
	CMV float64
	// Warnings lists recipe ingredient IDs missing from the catalog; those
	// lines contributed 0 to the CMV.
	Warnings []string
}

// ComputeCMV sums average_price × quantity over the product's recipe lines.
// Ingredients missing from the catalog contribute 0 and are reported in
// Warnings. Returns ErrUnknownProduct when the product does not exist.
func (s *CostService) ComputeCMV(ctx context.Context, productID string) (*CostBreakdown, error) {
	tr := otel.Tracer("services/CostService")
	ctx, span := tr.Start(ctx, "ComputeCMV",
		trace.WithAttributes(attribute.String("product.id", productID)),
	)
	defer span.End()

	p, err := repo.GetProduct(ctx, s.DB, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownProduct
		}
		return nil, err
	}

	out := &CostBreakdown{}
	for _, line := range p.Recipe {
		ing, err := repo.GetIngredient(ctx, s.DB, line.IngredientID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				out.Warnings = append(out.Warnings, line.IngredientID)
				continue
			}
			return nil, err
		}
		out.CMV += ing.AveragePrice * line.Quantity
	}
	return out, nil
}

// ComputeProfitMargin returns (sale_price − cmv) / sale_price × 100 using a
// fresh CMV. The result is nil for a zero or negative sale price, where the
// margin is undefined.
func (s *CostService) ComputeProfitMargin(ctx context.Context, productID string) (*float64, error) {
	p, err := repo.GetProduct(ctx, s.DB, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownProduct
		}
		return nil, err
	}
	if p.SalePrice <= 0 {
		return nil, nil
	}
	bd, err := s.ComputeCMV(ctx, productID)
	if err != nil {
		return nil, err
	}
	m := (p.SalePrice - bd.CMV) / p.SalePrice * 100
	return &m, nil
}
