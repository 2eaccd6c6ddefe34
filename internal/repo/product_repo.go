// Package repo – product, recipe, and combo step persistence.
//
// The single-level combo constraint is enforced here at write time: an
// order-step item may only reference a product that has no step groups of
// its own, so the selection tree is at most one level deep.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/domain"
)

// ErrNestedCombo is returned when an order-step item references a product
// that itself has step groups.
var ErrNestedCombo = errors.New("order-step item must reference a leaf product")

// CreateProduct inserts a product together with its recipe lines and step
// groups in one transaction. Step items are validated against the
// single-level combo constraint.
func CreateProduct(ctx context.Context, db *gorm.DB, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range p.Recipe {
			if p.Recipe[i].ID == "" {
				p.Recipe[i].ID = uuid.NewString()
			}
			p.Recipe[i].ProductID = p.ID
			p.Recipe[i].Position = i
		}
		for gi := range p.StepGroups {
			g := &p.StepGroups[gi]
			if g.ID == "" {
				g.ID = uuid.NewString()
			}
			g.ProductID = p.ID
			g.Position = gi
			if !g.Strategy.Valid() {
				g.Strategy = domain.CalcSum
			}
			for ii := range g.Items {
				it := &g.Items[ii]
				if it.ID == "" {
					it.ID = uuid.NewString()
				}
				it.GroupID = g.ID
				it.Position = ii
				leaf, err := isLeafProduct(tx, it.ItemProductID)
				if err != nil {
					return err
				}
				if !leaf {
					return ErrNestedCombo
				}
			}
		}
		return tx.Create(p).Error
	})
}

// isLeafProduct reports whether productID exists and has no step groups.
func isLeafProduct(tx *gorm.DB, productID string) (bool, error) {
	var exists int64
	if err := tx.Model(&domain.Product{}).Where("id = ?", productID).Count(&exists).Error; err != nil {
		return false, err
	}
	if exists == 0 {
		return false, gorm.ErrRecordNotFound
	}
	var groups int64
	if err := tx.Model(&domain.OrderStepGroup{}).Where("product_id = ?", productID).Count(&groups).Error; err != nil {
		return false, err
	}
	return groups == 0, nil
}

// GetProduct fetches a product with its recipe and step tree preloaded,
// or ErrNotFound if missing.
func GetProduct(ctx context.Context, db *gorm.DB, id string) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).
		Preload("Recipe", func(tx *gorm.DB) *gorm.DB { return tx.Order("position asc") }).
		Preload("StepGroups", func(tx *gorm.DB) *gorm.DB { return tx.Order("position asc") }).
		Preload("StepGroups.Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position asc") }).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts returns all products ordered by category then name, with
// recipes preloaded.
func ListProducts(ctx context.Context, db *gorm.DB) ([]domain.Product, error) {
	var out []domain.Product
	err := db.WithContext(ctx).
		Preload("Recipe").
		Order("category asc, name asc").
		Find(&out).Error
	return out, err
}

// ListActiveProductsByCategory returns active products grouped by category,
// at most perCategory entries per category, cheapest-name-first within a
// category. Used to build the condensed menu for the LLM system prompt.
func ListActiveProductsByCategory(ctx context.Context, db *gorm.DB, perCategory int) (map[string][]domain.Product, error) {
	var all []domain.Product
	err := db.WithContext(ctx).
		Where("active = ?", true).
		Order("category asc, name asc").
		Find(&all).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string][]domain.Product)
	for _, p := range all {
		if perCategory > 0 && len(out[p.Category]) >= perCategory {
			continue
		}
		out[p.Category] = append(out[p.Category], p)
	}
	return out, nil
}
