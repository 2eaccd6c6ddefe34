// Package repo – ingredient persistence.
//
// Thin repository functions over the ingredients table. All functions are
// context-aware and accept a *gorm.DB handle, making them safe for use
// within transactions. No business logic lives here; cost recomputation is
// owned by services.CostService.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateIngredient inserts a new ingredient with a generated UUID.
func CreateIngredient(ctx context.Context, db *gorm.DB, ing *domain.Ingredient) error {
	if ing.ID == "" {
		ing.ID = uuid.NewString()
	}
	ing.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(ing).Error
}

// GetIngredient fetches an ingredient by ID, or ErrNotFound if missing.
func GetIngredient(ctx context.Context, db *gorm.DB, id string) (*domain.Ingredient, error) {
	var ing domain.Ingredient
	if err := db.WithContext(ctx).First(&ing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ing, nil
}

// ListIngredients returns all ingredients ordered by name.
func ListIngredients(ctx context.Context, db *gorm.DB) ([]domain.Ingredient, error) {
	var out []domain.Ingredient
	err := db.WithContext(ctx).Order("name asc").Find(&out).Error
	return out, err
}

// UpdateIngredientAveragePrice writes the recomputed average unit price.
// Returns ErrNotFound when the ingredient does not exist.
func UpdateIngredientAveragePrice(ctx context.Context, db *gorm.DB, id string, avg float64) error {
	res := db.WithContext(ctx).
		Model(&domain.Ingredient{}).
		Where("id = ?", id).
		Update("average_price", avg)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AdjustIngredientStock adds delta (may be negative) to the current stock.
func AdjustIngredientStock(ctx context.Context, db *gorm.DB, id string, delta float64) error {
	res := db.WithContext(ctx).
		Model(&domain.Ingredient{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
