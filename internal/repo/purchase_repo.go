// Package repo – purchase persistence.
//
// Purchases are append-only: created at ingestion, never updated. Deleting
// one is allowed and the caller (cost engine) recomputes the referenced
// ingredient's average afterwards.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/domain"
)

// CreatePurchase inserts a purchase row with a generated UUID.
// UnitPrice must already be derived by the caller.
func CreatePurchase(ctx context.Context, db *gorm.DB, p *domain.Purchase) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(p).Error
}

// GetPurchase fetches a purchase by ID, or ErrNotFound if missing.
func GetPurchase(ctx context.Context, db *gorm.DB, id string) (*domain.Purchase, error) {
	var p domain.Purchase
	if err := db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePurchase removes a purchase row. Returns ErrNotFound when no row
// was deleted.
func DeletePurchase(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.Purchase{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListRecentPurchases returns the up to limit most recent purchases of an
// ingredient, newest first. Ordering is purchase timestamp descending with
// insertion order (SQLite rowid) as the tie-break, so two purchases sharing
// a timestamp resolve deterministically.
func ListRecentPurchases(ctx context.Context, db *gorm.DB, ingredientID string, limit int) ([]domain.Purchase, error) {
	var out []domain.Purchase
	err := db.WithContext(ctx).
		Where("ingredient_id = ?", ingredientID).
		Order("purchased_at DESC, rowid DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListPurchasesByIngredient returns the full purchase history of an
// ingredient, newest first.
func ListPurchasesByIngredient(ctx context.Context, db *gorm.DB, ingredientID string) ([]domain.Purchase, error) {
	var out []domain.Purchase
	err := db.WithContext(ctx).
		Where("ingredient_id = ?", ingredientID).
		Order("purchased_at DESC, rowid DESC").
		Find(&out).Error
	return out, err
}

// ListPurchases returns a page of purchases across all ingredients, newest
// first. Use CountPurchases for pagination metadata.
func ListPurchases(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Purchase, error) {
	var out []domain.Purchase
	err := db.WithContext(ctx).
		Order("purchased_at DESC, rowid DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountPurchases returns the total number of purchase rows.
func CountPurchases(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Purchase{}).Count(&total).Error
	return total, err
}
