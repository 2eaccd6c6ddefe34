// Package repo – order persistence.
//
// Order codes are short human-readable identifiers assigned at creation
// ("P" + zero-padded daily sequence). Status changes append OrderEvent rows
// so each transition keeps its timestamp.
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/domain"
	"github.com/oaddad/nucleo-backend/internal/phone"
)

// CreateOrder inserts an order with its items and the initial status event
// in one transaction. The order code is derived from the count of orders
// created today.
func CreateOrder(ctx context.Context, db *gorm.DB, o *domain.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	if o.Status == "" {
		o.Status = domain.StatusAwaitingAccept
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if o.Code == "" {
			code, err := nextOrderCode(tx, now)
			if err != nil {
				return err
			}
			o.Code = code
		}
		for i := range o.Items {
			if o.Items[i].ID == "" {
				o.Items[i].ID = uuid.NewString()
			}
			o.Items[i].OrderID = o.ID
		}
		if err := tx.Create(o).Error; err != nil {
			return err
		}
		return tx.Create(&domain.OrderEvent{
			ID:      uuid.NewString(),
			OrderID: o.ID,
			Status:  o.Status,
			At:      now,
		}).Error
	})
}

// nextOrderCode builds the next daily order code ("P001", "P002", ...).
func nextOrderCode(tx *gorm.DB, now time.Time) (string, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var count int64
	if err := tx.Model(&domain.Order{}).Where("created_at >= ?", dayStart).Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("P%03d", count+1), nil
}

// GetOrder fetches an order with items preloaded, or ErrNotFound if missing.
func GetOrder(ctx context.Context, db *gorm.DB, id string) (*domain.Order, error) {
	var o domain.Order
	err := db.WithContext(ctx).Preload("Items").First(&o, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateOrderStatus writes the new status and appends the transition event.
// State-machine validation belongs to services.OrderService; this function
// only persists.
func UpdateOrderStatus(ctx context.Context, db *gorm.DB, id string, status domain.OrderStatus, at time.Time) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Order{}).Where("id = ?", id).Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(&domain.OrderEvent{
			ID:      uuid.NewString(),
			OrderID: id,
			Status:  status,
			At:      at,
		}).Error
	})
}

// LatestOrderByPhone returns the most recent order of the customer matching
// the given phone (last-8-digit match), or ErrNotFound.
func LatestOrderByPhone(ctx context.Context, db *gorm.DB, raw string) (*domain.Order, error) {
	suffix := phone.Last8(raw)
	if suffix == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var o domain.Order
	err := db.WithContext(ctx).
		Where("customer_phone LIKE ?", "%"+suffix).
		Order("created_at desc").
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrdersPage returns a page of orders, newest first.
func ListOrdersPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Order, error) {
	var out []domain.Order
	err := db.WithContext(ctx).
		Preload("Items").
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountOrders returns the total number of orders.
func CountOrders(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Order{}).Count(&total).Error
	return total, err
}

// ListOrderEvents returns the transition history of an order in
// chronological order.
func ListOrderEvents(ctx context.Context, db *gorm.DB, orderID string) ([]domain.OrderEvent, error) {
	var out []domain.OrderEvent
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("at asc").
		Find(&out).Error
	return out, err
}
