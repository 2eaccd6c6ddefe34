// Package repo – customer persistence.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/domain"
	"github.com/oaddad/nucleo-backend/internal/phone"
)

// CreateCustomer inserts a customer, normalizing the phone first.
func CreateCustomer(ctx context.Context, db *gorm.DB, c *domain.Customer) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	n, err := phone.Normalize(c.Phone)
	if err != nil {
		return err
	}
	c.Phone = n
	c.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(c).Error
}

// GetCustomer fetches a customer by ID, or ErrNotFound if missing.
func GetCustomer(ctx context.Context, db *gorm.DB, id string) (*domain.Customer, error) {
	var c domain.Customer
	if err := db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindCustomerByPhone resolves a customer from any phone rendering.
// The lookup matches on the last 8 digits so inputs with or without the
// country code find the same record. Returns ErrNotFound when no customer
// matches.
func FindCustomerByPhone(ctx context.Context, db *gorm.DB, raw string) (*domain.Customer, error) {
	suffix := phone.Last8(raw)
	if suffix == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var c domain.Customer
	err := db.WithContext(ctx).
		Where("phone LIKE ?", "%"+suffix).
		Order("created_at asc").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCustomers returns all customers ordered by name.
func ListCustomers(ctx context.Context, db *gorm.DB) ([]domain.Customer, error) {
	var out []domain.Customer
	err := db.WithContext(ctx).Order("name asc").Find(&out).Error
	return out, err
}
