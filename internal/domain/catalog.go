// Package domain defines the persistence models for the catalog (ingredients,
// purchases, products, recipes, combo steps, customers), orders, and the
// chatbot configuration. These types are mapped with GORM and form the core
// data layer of the application.
package domain

import (
	"time"
)

// Ingredient is a raw material tracked by stock and cost.
//
// AveragePrice is maintained by the cost engine: it equals the mean unit
// price over the most recent purchases of this ingredient (window size is
// configurable, default 5), or 0 when no purchases exist.
type Ingredient struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	Name         string    `json:"name"          gorm:"type:varchar(255);not null;index"`
	Unit         string    `json:"unit"          gorm:"type:varchar(16);not null;default:'un'"`
	Category     string    `json:"category"      gorm:"type:varchar(64);index"`
	Stock        float64   `json:"stock"`
	MinStock     float64   `json:"min_stock"`
	MaxStock     float64   `json:"max_stock"`
	AveragePrice float64   `json:"average_price"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for Ingredient.
func (Ingredient) TableName() string { return "ingredients" }

// Purchase is a single immutable purchase event for an ingredient.
// UnitPrice is derived at ingestion time as Price / Quantity (Quantity > 0).
// Rows are created once and never mutated; deleting one triggers a cost
// recomputation on the referenced ingredient.
type Purchase struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	BatchID      string    `json:"batch_id,omitempty" gorm:"type:char(36);index"`
	Supplier     string    `json:"supplier"      gorm:"type:varchar(255)"`
	IngredientID string    `json:"ingredient_id" gorm:"type:char(36);not null;index:idx_ingredient_purchases,priority:1"`
	Quantity     float64   `json:"quantity"      gorm:"not null"`
	Price        float64   `json:"price"         gorm:"not null"`
	UnitPrice    float64   `json:"unit_price"    gorm:"not null"`
	PurchasedAt  time.Time `json:"purchased_at"  gorm:"index:idx_ingredient_purchases,priority:2"`
	CreatedAt    time.Time `json:"created_at"`

	// Ingredient is the purchased material. Purchases are cascade-deleted
	// if their ingredient is removed.
	Ingredient Ingredient `json:"-" gorm:"foreignKey:IngredientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Purchase.
func (Purchase) TableName() string { return "purchases" }

// Product is a sellable item. Simple products carry a recipe (ingredient
// lines); combo products additionally carry an order-step tree of selection
// groups. Cost (CMV) and margin are derived from the recipe and the current
// ingredient average prices; they are not stored.
type Product struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null;index"`
	Category  string    `json:"category"   gorm:"type:varchar(64);index"`
	SalePrice float64   `json:"sale_price"`
	Active    bool      `json:"active"     gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Recipe     []RecipeLine     `json:"recipe,omitempty"      gorm:"foreignKey:ProductID"`
	StepGroups []OrderStepGroup `json:"step_groups,omitempty" gorm:"foreignKey:ProductID"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// RecipeLine links a product to one ingredient with a quantity, expressed in
// the ingredient's unit of measure.
type RecipeLine struct {
	ID           string  `json:"id"            gorm:"type:char(36);primaryKey"`
	ProductID    string  `json:"product_id"    gorm:"type:char(36);not null;index"`
	IngredientID string  `json:"ingredient_id" gorm:"type:char(36);not null;index"`
	Quantity     float64 `json:"quantity"      gorm:"not null"`
	Position     int     `json:"position"`

	Product    Product    `json:"-" gorm:"foreignKey:ProductID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Ingredient Ingredient `json:"-" gorm:"foreignKey:IngredientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for RecipeLine.
func (RecipeLine) TableName() string { return "recipe_lines" }

// CalcStrategy selects how a step group's selections compose into a price.
// Price composition itself happens in the order-pricing layer; the catalog
// only validates and stores the strategy.
type CalcStrategy string

// Supported calculation strategies for combo step groups.
const (
	CalcSum      CalcStrategy = "sum"
	CalcSubtract CalcStrategy = "subtract"
	CalcMin      CalcStrategy = "min"
	CalcMax      CalcStrategy = "max"
	CalcMean     CalcStrategy = "mean"
)

// Valid reports whether s is one of the supported strategies.
func (s CalcStrategy) Valid() bool {
	switch s {
	case CalcSum, CalcSubtract, CalcMin, CalcMax, CalcMean:
		return true
	}
	return false
}

// OrderStepGroup is one selection group inside a combo product's order-step
// tree ("choose your burger", "choose a drink", ...).
type OrderStepGroup struct {
	ID        string       `json:"id"         gorm:"type:char(36);primaryKey"`
	ProductID string       `json:"product_id" gorm:"type:char(36);not null;index"`
	Name      string       `json:"name"       gorm:"type:varchar(255);not null"`
	MinSelect int          `json:"min_select" gorm:"not null;default:1"`
	MaxSelect int          `json:"max_select" gorm:"not null;default:1"`
	Strategy  CalcStrategy `json:"strategy"   gorm:"type:varchar(16);not null;default:'sum'"`
	Position  int          `json:"position"`

	Items []OrderStepItem `json:"items,omitempty" gorm:"foreignKey:GroupID"`

	Product Product `json:"-" gorm:"foreignKey:ProductID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for OrderStepGroup.
func (OrderStepGroup) TableName() string { return "order_step_groups" }

// OrderStepItem is one selectable product inside a step group. The referenced
// product must be a leaf (no step groups of its own); the catalog store
// rejects writes that would nest combos.
type OrderStepItem struct {
	ID            string   `json:"id"             gorm:"type:char(36);primaryKey"`
	GroupID       string   `json:"group_id"       gorm:"type:char(36);not null;index"`
	ItemProductID string   `json:"item_product_id" gorm:"type:char(36);not null;index"`
	PriceOverride *float64 `json:"price_override,omitempty"`
	Position      int      `json:"position"`

	Group       OrderStepGroup `json:"-" gorm:"foreignKey:GroupID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	ItemProduct Product        `json:"-" gorm:"foreignKey:ItemProductID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for OrderStepItem.
func (OrderStepItem) TableName() string { return "order_step_items" }

// Customer is a known contact. Phone is stored normalized (digits only, with
// the 55 country prefix); lookups tolerate inputs with or without a country
// code by matching the last 8 digits.
type Customer struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null"`
	Phone     string    `json:"phone"      gorm:"type:varchar(20);not null;index"`
	Address   string    `json:"address"    gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Customer.
func (Customer) TableName() string { return "customers" }
