package export

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/domain"
	"github.com/oaddad/nucleo-backend/internal/repo"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "export_test.db"))
	require.NoError(t, err)
	require.NoError(t, repo.AutoMigrate(db))
	return db
}

func seedCatalog(t *testing.T, db *gorm.DB) (ingredientID, productID string) {
	t.Helper()
	ctx := context.Background()

	ing := &domain.Ingredient{Name: "Carne Bovina", Unit: "kg", Category: "carnes", AveragePrice: 25.0}
	require.NoError(t, repo.CreateIngredient(ctx, db, ing))

	require.NoError(t, repo.CreatePurchase(ctx, db, &domain.Purchase{
		IngredientID: ing.ID,
		Supplier:     "Friboi",
		Quantity:     10,
		Price:        250.00,
		UnitPrice:    25.00,
		PurchasedAt:  time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC),
	}))

	prod := &domain.Product{
		Name:      "X-Burger",
		Category:  "lanches",
		SalePrice: 35.00,
		Active:    true,
		Recipe: []domain.RecipeLine{
			{ID: uuid.NewString(), IngredientID: ing.ID, Quantity: 0.15},
		},
	}
	require.NoError(t, repo.CreateProduct(ctx, db, prod))

	require.NoError(t, repo.CreateCustomer(ctx, db, &domain.Customer{
		Name:  "Maria",
		Phone: "34996727535",
	}))

	order := &domain.Order{
		CustomerName:  "Maria",
		CustomerPhone: "5534996727535",
		DeliveryType:  domain.DeliveryTypeDelivery,
		Status:        domain.StatusAwaitingAccept,
		Subtotal:      35.00,
		Total:         40.00,
		DeliveryFee:   5.00,
		Items: []domain.OrderItem{
			{Name: "X-Burger", Quantity: 1, UnitPrice: 35.00, Total: 35.00},
		},
	}
	require.NoError(t, repo.CreateOrder(ctx, db, order))

	require.NoError(t, repo.SetSetting(ctx, db, domain.SettingCompanyName, "Nucleo Lanches"))

	kw, _ := json.Marshal([]string{"cardápio"})
	require.NoError(t, repo.CreateKeywordRule(ctx, db, &domain.KeywordRule{
		Keywords: string(kw),
		Response: "Veja nosso cardápio: [DELIVERY-URL]",
		Active:   true,
		Priority: 5,
	}))

	return ing.ID, prod.ID
}

func TestWorkbookRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ingredientID, productID := seedCatalog(t, db)
	path := filepath.Join(t.TempDir(), "mirror.xlsx")

	require.NoError(t, NewExporter(db).WriteWorkbook(context.Background(), path))

	snap, err := ReadWorkbook(path)
	require.NoError(t, err)

	require.Len(t, snap.Ingredients, 1)
	assert.Equal(t, ingredientID, snap.Ingredients[0].ID)
	assert.Equal(t, "Carne Bovina", snap.Ingredients[0].Name)
	assert.InDelta(t, 25.0, snap.Ingredients[0].AveragePrice, 0.01)

	require.Len(t, snap.Purchases, 1)
	assert.Equal(t, ingredientID, snap.Purchases[0].IngredientID)
	assert.InDelta(t, 250.00, snap.Purchases[0].Price, 0.01)
	assert.InDelta(t, 25.00, snap.Purchases[0].UnitPrice, 0.01)

	require.Len(t, snap.Products, 1)
	got := snap.Products[0]
	assert.Equal(t, productID, got.ID)
	assert.InDelta(t, 35.00, got.SalePrice, 0.01)
	require.Len(t, got.Recipe, 1, "recipe tree must survive the JSON embedding")
	assert.Equal(t, ingredientID, got.Recipe[0].IngredientID)
	assert.InDelta(t, 0.15, got.Recipe[0].Quantity, 0.01)

	require.Len(t, snap.Customers, 1)
	assert.Equal(t, "Maria", snap.Customers[0].Name)

	require.Len(t, snap.Orders, 1)
	assert.Equal(t, domain.StatusAwaitingAccept, snap.Orders[0].Status)
	assert.InDelta(t, 40.00, snap.Orders[0].Total, 0.01)
	require.Len(t, snap.Orders[0].Items, 1)
	assert.Equal(t, "X-Burger", snap.Orders[0].Items[0].Name)

	assert.Equal(t, "Nucleo Lanches", snap.Settings[domain.SettingCompanyName])

	require.Len(t, snap.KeywordRules, 1)
	assert.Equal(t, 5, snap.KeywordRules[0].Priority)
}

func TestEmptyCollectionDoesNotOverwriteSheet(t *testing.T) {
	db := openTestDB(t)
	seedCatalog(t, db)
	path := filepath.Join(t.TempDir(), "mirror.xlsx")

	require.NoError(t, NewExporter(db).WriteWorkbook(context.Background(), path))

	// Wipe ingredients (purchases cascade) and export again: the old
	// sheets must be preserved.
	require.NoError(t, db.Where("1 = 1").Delete(&domain.Ingredient{}).Error)
	require.NoError(t, NewExporter(db).WriteWorkbook(context.Background(), path))

	snap, err := ReadWorkbook(path)
	require.NoError(t, err)
	assert.Len(t, snap.Ingredients, 1, "non-empty sheet must survive an empty export")
	assert.Len(t, snap.Products, 1)
}

func TestReadWorkbookMissingFile(t *testing.T) {
	_, err := ReadWorkbook(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}
