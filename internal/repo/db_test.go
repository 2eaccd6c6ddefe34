package repo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/oaddad/nucleo-backend/internal/domain"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nucleo.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestOpenSQLite_Pragmas(t *testing.T) {
	db := openTestDB(t)

	var journalMode string
	if err := db.Raw("PRAGMA journal_mode;").Row().Scan(&journalMode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %q; want wal", journalMode)
	}

	var busyMS int
	if err := db.Raw("PRAGMA busy_timeout;").Row().Scan(&busyMS); err != nil {
		t.Fatalf("PRAGMA busy_timeout: %v", err)
	}
	if busyMS != 30000 {
		t.Errorf("busy_timeout = %d; want 30000", busyMS)
	}
}

func TestSeedDefaultSettings_DoesNotOverwrite(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := SetSetting(ctx, db, domain.SettingBotPauseMinutes, "30"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := SeedDefaultSettings(db); err != nil {
		t.Fatalf("SeedDefaultSettings: %v", err)
	}

	v, err := GetSetting(ctx, db, domain.SettingBotPauseMinutes)
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if v != "30" {
		t.Errorf("operator value overwritten: got %q, want 30", v)
	}

	// Missing keys get filled in.
	voice, err := GetSetting(ctx, db, domain.SettingDefaultVoice)
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if voice != "nova" {
		t.Errorf("default voice = %q; want nova", voice)
	}
}

func TestListRecentPurchases_OrderAndLimit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	ing := &domain.Ingredient{Name: "Carne Bovina", Unit: "kg"}
	if err := CreateIngredient(ctx, db, ing); err != nil {
		t.Fatalf("CreateIngredient: %v", err)
	}

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	unitPrices := []float64{20, 22, 24, 26, 28, 30}
	for i, up := range unitPrices {
		p := &domain.Purchase{
			IngredientID: ing.ID,
			Quantity:     1,
			Price:        up,
			UnitPrice:    up,
			PurchasedAt:  base.Add(time.Duration(i) * time.Hour),
		}
		if err := CreatePurchase(ctx, db, p); err != nil {
			t.Fatalf("CreatePurchase: %v", err)
		}
	}

	got, err := ListRecentPurchases(ctx, db, ing.ID, 5)
	if err != nil {
		t.Fatalf("ListRecentPurchases: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("len = %d; want 5", len(got))
	}
	// Newest first: 30, 28, 26, 24, 22.
	want := []float64{30, 28, 26, 24, 22}
	for i, p := range got {
		if p.UnitPrice != want[i] {
			t.Errorf("purchase[%d].UnitPrice = %v; want %v", i, p.UnitPrice, want[i])
		}
	}
}

func TestListRecentPurchases_TieBreakByInsertionOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	ing := &domain.Ingredient{Name: "Queijo Cheddar", Unit: "kg"}
	if err := CreateIngredient(ctx, db, ing); err != nil {
		t.Fatalf("CreateIngredient: %v", err)
	}

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, up := range []float64{10, 20} {
		p := &domain.Purchase{IngredientID: ing.ID, Quantity: 1, Price: up, UnitPrice: up, PurchasedAt: at}
		if err := CreatePurchase(ctx, db, p); err != nil {
			t.Fatalf("CreatePurchase: %v", err)
		}
	}

	got, err := ListRecentPurchases(ctx, db, ing.ID, 1)
	if err != nil {
		t.Fatalf("ListRecentPurchases: %v", err)
	}
	if len(got) != 1 || got[0].UnitPrice != 20 {
		t.Fatalf("tie-break should pick the later insertion; got %+v", got)
	}
}

func TestFindCustomerByPhone_Last8Match(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	c := &domain.Customer{Name: "Maria", Phone: "(34) 99672-7535"}
	if err := CreateCustomer(ctx, db, c); err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	if c.Phone != "5534996727535" {
		t.Fatalf("stored phone = %q; want normalized", c.Phone)
	}

	for _, probe := range []string{"5534996727535", "34996727535", "5534996727535@s.whatsapp.net"} {
		got, err := FindCustomerByPhone(ctx, db, probe)
		if err != nil {
			t.Errorf("FindCustomerByPhone(%q): %v", probe, err)
			continue
		}
		if got.ID != c.ID {
			t.Errorf("FindCustomerByPhone(%q) resolved wrong customer", probe)
		}
	}
}

func TestCreateProduct_RejectsNestedCombo(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	leaf := &domain.Product{Name: "X-Burger", SalePrice: 35, Active: true}
	if err := CreateProduct(ctx, db, leaf); err != nil {
		t.Fatalf("CreateProduct leaf: %v", err)
	}

	combo := &domain.Product{
		Name: "Combo X", SalePrice: 50, Active: true,
		StepGroups: []domain.OrderStepGroup{{
			Name: "Escolha o lanche", MinSelect: 1, MaxSelect: 1, Strategy: domain.CalcSum,
			Items: []domain.OrderStepItem{{ItemProductID: leaf.ID}},
		}},
	}
	if err := CreateProduct(ctx, db, combo); err != nil {
		t.Fatalf("CreateProduct combo: %v", err)
	}

	nested := &domain.Product{
		Name: "Combo do Combo", SalePrice: 80, Active: true,
		StepGroups: []domain.OrderStepGroup{{
			Name: "Escolha o combo", MinSelect: 1, MaxSelect: 1, Strategy: domain.CalcSum,
			Items: []domain.OrderStepItem{{ItemProductID: combo.ID}},
		}},
	}
	if err := CreateProduct(ctx, db, nested); err != ErrNestedCombo {
		t.Fatalf("expected ErrNestedCombo, got %v", err)
	}
}

func TestCreateOrder_GeneratesDailyCode(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	o1 := &domain.Order{CustomerName: "João", CustomerPhone: "5534996727535", DeliveryType: domain.DeliveryTypeDelivery}
	if err := CreateOrder(ctx, db, o1); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	o2 := &domain.Order{CustomerName: "Ana", CustomerPhone: "5534996727536", DeliveryType: domain.DeliveryTypePickup}
	if err := CreateOrder(ctx, db, o2); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if o1.Code != "P001" || o2.Code != "P002" {
		t.Errorf("codes = %q, %q; want P001, P002", o1.Code, o2.Code)
	}
	if o1.Status != domain.StatusAwaitingAccept {
		t.Errorf("initial status = %q; want aguardando_aceite", o1.Status)
	}

	events, err := ListOrderEvents(ctx, db, o1.ID)
	if err != nil {
		t.Fatalf("ListOrderEvents: %v", err)
	}
	if len(events) != 1 || events[0].Status != domain.StatusAwaitingAccept {
		t.Errorf("creation must append the initial event, got %+v", events)
	}
}
