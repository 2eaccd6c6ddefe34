// Package export mirrors the catalog into a tabular workbook, one sheet
// per entity collection.
//
// The workbook is a secondary, periodic backup the owner can open in a
// spreadsheet. Recipe and order-step trees are serialized as embedded
// JSON strings inside their product row; order items likewise. A sheet
// that already holds rows is never overwritten by an empty collection, so
// a half-migrated or freshly wiped database cannot blank the backup.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/domain"
	"github.com/oaddad/nucleo-backend/internal/repo"
)

// Sheet names, one per entity collection.
const (
	SheetIngredients  = "Ingredientes"
	SheetPurchases    = "Compras"
	SheetProducts     = "Produtos"
	SheetCustomers    = "Clientes"
	SheetOrders       = "Pedidos"
	SheetSettings     = "Configuracoes"
	SheetKeywordRules = "Respostas"
)

// timeLayout is the cell format for timestamps.
const timeLayout = time.RFC3339

// Exporter writes and reads the workbook mirror.
type Exporter struct {
	DB *gorm.DB
}

// NewExporter constructs an Exporter.
func NewExporter(db *gorm.DB) *Exporter {
	return &Exporter{DB: db}
}

// WriteWorkbook mirrors every entity collection into the workbook at
// path, creating the file when absent. Sheet failures are aggregated; a
// failing sheet does not stop the others.
func (e *Exporter) WriteWorkbook(ctx context.Context, path string) error {
	f, err := openOrCreate(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var errs *multierror.Error
	for _, write := range []func(context.Context, *excelize.File) error{
		e.writeIngredients,
		e.writePurchases,
		e.writeProducts,
		e.writeCustomers,
		e.writeOrders,
		e.writeSettings,
		e.writeKeywordRules,
	} {
		if err := write(ctx, f); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("save workbook: %w", err))
	}
	return errs.ErrorOrNil()
}

func openOrCreate(path string) (*excelize.File, error) {
	if _, err := os.Stat(path); err == nil {
		return excelize.OpenFile(path)
	}
	return excelize.NewFile(), nil
}

func (e *Exporter) writeIngredients(ctx context.Context, f *excelize.File) error {
	rows, err := repo.ListIngredients(ctx, e.DB)
	if err != nil {
		return fmt.Errorf("sheet %s: %w", SheetIngredients, err)
	}
	cells := make([][]any, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []any{r.ID, r.Name, r.Unit, r.Category, r.Stock, r.MinStock, r.MaxStock, r.AveragePrice})
	}
	header := []any{"id", "nome", "unidade", "categoria", "estoque", "estoque_min", "estoque_max", "preco_medio"}
	return writeSheet(f, SheetIngredients, header, cells)
}

func (e *Exporter) writePurchases(ctx context.Context, f *excelize.File) error {
	var rows []domain.Purchase
	if err := e.DB.WithContext(ctx).Order("purchased_at asc").Find(&rows).Error; err != nil {
		return fmt.Errorf("sheet %s: %w", SheetPurchases, err)
	}
	cells := make([][]any, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []any{r.ID, r.IngredientID, r.Supplier, r.BatchID, r.Quantity, r.Price, r.UnitPrice, r.PurchasedAt.UTC().Format(timeLayout)})
	}
	header := []any{"id", "ingrediente_id", "fornecedor", "lote", "quantidade", "preco", "preco_unitario", "comprado_em"}
	return writeSheet(f, SheetPurchases, header, cells)
}

func (e *Exporter) writeProducts(ctx context.Context, f *excelize.File) error {
	var rows []domain.Product
	err := e.DB.WithContext(ctx).
		Preload("Recipe").
		Preload("StepGroups").
		Preload("StepGroups.Items").
		Find(&rows).Error
	if err != nil {
		return fmt.Errorf("sheet %s: %w", SheetProducts, err)
	}
	cells := make([][]any, 0, len(rows))
	for _, r := range rows {
		recipe, err := json.Marshal(r.Recipe)
		if err != nil {
			return fmt.Errorf("sheet %s: encode recipe of %s: %w", SheetProducts, r.ID, err)
		}
		steps, err := json.Marshal(r.StepGroups)
		if err != nil {
			return fmt.Errorf("sheet %s: encode steps of %s: %w", SheetProducts, r.ID, err)
		}
		cells = append(cells, []any{r.ID, r.Name, r.Category, r.SalePrice, r.Active, string(recipe), string(steps)})
	}
	header := []any{"id", "nome", "categoria", "preco_venda", "ativo", "receita_json", "etapas_json"}
	return writeSheet(f, SheetProducts, header, cells)
}

func (e *Exporter) writeCustomers(ctx context.Context, f *excelize.File) error {
	rows, err := repo.ListCustomers(ctx, e.DB)
	if err != nil {
		return fmt.Errorf("sheet %s: %w", SheetCustomers, err)
	}
	cells := make([][]any, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []any{r.ID, r.Name, r.Phone, r.Address})
	}
	header := []any{"id", "nome", "telefone", "endereco"}
	return writeSheet(f, SheetCustomers, header, cells)
}

func (e *Exporter) writeOrders(ctx context.Context, f *excelize.File) error {
	var rows []domain.Order
	if err := e.DB.WithContext(ctx).Preload("Items").Order("created_at asc").Find(&rows).Error; err != nil {
		return fmt.Errorf("sheet %s: %w", SheetOrders, err)
	}
	cells := make([][]any, 0, len(rows))
	for _, r := range rows {
		items, err := json.Marshal(r.Items)
		if err != nil {
			return fmt.Errorf("sheet %s: encode items of %s: %w", SheetOrders, r.ID, err)
		}
		cells = append(cells, []any{
			r.ID, r.Code, r.CustomerName, r.CustomerPhone, string(r.DeliveryType), string(r.Status),
			r.Subtotal, r.DeliveryFee, r.Total, r.PaymentMethod, string(items), r.CreatedAt.UTC().Format(timeLayout),
		})
	}
	header := []any{"id", "codigo", "cliente", "telefone", "tipo_entrega", "status", "subtotal", "taxa_entrega", "total", "pagamento", "itens_json", "criado_em"}
	return writeSheet(f, SheetOrders, header, cells)
}

func (e *Exporter) writeSettings(ctx context.Context, f *excelize.File) error {
	var rows []domain.Setting
	if err := e.DB.WithContext(ctx).Order("key asc").Find(&rows).Error; err != nil {
		return fmt.Errorf("sheet %s: %w", SheetSettings, err)
	}
	cells := make([][]any, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []any{r.Key, r.Value})
	}
	return writeSheet(f, SheetSettings, []any{"chave", "valor"}, cells)
}

func (e *Exporter) writeKeywordRules(ctx context.Context, f *excelize.File) error {
	var rows []domain.KeywordRule
	if err := e.DB.WithContext(ctx).Order("priority asc").Find(&rows).Error; err != nil {
		return fmt.Errorf("sheet %s: %w", SheetKeywordRules, err)
	}
	cells := make([][]any, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []any{r.ID, r.Keywords, r.Response, r.Active, r.Priority, string(r.MatchType)})
	}
	header := []any{"id", "palavras_json", "resposta", "ativo", "prioridade", "modo"}
	return writeSheet(f, SheetKeywordRules, header, cells)
}

// writeSheet replaces the named sheet with header+rows. An empty row set
// leaves an existing non-empty sheet untouched.
func writeSheet(f *excelize.File, name string, header []any, rows [][]any) error {
	if len(rows) == 0 && sheetHasData(f, name) {
		return nil
	}

	if idx, _ := f.GetSheetIndex(name); idx >= 0 {
		if err := f.DeleteSheet(name); err != nil {
			return fmt.Errorf("sheet %s: delete: %w", name, err)
		}
	}
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("sheet %s: create: %w", name, err)
	}

	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("sheet %s: header: %w", name, err)
	}
	for i, row := range rows {
		cell := "A" + strconv.Itoa(i+2)
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("sheet %s: row %d: %w", name, i+2, err)
		}
	}
	return nil
}

// sheetHasData reports whether the sheet exists with at least one data
// row below the header.
func sheetHasData(f *excelize.File, name string) bool {
	if idx, _ := f.GetSheetIndex(name); idx < 0 {
		return false
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return false
	}
	return len(rows) > 1
}
