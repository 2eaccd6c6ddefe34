// Package export – workbook import.
package export

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/xuri/excelize/v2"

	"github.com/oaddad/nucleo-backend/internal/domain"
)

// Snapshot is the logical content of a workbook mirror.
type Snapshot struct {
	Ingredients  []domain.Ingredient
	Purchases    []domain.Purchase
	Products     []domain.Product
	Customers    []domain.Customer
	Orders       []domain.Order
	Settings     map[string]string
	KeywordRules []domain.KeywordRule
}

// ReadWorkbook parses the workbook at path back into entity collections.
// Sheet-level failures are aggregated; missing sheets read as empty.
func ReadWorkbook(path string) (*Snapshot, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snap := &Snapshot{Settings: map[string]string{}}
	var errs *multierror.Error

	errs = multierror.Append(errs, readSheet(f, SheetIngredients, func(row []string) error {
		if len(row) < 8 {
			return fmt.Errorf("short row")
		}
		snap.Ingredients = append(snap.Ingredients, domain.Ingredient{
			ID:           row[0],
			Name:         row[1],
			Unit:         row[2],
			Category:     row[3],
			Stock:        parseFloat(row[4]),
			MinStock:     parseFloat(row[5]),
			MaxStock:     parseFloat(row[6]),
			AveragePrice: parseFloat(row[7]),
		})
		return nil
	}))

	errs = multierror.Append(errs, readSheet(f, SheetPurchases, func(row []string) error {
		if len(row) < 8 {
			return fmt.Errorf("short row")
		}
		at, err := time.Parse(timeLayout, row[7])
		if err != nil {
			return fmt.Errorf("bad timestamp %q: %w", row[7], err)
		}
		snap.Purchases = append(snap.Purchases, domain.Purchase{
			ID:           row[0],
			IngredientID: row[1],
			Supplier:     row[2],
			BatchID:      row[3],
			Quantity:     parseFloat(row[4]),
			Price:        parseFloat(row[5]),
			UnitPrice:    parseFloat(row[6]),
			PurchasedAt:  at,
		})
		return nil
	}))

	errs = multierror.Append(errs, readSheet(f, SheetProducts, func(row []string) error {
		if len(row) < 7 {
			return fmt.Errorf("short row")
		}
		p := domain.Product{
			ID:        row[0],
			Name:      row[1],
			Category:  row[2],
			SalePrice: parseFloat(row[3]),
			Active:    parseBool(row[4]),
		}
		if row[5] != "" {
			if err := json.Unmarshal([]byte(row[5]), &p.Recipe); err != nil {
				return fmt.Errorf("bad recipe json: %w", err)
			}
		}
		if row[6] != "" {
			if err := json.Unmarshal([]byte(row[6]), &p.StepGroups); err != nil {
				return fmt.Errorf("bad steps json: %w", err)
			}
		}
		snap.Products = append(snap.Products, p)
		return nil
	}))

	errs = multierror.Append(errs, readSheet(f, SheetCustomers, func(row []string) error {
		if len(row) < 3 {
			return fmt.Errorf("short row")
		}
		c := domain.Customer{ID: row[0], Name: row[1], Phone: row[2]}
		if len(row) > 3 {
			c.Address = row[3]
		}
		snap.Customers = append(snap.Customers, c)
		return nil
	}))

	errs = multierror.Append(errs, readSheet(f, SheetOrders, func(row []string) error {
		if len(row) < 12 {
			return fmt.Errorf("short row")
		}
		at, err := time.Parse(timeLayout, row[11])
		if err != nil {
			return fmt.Errorf("bad timestamp %q: %w", row[11], err)
		}
		o := domain.Order{
			ID:            row[0],
			Code:          row[1],
			CustomerName:  row[2],
			CustomerPhone: row[3],
			DeliveryType:  domain.DeliveryType(row[4]),
			Status:        domain.OrderStatus(row[5]),
			Subtotal:      parseFloat(row[6]),
			DeliveryFee:   parseFloat(row[7]),
			Total:         parseFloat(row[8]),
			PaymentMethod: row[9],
			CreatedAt:     at,
		}
		if row[10] != "" {
			if err := json.Unmarshal([]byte(row[10]), &o.Items); err != nil {
				return fmt.Errorf("bad items json: %w", err)
			}
		}
		snap.Orders = append(snap.Orders, o)
		return nil
	}))

	errs = multierror.Append(errs, readSheet(f, SheetSettings, func(row []string) error {
		if len(row) < 1 {
			return fmt.Errorf("short row")
		}
		value := ""
		if len(row) > 1 {
			value = row[1]
		}
		snap.Settings[row[0]] = value
		return nil
	}))

	errs = multierror.Append(errs, readSheet(f, SheetKeywordRules, func(row []string) error {
		if len(row) < 6 {
			return fmt.Errorf("short row")
		}
		snap.KeywordRules = append(snap.KeywordRules, domain.KeywordRule{
			ID:        row[0],
			Keywords:  row[1],
			Response:  row[2],
			Active:    parseBool(row[3]),
			Priority:  int(parseFloat(row[4])),
			MatchType: domain.MatchType(row[5]),
		})
		return nil
	}))

	return snap, errs.ErrorOrNil()
}

// readSheet applies parse to every data row of the sheet, skipping the
// header. A missing sheet is not an error.
func readSheet(f *excelize.File, name string, parse func(row []string) error) error {
	if idx, _ := f.GetSheetIndex(name); idx < 0 {
		return nil
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return fmt.Errorf("sheet %s: %w", name, err)
	}
	var errs *multierror.Error
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		if err := parse(row); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("sheet %s row %d: %w", name, i+1, err))
		}
	}
	return errs.ErrorOrNil()
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseBool(s string) bool {
	v, _ := strconv.ParseBool(s)
	return v
}
