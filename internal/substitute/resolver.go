// Package substitute – catalog-backed placeholder resolution.
//
// Resolver builds the value map for one conversation from live catalog
// data: the customer matched by phone (country-code tolerant), their most
// recent order, company identity settings, and rendered business hours.
package substitute

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/domain"
	"github.com/oaddad/nucleo-backend/internal/repo"
)

// Resolver resolves placeholder values against the catalog store.
type Resolver struct {
	// DB is the GORM handle used for lookups.
	DB *gorm.DB
}

// NewResolver constructs a Resolver.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{DB: db}
}

// Values assembles the substitution map for the conversation with the given
// phone. Lookup failures degrade to empty values; substitution never fails
// a dispatch.
func (r *Resolver) Values(ctx context.Context, phoneRaw string) map[string]string {
	settings, err := repo.AllSettings(ctx, r.DB)
	if err != nil {
		settings = map[string]string{}
	}

	vals := map[string]string{
		KeyDeliveryURL:  settings[domain.SettingDeliveryURL],
		KeyCompanyPhone: settings[domain.SettingCompanyPhone],
		KeyCompanyName:  settings[domain.SettingCompanyName],
		KeyAddress:      settings[domain.SettingCompanyAddress],
		KeyInstagram:    settings[domain.SettingInstagram],
		KeyHours:        RenderBusinessHours(settings[domain.SettingBusinessHours]),
	}

	if c, err := repo.FindCustomerByPhone(ctx, r.DB, phoneRaw); err == nil {
		vals[KeyCustomerName] = c.Name
	}
	if o, err := repo.LatestOrderByPhone(ctx, r.DB, phoneRaw); err == nil {
		vals[KeyOrderCode] = o.Code
		vals[KeyLastOrder] = lastOrderSummary(o)
	}
	return vals
}

// lastOrderSummary renders a short single-line description of an order.
func lastOrderSummary(o *domain.Order) string {
	return fmt.Sprintf("#%s (%s) — R$ %.2f", o.Code, o.Status, o.Total)
}

// dayHours is the stored shape of one business-hours entry. A second daily
// interval (Open2/Close2) is optional.
type dayHours struct {
	Day    string `json:"day"`
	Closed bool   `json:"closed"`
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
	Open2  string `json:"open2,omitempty"`
	Close2 string `json:"close2,omitempty"`
}

// RenderBusinessHours turns the JSON-encoded business-hours setting into a
// newline-joined human list. Closed days are marked explicitly; a second
// daily interval is appended when present. Invalid or empty input renders
// to "".
func RenderBusinessHours(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var days []dayHours
	if err := json.Unmarshal([]byte(raw), &days); err != nil {
		return ""
	}
	lines := make([]string, 0, len(days))
	for _, d := range days {
		if d.Closed {
			lines = append(lines, fmt.Sprintf("%s: fechado", d.Day))
			continue
		}
		line := fmt.Sprintf("%s: %s às %s", d.Day, d.Open, d.Close)
		if d.Open2 != "" && d.Close2 != "" {
			line += fmt.Sprintf(" e %s às %s", d.Open2, d.Close2)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
