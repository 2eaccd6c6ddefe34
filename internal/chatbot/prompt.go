// Package chatbot – LLM system prompt assembly.
package chatbot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/domain"
	"github.com/oaddad/nucleo-backend/internal/repo"
	"github.com/oaddad/nucleo-backend/internal/substitute"
)

// menuPerCategory is the condensed-menu cap per category in the prompt.
const menuPerCategory = 10

// defaultPersona is used when the settings table names no persona.
const defaultPersona = "Você é um atendente simpático e objetivo de uma lanchonete brasileira. " +
	"Responda em português, de forma curta e cordial, e só fale sobre o cardápio, " +
	"pedidos e informações da loja."

// buildSystemPrompt assembles the LLM system prompt from settings,
// rendered business hours, and the condensed menu. Lookup failures leave
// sections out rather than failing the dispatch.
func buildSystemPrompt(ctx context.Context, db *gorm.DB) string {
	settings, err := repo.AllSettings(ctx, db)
	if err != nil {
		settings = map[string]string{}
	}

	persona := settings[domain.SettingChatPersona]
	if persona == "" {
		persona = defaultPersona
	}

	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\n")

	if name := settings[domain.SettingCompanyName]; name != "" {
		fmt.Fprintf(&b, "Empresa: %s\n", name)
	}
	if addr := settings[domain.SettingCompanyAddress]; addr != "" {
		fmt.Fprintf(&b, "Endereço: %s\n", addr)
	}
	if phone := settings[domain.SettingCompanyPhone]; phone != "" {
		fmt.Fprintf(&b, "Telefone: %s\n", phone)
	}
	if insta := settings[domain.SettingInstagram]; insta != "" {
		fmt.Fprintf(&b, "Instagram: %s\n", insta)
	}
	if url := settings[domain.SettingDeliveryURL]; url != "" {
		fmt.Fprintf(&b, "Cardápio online: %s\n", url)
	}
	if hours := substitute.RenderBusinessHours(settings[domain.SettingBusinessHours]); hours != "" {
		b.WriteString("\nHorários de funcionamento:\n")
		b.WriteString(hours)
		b.WriteString("\n")
	}

	if menu := renderMenu(ctx, db); menu != "" {
		b.WriteString("\nCardápio (resumo):\n")
		b.WriteString(menu)
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderMenu lists up to menuPerCategory active products per category,
// category order alphabetical for a stable prompt.
func renderMenu(ctx context.Context, db *gorm.DB) string {
	byCategory, err := repo.ListActiveProductsByCategory(ctx, db, menuPerCategory)
	if err != nil || len(byCategory) == 0 {
		return ""
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var b strings.Builder
	for _, c := range categories {
		fmt.Fprintf(&b, "%s:\n", c)
		for _, p := range byCategory[c] {
			fmt.Fprintf(&b, "- %s — R$ %.2f\n", p.Name, p.SalePrice)
		}
	}
	return b.String()
}
