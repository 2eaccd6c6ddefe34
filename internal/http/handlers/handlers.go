// Package handlers provides HTTP handler implementations for the public API.
//
// Handler is the single dependency container shared by every endpoint group.
// The router populates it once and mounts the methods; handlers stay thin and
// delegate to the service layer, translating service sentinel errors into
// status codes and envelope codes.
package handlers

import (
	"context"

	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/chatbot"
	"github.com/oaddad/nucleo-backend/internal/export"
	"github.com/oaddad/nucleo-backend/internal/gateway"
	"github.com/oaddad/nucleo-backend/internal/http/middleware"
	"github.com/oaddad/nucleo-backend/internal/queue"
	"github.com/oaddad/nucleo-backend/internal/services"
	"github.com/oaddad/nucleo-backend/internal/utils"
)

// GatewayAdmin is the slice of the gateway client the admin endpoints need.
// Declared here so tests can substitute a fake without a live bridge.
type GatewayAdmin interface {
	Status(ctx context.Context) (*gateway.StatusResponse, error)
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// Handler aggregates the dependencies behind the HTTP API.
type Handler struct {
	DB       *gorm.DB
	Costs    *services.CostService
	Orders   *services.OrderService
	Bot      *chatbot.Dispatcher
	Gateway  GatewayAdmin
	Queue    *queue.Queue
	Exporter *export.Exporter
	Dedup    *middleware.Deduper

	// WorkbookPath is where export tasks write the xlsx mirror.
	WorkbookPath string
}

// clampPagination normalizes ?page= and ?limit= query values: page >= 1,
// limit within [1, 100], defaulting to page 1 / limit 20.
func clampPagination(pageRaw, limitRaw string) (page, limit int) {
	page = utils.AtoiDefault(pageRaw, 1)
	if page < 1 {
		page = 1
	}
	limit = utils.AtoiDefault(limitRaw, 20)
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
