package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/chatbot"
	"github.com/oaddad/nucleo-backend/internal/export"
	"github.com/oaddad/nucleo-backend/internal/gateway"
	"github.com/oaddad/nucleo-backend/internal/http/middleware"
	"github.com/oaddad/nucleo-backend/internal/queue"
	"github.com/oaddad/nucleo-backend/internal/repo"
	"github.com/oaddad/nucleo-backend/internal/services"
)

func init() { gin.SetMode(gin.TestMode) }

// fakeGateway satisfies GatewayAdmin without a live bridge.
type fakeGateway struct {
	status    *gateway.StatusResponse
	err       error
	connects  int
	shutdowns int
}

func (f *fakeGateway) Status(context.Context) (*gateway.StatusResponse, error) {
	return f.status, f.err
}
func (f *fakeGateway) Connect(context.Context) error    { f.connects++; return f.err }
func (f *fakeGateway) Disconnect(context.Context) error { f.shutdowns++; return f.err }

// env bundles a fully wired Handler mounted on a bare engine.
type env struct {
	r  *gin.Engine
	h  *Handler
	db *gorm.DB
	gw *fakeGateway
}

func setup(t *testing.T) *env {
	t.Helper()

	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "api_test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := repo.SeedDefaultSettings(db); err != nil {
		t.Fatalf("seed: %v", err)
	}

	q := queue.New(1, nil, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = q.Stop(ctx)
	})

	gw := &fakeGateway{status: &gateway.StatusResponse{Status: "connected", Connected: true}}
	h := &Handler{
		DB:           db,
		Costs:        services.NewCostService(db),
		Orders:       services.NewOrderService(db, nil),
		Bot:          chatbot.New(db, nil),
		Gateway:      gw,
		Queue:        q,
		Exporter:     export.NewExporter(db),
		Dedup:        middleware.NewDeduper(time.Minute),
		WorkbookPath: filepath.Join(t.TempDir(), "mirror.xlsx"),
	}
	t.Cleanup(h.Bot.Stop)

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/ingredients", h.CreateIngredient)
	api.GET("/ingredients", h.ListIngredients)
	api.GET("/ingredients/:id", h.GetIngredient)
	api.POST("/purchases", h.RecordPurchase)
	api.GET("/purchases", h.ListPurchases)
	api.DELETE("/purchases/:id", h.DeletePurchase)
	api.POST("/products", h.CreateProduct)
	api.GET("/products", h.ListProducts)
	api.GET("/products/:id", h.GetProduct)
	api.GET("/products/:id/cost", h.ProductCost)
	api.POST("/customers", h.CreateCustomer)
	api.GET("/customers", h.ListCustomers)
	api.POST("/orders", h.CreateOrder)
	api.GET("/orders", h.ListOrders)
	api.GET("/orders/:id", h.GetOrder)
	api.PUT("/orders/:id/status", h.TransitionOrder)
	api.PUT("/orders/:id/courier", h.AssignCourier)
	api.GET("/orders/:id/events", h.OrderEvents)
	api.POST("/webhook/whatsapp", h.Webhook)
	api.POST("/bot/pause", h.PauseBot)
	api.POST("/bot/resume", h.ResumeBot)
	api.GET("/bot/waiting", h.WaitingList)
	api.GET("/settings", h.ListSettings)
	api.PUT("/settings/:key", h.PutSetting)
	api.GET("/keyword-rules", h.ListKeywordRules)
	api.POST("/keyword-rules", h.CreateKeywordRule)
	api.DELETE("/keyword-rules/:id", h.DeleteKeywordRule)
	api.POST("/export/workbook", h.ExportWorkbook)
	api.GET("/queue/stats", h.QueueStats)
	api.GET("/gateway/status", h.GatewayStatus)
	api.POST("/gateway/connect", h.GatewayConnect)
	api.POST("/gateway/disconnect", h.GatewayDisconnect)
	api.GET("/bugs", h.ListBugReports)
	api.PUT("/bugs/:id/status", h.UpdateBugStatus)

	return &env{r: r, h: h, db: db, gw: gw}
}

// doJSON performs a request with an optional JSON body and decodes the
// response into out when non-nil.
func (e *env) doJSON(t *testing.T, method, path string, body, out any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w
}

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, want, w.Body.String())
	}
}
