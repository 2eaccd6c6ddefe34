// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, webhook deduplication, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/chatbot"
	"github.com/oaddad/nucleo-backend/internal/config"
	"github.com/oaddad/nucleo-backend/internal/export"
	"github.com/oaddad/nucleo-backend/internal/http/handlers"
	"github.com/oaddad/nucleo-backend/internal/http/middleware"
	"github.com/oaddad/nucleo-backend/internal/queue"
	"github.com/oaddad/nucleo-backend/internal/services"
)

// Deps carries the application components the API exposes. Everything is
// constructed in main and injected here; the router owns nothing.
type Deps struct {
	Costs    *services.CostService
	Orders   *services.OrderService
	Bot      *chatbot.Dispatcher
	Gateway  handlers.GatewayAdmin
	Queue    *queue.Queue
	Exporter *export.Exporter

	// WorkbookPath is where export tasks write the xlsx mirror.
	WorkbookPath string
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with phone/PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Audit trail (request_logs rows, written off-path via the queue)
//  8. Rate limiter (per client IP)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction. Customer phone numbers show up
	// in query strings here, so the scrubbing logger is not optional.
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-Api-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (5 MiB: voice notes arrive base64-encoded)
	r.Use(limitBody(5 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Persistent audit trail, written at background priority
	r.Use(middleware.Audit(db, deps.Queue))

	// 8) Token-bucket rate limiter per client IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	h := &handlers.Handler{
		DB:           db,
		Costs:        deps.Costs,
		Orders:       deps.Orders,
		Bot:          deps.Bot,
		Gateway:      deps.Gateway,
		Queue:        deps.Queue,
		Exporter:     deps.Exporter,
		Dedup:        middleware.NewDeduper(middleware.DefaultDedupTTL),
		WorkbookPath: deps.WorkbookPath,
	}

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Catalog
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

		// Orders
		api.POST("/orders", h.CreateOrder)
		api.GET("/orders", h.ListOrders)
		api.GET("/orders/:id", h.GetOrder)
		api.PUT("/orders/:id/status", h.TransitionOrder)
		api.PUT("/orders/:id/courier", h.AssignCourier)
		api.GET("/orders/:id/events", h.OrderEvents)

		// Chatbot
		api.POST("/webhook/whatsapp", h.Webhook)
		api.POST("/bot/pause", h.PauseBot)
		api.POST("/bot/resume", h.ResumeBot)
		api.GET("/bot/waiting", h.WaitingList)

		// Management
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
	}
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader. Oversized bodies error on read downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
