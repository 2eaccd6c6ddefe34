// Command server runs the restaurant backend: catalog and cost APIs, the
// order pipeline, the WhatsApp chatbot, and the management endpoints.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/chatbot"
	"github.com/oaddad/nucleo-backend/internal/config"
	"github.com/oaddad/nucleo-backend/internal/domain"
	"github.com/oaddad/nucleo-backend/internal/export"
	"github.com/oaddad/nucleo-backend/internal/gateway"
	httpapi "github.com/oaddad/nucleo-backend/internal/http"
	"github.com/oaddad/nucleo-backend/internal/llm"
	"github.com/oaddad/nucleo-backend/internal/notify"
	"github.com/oaddad/nucleo-backend/internal/observability"
	"github.com/oaddad/nucleo-backend/internal/queue"
	"github.com/oaddad/nucleo-backend/internal/repo"
	"github.com/oaddad/nucleo-backend/internal/services"
	"github.com/oaddad/nucleo-backend/internal/speech"
	"github.com/oaddad/nucleo-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}
	if err := repo.SeedDefaultSettings(db); err != nil {
		log.Fatal().Err(err).Msg("seed settings")
	}

	ctx := context.Background()
	otelShutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}

	// External services
	gw := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.Token)
	sp := speech.NewClient(cfg.Speech.BaseURL, cfg.Speech.APIKey)
	lm := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey)
	if cfg.LLM.Model != "" {
		lm.Model = cfg.LLM.Model
	}

	// Background task pool. Failed tasks turn into bug_reports rows.
	q := queue.New(cfg.QueueWorkers, bugSink(db), queue.NewMetrics(prometheus.DefaultRegisterer))

	// Order status notifications go out through the gateway.
	notifier := notify.New(db, gw)
	notifier.Delay = cfg.NotifyDelay

	costs := services.NewCostService(db)
	orders := services.NewOrderService(db, notifier)

	bot := chatbot.New(db, chatbot.NewState())
	bot.Sender = gw
	bot.Transcriber = sp
	bot.Transcoder = &speech.FFmpegTranscoder{}
	bot.Synthesizer = sp
	bot.Completer = lm

	r := gin.New()
	httpapi.RegisterRoutes(r, db, httpapi.Deps{
		Costs:        costs,
		Orders:       orders,
		Bot:          bot,
		Gateway:      gw,
		Queue:        q,
		Exporter:     export.NewExporter(db),
		WorkbookPath: cfg.WorkbookPath,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	notifier.Stop()
	bot.Stop()
	if err := q.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("queue drain")
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	log.Info().Msg("bye")
}

// bugSink persists failed background tasks for triage via /bugs.
func bugSink(db *gorm.DB) queue.BugSink {
	return func(ctx context.Context, component, message string) {
		report := &domain.BugReport{
			Timestamp: time.Now().UTC(),
			Kind:      "task",
			Message:   message,
			Endpoint:  component,
			Status:    domain.BugStatusNew,
		}
		if err := repo.AppendBugReport(ctx, db, report); err != nil {
			log.Error().Err(err).Str("component", component).Msg("record bug report")
		}
	}
}
