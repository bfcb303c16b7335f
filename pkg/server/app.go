package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"RiskLens/internal/usecase"
	pkgch "RiskLens/pkg/clickhouse"
	"RiskLens/pkg/config"
	xhttp "RiskLens/pkg/http"
	pkgkafka "RiskLens/pkg/kafka"
	applogger "RiskLens/pkg/logger"
	"RiskLens/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg          *config.Config
	l            *applogger.Logger
	collector    *usecase.BarCollector
	consumer     *pkgkafka.Consumer
	kh           pkgkafka.MessageHandler
	chClient     *pkgch.Client
	refreshQueue *queue.RedisQueue
	scheduler    *usecase.RefreshScheduler
	backfiller   *usecase.Backfiller
	httpHandler  xhttp.Handler
	httpServer   *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.BarCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	refreshQueue *queue.RedisQueue,
	scheduler *usecase.RefreshScheduler,
	backfiller *usecase.Backfiller,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:          cfg,
		l:            l,
		collector:    collector,
		consumer:     consumer,
		kh:           kh,
		chClient:     chClient,
		refreshQueue: refreshQueue,
		scheduler:    scheduler,
		backfiller:   backfiller,
		httpHandler:  handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Ingest from the provider feed only when credentials are configured;
	// a scoring-only deployment reads bars from Kafka or ClickHouse alone.
	if a.collector != nil && a.cfg.MarketData.APIKey != "" {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				a.l.Error("collector error", applogger.Error(err))
			}
		}()
		a.l.Info("collector started", applogger.Strings("symbols", a.cfg.MarketData.Symbols))
	}

	// Consume the bars topic when kafka is wired
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Refresh queue: consumes scoring refresh requests
	if a.refreshQueue != nil {
		if err := a.refreshQueue.Start(); err != nil {
			a.l.Error("refresh queue start error", applogger.Error(err))
			return err
		}
		a.refreshQueue.StartRetryProcessor()
		a.l.Info("refresh queue started")
	}

	// Backfill history first so the startup scoring pass has data, then
	// begin the periodic trigger loop.
	go func() {
		if a.backfiller != nil {
			n := a.backfiller.Run(ctx)
			a.l.Info("backfill finished", applogger.Int("symbols", n))
		}
		if a.scheduler != nil {
			a.scheduler.Start(ctx)
			a.l.Info("refresh scheduler started")
		}
	}()

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	// Stop collector (pipeline + stream)
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.l.Warn("collector stop error", applogger.Error(err))
		}
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	// Stop consumer before closing storage it writes to
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Drain the refresh queue workers
	if a.refreshQueue != nil {
		if err := a.refreshQueue.Stop(shutdownCtx); err != nil {
			a.l.Warn("refresh queue stop error", applogger.Error(err))
		}
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	// Close processor resources (publisher/storage)
	if a.collector != nil {
		if proc := a.collector.Processor(); proc != nil {
			proc.Close()
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
